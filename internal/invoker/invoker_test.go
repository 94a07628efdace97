package invoker

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeScript creates an executable shell script for use as a fake agent.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestInvoke_Success(t *testing.T) {
	cmd := writeScript(t, "agent.sh", `cat > /dev/null
echo '{"data":{"answer":"x"},"model_used":"test-model","tokens_used":10}'`)

	iv := New(0)
	res := iv.Invoke(Request{
		SessionID: "s1",
		Command:   cmd,
		Input:     json.RawMessage(`{"prompt":"hi"}`),
		Env:       EnvConfig{Provider: "p1"},
		Timeout:   5 * time.Second,
	})

	if !res.Success {
		t.Fatalf("Invoke failed: %v", res.Err)
	}
	var data map[string]string
	if err := json.Unmarshal(res.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["answer"] != "x" {
		t.Errorf("answer = %q, want x", data["answer"])
	}
	if res.ModelUsed != "test-model" {
		t.Errorf("ModelUsed = %q, want test-model", res.ModelUsed)
	}
	if res.TokensUsed != 10 {
		t.Errorf("TokensUsed = %d, want 10", res.TokensUsed)
	}
	if res.Provider != "p1" {
		t.Errorf("Provider = %q, want p1", res.Provider)
	}
	if res.Duration <= 0 {
		t.Error("Duration not populated")
	}
	if iv.PoolSize() != 0 {
		t.Errorf("PoolSize after completion = %d, want 0", iv.PoolSize())
	}
}

func TestInvoke_StdinReachesProcess(t *testing.T) {
	cmd := writeScript(t, "agent.sh", `payload=$(cat)
printf '{"data":%s}' "$payload"`)

	iv := New(0)
	res := iv.Invoke(Request{
		SessionID: "s1",
		Command:   cmd,
		Input:     json.RawMessage(`{"prompt":"echo me"}`),
		Env:       EnvConfig{Provider: "p1"},
		Timeout:   5 * time.Second,
	})

	if !res.Success {
		t.Fatalf("Invoke failed: %v", res.Err)
	}
	var data map[string]string
	if err := json.Unmarshal(res.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["prompt"] != "echo me" {
		t.Errorf("prompt round-trip = %q, want 'echo me'", data["prompt"])
	}
}

func TestInvoke_EnvironmentContract(t *testing.T) {
	cmd := writeScript(t, "agent.sh", `cat > /dev/null
printf '{"data":{"provider":"%s","model":"%s","timeout_ms":"%s"}}' "$AGENT_PROVIDER" "$AGENT_MODEL" "$AGENT_TIMEOUT_MS"`)

	iv := New(0)
	res := iv.Invoke(Request{
		SessionID: "s1",
		Command:   cmd,
		Input:     json.RawMessage(`{}`),
		Env: EnvConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			TimeoutMS: 5000,
		},
		Timeout: 5 * time.Second,
	})

	if !res.Success {
		t.Fatalf("Invoke failed: %v", res.Err)
	}
	var data map[string]string
	if err := json.Unmarshal(res.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["provider"] != "openai" {
		t.Errorf("AGENT_PROVIDER = %q, want openai", data["provider"])
	}
	if data["model"] != "gpt-4o-mini" {
		t.Errorf("AGENT_MODEL = %q, want gpt-4o-mini", data["model"])
	}
	if data["timeout_ms"] != "5000" {
		t.Errorf("AGENT_TIMEOUT_MS = %q, want 5000", data["timeout_ms"])
	}
}

func TestInvoke_NonZeroExit(t *testing.T) {
	cmd := writeScript(t, "agent.sh", `cat > /dev/null
echo "rate limited" >&2
exit 3`)

	iv := New(0)
	res := iv.Invoke(Request{
		SessionID: "s1",
		Command:   cmd,
		Input:     json.RawMessage(`{}`),
		Env:       EnvConfig{Provider: "p1"},
		Timeout:   5 * time.Second,
	})

	if res.Success {
		t.Fatal("Invoke succeeded, want failure")
	}
	var exitErr *NonZeroExitError
	if !errors.As(res.Err, &exitErr) {
		t.Fatalf("error = %T, want *NonZeroExitError", res.Err)
	}
	if exitErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", exitErr.ExitCode)
	}
	if exitErr.Stderr != "rate limited" {
		t.Errorf("Stderr = %q, want 'rate limited'", exitErr.Stderr)
	}
	if !strings.Contains(res.Err.Error(), "rate limited") {
		t.Errorf("error message %q missing stderr text", res.Err.Error())
	}
}

func TestInvoke_Timeout(t *testing.T) {
	cmd := writeScript(t, "agent.sh", `sleep 30`)

	iv := New(0)
	start := time.Now()
	res := iv.Invoke(Request{
		SessionID: "s1",
		Command:   cmd,
		Input:     json.RawMessage(`{}`),
		Env:       EnvConfig{Provider: "p1"},
		Timeout:   300 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if res.Success {
		t.Fatal("Invoke succeeded, want timeout")
	}
	var timeoutErr *TimeoutError
	if !errors.As(res.Err, &timeoutErr) {
		t.Fatalf("error = %T (%v), want *TimeoutError", res.Err, res.Err)
	}
	if timeoutErr.Timeout != 300*time.Millisecond {
		t.Errorf("Timeout = %v, want 300ms", timeoutErr.Timeout)
	}
	if elapsed >= 5*time.Second {
		t.Errorf("Invoke took %v; process was not killed at the deadline", elapsed)
	}
	if res.Duration < 300*time.Millisecond {
		t.Errorf("Duration = %v, want >= timeout", res.Duration)
	}
	if iv.PoolSize() != 0 {
		t.Errorf("PoolSize after timeout = %d, want 0 (process leaked)", iv.PoolSize())
	}
}

func TestInvoke_MalformedOutput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "not json",
			body: `cat > /dev/null
echo 'this is not json'`,
		},
		{
			name: "missing data field",
			body: `cat > /dev/null
echo '{"model_used":"m"}'`,
		},
		{
			name: "empty output",
			body: `cat > /dev/null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := writeScript(t, "agent.sh", tt.body)

			iv := New(0)
			res := iv.Invoke(Request{
				SessionID: "s1",
				Command:   cmd,
				Input:     json.RawMessage(`{}`),
				Env:       EnvConfig{Provider: "p1"},
				Timeout:   5 * time.Second,
			})

			if res.Success {
				t.Fatal("Invoke succeeded, want malformed-output failure")
			}
			var malformed *MalformedOutputError
			if !errors.As(res.Err, &malformed) {
				t.Fatalf("error = %T (%v), want *MalformedOutputError", res.Err, res.Err)
			}
		})
	}
}

func TestInvoke_SpawnError(t *testing.T) {
	iv := New(0)
	res := iv.Invoke(Request{
		SessionID: "s1",
		Command:   "/nonexistent/agent/binary",
		Input:     json.RawMessage(`{}`),
		Env:       EnvConfig{Provider: "p1"},
		Timeout:   5 * time.Second,
	})

	if res.Success {
		t.Fatal("Invoke succeeded, want spawn failure")
	}
	var spawn *SpawnError
	if !errors.As(res.Err, &spawn) {
		t.Fatalf("error = %T (%v), want *SpawnError", res.Err, res.Err)
	}
	if spawn.Provider != "p1" {
		t.Errorf("Provider = %q, want p1", spawn.Provider)
	}
}

func TestInvoke_OutputBounded(t *testing.T) {
	// Emits far more than the 1 KiB cap; the attempt must still terminate
	// and the oversized capture must fail envelope decoding, not hang.
	cmd := writeScript(t, "agent.sh", `cat > /dev/null
head -c 65536 /dev/zero | tr '\0' 'a'`)

	iv := New(1024)
	res := iv.Invoke(Request{
		SessionID: "s1",
		Command:   cmd,
		Input:     json.RawMessage(`{}`),
		Env:       EnvConfig{Provider: "p1"},
		Timeout:   5 * time.Second,
	})

	if res.Success {
		t.Fatal("Invoke succeeded on oversized non-JSON output")
	}
	var malformed *MalformedOutputError
	if !errors.As(res.Err, &malformed) {
		t.Fatalf("error = %T (%v), want *MalformedOutputError", res.Err, res.Err)
	}
}

func TestKillAll(t *testing.T) {
	cmd := writeScript(t, "agent.sh", `sleep 30`)

	iv := New(0)
	done := make(chan *Result, 1)
	go func() {
		done <- iv.Invoke(Request{
			SessionID: "long",
			Command:   cmd,
			Input:     json.RawMessage(`{}`),
			Env:       EnvConfig{Provider: "p1"},
			Timeout:   time.Minute,
		})
	}()

	// Wait for the process to be tracked.
	deadline := time.Now().Add(5 * time.Second)
	for iv.PoolSize() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("process never appeared in the table")
		}
		time.Sleep(10 * time.Millisecond)
	}

	killed := iv.KillAll()
	if len(killed) != 1 || killed[0] != "long" {
		t.Errorf("KillAll = %v, want [long]", killed)
	}

	select {
	case res := <-done:
		if res.Success {
			t.Error("killed attempt reported success")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Invoke did not return after KillAll")
	}
	if iv.PoolSize() != 0 {
		t.Errorf("PoolSize after KillAll = %d, want 0", iv.PoolSize())
	}
}

func TestEnvConfig_Environ(t *testing.T) {
	tests := []struct {
		name string
		cfg  EnvConfig
		want []string
	}{
		{
			name: "provider only",
			cfg:  EnvConfig{Provider: "p1"},
			want: []string{"AGENT_PROVIDER=p1"},
		},
		{
			name: "all fields",
			cfg: EnvConfig{
				Provider:     "p1",
				Model:        "m1",
				Temperature:  0.7,
				MaxTokens:    256,
				SystemPrompt: "be brief",
				TimeoutMS:    1500,
			},
			want: []string{
				"AGENT_PROVIDER=p1",
				"AGENT_MODEL=m1",
				"AGENT_TEMPERATURE=0.7",
				"AGENT_MAX_TOKENS=256",
				"AGENT_SYSTEM_PROMPT=be brief",
				"AGENT_TIMEOUT_MS=1500",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.Environ()
			if len(got) != len(tt.want) {
				t.Fatalf("Environ = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Environ[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
