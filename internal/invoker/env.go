package invoker

import (
	"fmt"
	"strconv"
)

// Environment variable names forming the process invocation contract.
// AgentProviderVar is the only one guaranteed to be present.
const (
	AgentProviderVar     = "AGENT_PROVIDER"
	AgentModelVar        = "AGENT_MODEL"
	AgentTemperatureVar  = "AGENT_TEMPERATURE"
	AgentMaxTokensVar    = "AGENT_MAX_TOKENS"
	AgentSystemPromptVar = "AGENT_SYSTEM_PROMPT"
	AgentTimeoutMSVar    = "AGENT_TIMEOUT_MS"
)

// EnvConfig is the single source of truth for per-call configuration passed
// to the agent process. Fields map one-to-one onto the AGENT_* environment
// variables; zero-valued optional fields are omitted.
type EnvConfig struct {
	Provider     string
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	TimeoutMS    int64
}

// Environ renders the config as KEY=value pairs for exec.Cmd.Env.
func (c EnvConfig) Environ() []string {
	env := []string{AgentProviderVar + "=" + c.Provider}
	if c.Model != "" {
		env = append(env, AgentModelVar+"="+c.Model)
	}
	if c.Temperature > 0 {
		env = append(env, fmt.Sprintf("%s=%g", AgentTemperatureVar, c.Temperature))
	}
	if c.MaxTokens > 0 {
		env = append(env, AgentMaxTokensVar+"="+strconv.Itoa(c.MaxTokens))
	}
	if c.SystemPrompt != "" {
		env = append(env, AgentSystemPromptVar+"="+c.SystemPrompt)
	}
	if c.TimeoutMS > 0 {
		env = append(env, AgentTimeoutMSVar+"="+strconv.FormatInt(c.TimeoutMS, 10))
	}
	return env
}
