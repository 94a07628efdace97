// Command agentexec is the CLI for the agent execution engine: it runs
// single or batched executions against the configured providers and inspects
// provider configuration.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agentexec-dev/agentexec"
	"github.com/agentexec-dev/agentexec/pkg/config"
	"github.com/agentexec-dev/agentexec/pkg/observability"
)

// Version is set via ldflags.
var Version = "dev"

var (
	configFile  string
	metricsPort int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "agentexec",
		Short:         "Agent execution orchestration engine",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "agentexec.yaml", "engine configuration file")
	rootCmd.PersistentFlags().IntVar(&metricsPort, "metrics-port", 0, "serve /metrics and /health on this port (0 = disabled)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newProvidersCmd())
	rootCmd.AddCommand(newValidateCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// setup builds the engine and starts observability.
func setup() (*agentexec.Engine, func(), error) {
	observability.InitMetrics()
	if err := observability.InitTracingFromEnv(); err != nil {
		return nil, nil, fmt.Errorf("init tracing: %w", err)
	}

	engine, err := agentexec.NewFromConfigFile(configFile)
	if err != nil {
		return nil, nil, err
	}

	var obsServer *observability.Server
	if metricsPort > 0 {
		obsServer = observability.NewServer(metricsPort)
		go func() {
			if err := obsServer.Start(); err != nil {
				log.Printf("metrics server error: %v", err)
			}
		}()
	}

	cleanup := func() {
		if err := engine.Shutdown(); err != nil {
			log.Printf("engine shutdown error: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if obsServer != nil {
			_ = obsServer.Shutdown(ctx)
		}
		_ = observability.ShutdownTracing(ctx)
	}

	return engine, cleanup, nil
}

func newRunCmd() *cobra.Command {
	var (
		agentID     string
		input       string
		inputFile   string
		shapeFile   string
		providerID  string
		timeout     time.Duration
		maxAttempts int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one agent execution and print the response",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readInput(input, inputFile)
			if err != nil {
				return err
			}
			shape, err := readShape(shapeFile)
			if err != nil {
				return err
			}

			engine, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			resp, err := engine.Execute(ctx, agentID, payload, shape, agentexec.Options{
				Provider:    providerID,
				Timeout:     timeout,
				MaxAttempts: maxAttempts,
			})
			if err != nil {
				return err
			}

			return printJSON(resp)
		},
	}

	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "agent identifier (required)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "input payload as inline JSON")
	cmd.Flags().StringVar(&inputFile, "input-file", "", "input payload file ('-' for stdin)")
	cmd.Flags().StringVar(&shapeFile, "shape-file", "", "expected output shape file (JSON)")
	cmd.Flags().StringVarP(&providerID, "provider", "p", "", "preferred provider")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-attempt timeout (0 = config default)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "retry ceiling (0 = config default)")
	_ = cmd.MarkFlagRequired("agent")

	return cmd
}

func newBatchCmd() *cobra.Command {
	var (
		agentID     string
		inputFile   string
		shapeFile   string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run one execution per line of a JSONL input file, concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(inputFile)
			if err != nil {
				return fmt.Errorf("open input file: %w", err)
			}
			defer func() { _ = f.Close() }()

			shape, err := readShape(shapeFile)
			if err != nil {
				return err
			}

			engine, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(concurrency)

			scanner := bufio.NewScanner(f)
			line := 0
			for scanner.Scan() {
				line++
				payload := json.RawMessage(scanner.Text())
				if len(payload) == 0 {
					continue
				}
				n := line
				g.Go(func() error {
					resp, err := engine.Execute(gctx, agentID, payload, shape, agentexec.Options{})
					if err != nil {
						return fmt.Errorf("line %d: %w", n, err)
					}
					return printJSON(resp)
				})
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input file: %w", err)
			}

			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "agent identifier (required)")
	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "JSONL file with one input payload per line (required)")
	cmd.Flags().StringVar(&shapeFile, "shape-file", "", "expected output shape file (JSON)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum concurrent executions")
	_ = cmd.MarkFlagRequired("agent")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Print configured providers and their health",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			return printJSON(engine.Statistics())
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the engine configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Printf("%s: configuration valid (%d providers)\n", configFile, len(cfg.Providers))
			return nil
		},
	}
}

// readInput returns the payload from the inline flag, a file, or stdin.
func readInput(inline, file string) (json.RawMessage, error) {
	switch {
	case inline != "":
		return json.RawMessage(inline), nil
	case file == "-":
		data, err := os.ReadFile("/dev/stdin")
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read input file: %w", err)
		}
		return data, nil
	default:
		return json.RawMessage(`{}`), nil
	}
}

// readShape loads a Shape from a JSON file; empty path means no validation.
func readShape(file string) (agentexec.Shape, error) {
	if file == "" {
		return nil, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read shape file: %w", err)
	}
	var shape agentexec.Shape
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("parse shape file: %w", err)
	}
	return shape, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
