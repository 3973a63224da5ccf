package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"studyflow/internal/backend"
	"studyflow/internal/config"
	"studyflow/internal/flow"
	"studyflow/internal/flows"
	"studyflow/internal/server"
)

var (
	// Global flags
	configPath string
	verbose    bool
	apiKey     string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "studyflow",
	Short: "StudyFlow - structured generation flows for study tools",
	Long: `StudyFlow turns student-facing requests into structured AI responses.

Each flow validates its input, renders a prompt from the matching variant,
invokes the generative backend with a response schema, and validates the
output before anything reaches the caller. Failures are reported as one of
six stable categories with fixed user-safe messages.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// serveCmd runs the HTTP server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the flow API over HTTP",
	Long: `Starts the HTTP server exposing every registered flow.

Routes:
  POST /v1/flows/{name}  invoke a flow with a JSON input object
  GET  /v1/flows         list registered flows
  GET  /healthz          health probe`,
	RunE: runServe,
}

// runCmd invokes a single flow from the command line
var runCmd = &cobra.Command{
	Use:   "run [flow]",
	Short: "Run one flow with JSON input from a file or stdin",
	Long: `Invokes a single flow and prints the structured result as JSON.

Example:
  echo '{"history":[{"role":"user","content":"What is osmosis?"}]}' | \
    studyflow run tutor-reply`,
	Args: cobra.ExactArgs(1),
	RunE: runOnce,
}

// flowsCmd lists registered flows
var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "List the registered flows",
	RunE:  listFlows,
}

var inputPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "studyflow.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "backend API key (overrides config and env)")

	runCmd.Flags().StringVarP(&inputPath, "input", "i", "", "read input JSON from file instead of stdin")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(flowsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildEngine loads config and assembles the engine with every flow
// registered. requireKey is false for commands that never call the
// backend.
func buildEngine(requireKey bool) (*flow.Engine, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if apiKey != "" {
		cfg.Backend.APIKey = apiKey
	}
	if requireKey {
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	client := backend.NewGeminiClientWithConfig(backend.GeminiConfig{
		APIKey:  cfg.Backend.APIKey,
		BaseURL: cfg.Backend.BaseURL,
		Model:   cfg.Backend.Model,
		Timeout: cfg.RequestTimeout(),
	}, logger)

	engine := flow.New(client,
		flow.WithLogger(logger),
		flow.WithTimeout(cfg.RequestTimeout()))
	if err := flows.Register(engine); err != nil {
		return nil, nil, err
	}
	return engine, cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	engine, cfg, err := buildEngine(true)
	if err != nil {
		return err
	}

	srv := server.New(engine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting",
			zap.String("listen", cfg.Server.Listen),
			zap.String("model", cfg.Backend.Model),
			zap.Int("flows", len(engine.Flows())))
		return srv.Start(cfg.Server.Listen)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runOnce(cmd *cobra.Command, args []string) error {
	engine, _, err := buildEngine(true)
	if err != nil {
		return err
	}

	var data []byte
	if inputPath != "" {
		data, err = os.ReadFile(inputPath)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("input is not a JSON object: %w", err)
	}

	result, err := engine.Run(cmd.Context(), args[0], input)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func listFlows(cmd *cobra.Command, args []string) error {
	engine, _, err := buildEngine(false)
	if err != nil {
		return err
	}
	for _, name := range engine.Flows() {
		f := engine.Lookup(name)
		fmt.Printf("%-26s %s\n", name, f.Description)
	}
	return nil
}
