package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/ocode/internal/config"
	"github.com/haasonsaas/ocode/internal/gate"
	"github.com/haasonsaas/ocode/internal/logger"
	"github.com/haasonsaas/ocode/internal/orchestrator"
	"github.com/haasonsaas/ocode/internal/sanitizer"
	"github.com/haasonsaas/ocode/internal/tools"
)

var (
	configFile  string
	logLevel    string
	workingDir  string
	verbose     bool
	interactive bool
)

var rootCmd = &cobra.Command{
	Use:   "ocode",
	Short: "Sandboxed tool execution for coding agents",
	Long: `ocode runs agent tool calls through a supervised pipeline:
command sanitization, explicit confirmation for dangerous operations,
process-group supervision with timeouts and output caps, and a uniform
JSON result for every outcome.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&workingDir, "dir", "d", "", "Working directory for tool execution")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr at debug level")
	rootCmd.PersistentFlags().BoolVarP(&interactive, "interactive", "i", false,
		"Prompt on stdin when a command needs confirmation (default: deny)")

	rootCmd.AddCommand(newExecCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newCheckCmd())
}

// loadConfig merges file config with command-line overrides and initializes
// logging.
func loadConfig() (*config.Config, error) {
	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if workingDir != "" {
		cfg.WorkingDir = workingDir
	}

	if verbose {
		logger.SetGlobal(logger.NewWithWriter(logger.LevelDebug, os.Stderr, ""))
	} else if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	// Dependencies that log via log/slog land in the same place.
	slog.SetDefault(slog.New(logger.NewSlogHandler(logger.Global())))

	return cfg, nil
}

func buildRegistry(cfg *config.Config) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(tools.NewShellTool(cfg.WorkingDir, cfg.Execution))
	reg.Register(tools.NewScriptTool(cfg.WorkingDir, cfg.Execution))
	reg.Register(tools.NewReadFileTool(cfg.WorkingDir))
	reg.Register(tools.NewWriteFileTool(cfg.WorkingDir))
	reg.Register(tools.NewLsTool(cfg.WorkingDir))
	return reg
}

// stdinConfirm prompts the user on the terminal for one approve/deny
// decision. Anything but an explicit "y" or "yes" denies.
func stdinConfirm(ctx context.Context, command, reason string) (bool, error) {
	fmt.Fprintf(os.Stderr, "Command flagged as dangerous (%s):\n  %s\nProceed? [y/N] ", reason, command)

	answerCh := make(chan string, 1)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		answerCh <- strings.ToLower(strings.TrimSpace(line))
	}()

	select {
	case answer := <-answerCh:
		return answer == "y" || answer == "yes", nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func newOrchestrator(cfg *config.Config) *orchestrator.Orchestrator {
	var callback gate.Callback
	if interactive {
		callback = stdinConfirm
	}
	var gateOpts []gate.Option
	if cfg.ConfirmTimeoutSeconds > 0 {
		gateOpts = append(gateOpts,
			gate.WithTimeout(time.Duration(cfg.ConfirmTimeoutSeconds)*time.Second))
	}

	return orchestrator.New(buildRegistry(cfg), orchestrator.Options{
		MaxConcurrent: cfg.Execution.MaxConcurrent,
		Gate:          gate.New(callback, gateOpts...),
	})
}

func printResult(res *tools.ExecutionResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	if !res.Success {
		os.Exit(1)
	}
	return nil
}

func newExecCmd() *cobra.Command {
	var (
		toolName      string
		argPairs      []string
		argsJSON      string
		timeout       float64
		killTimeout   float64
		maxOutputSize float64
		confirmed     bool
	)

	cmd := &cobra.Command{
		Use:   "exec [command]",
		Short: "Execute one tool invocation and print its result as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			arguments, err := parseArguments(argPairs, argsJSON)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				arguments["command"] = args[0]
			}

			orch := newOrchestrator(cfg)
			defer orch.Close()

			ctx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			res := orch.Submit(ctx, &orchestrator.Request{
				Tool:          toolName,
				Arguments:     arguments,
				WorkingDir:    workingDir,
				Timeout:       timeout,
				KillTimeout:   killTimeout,
				MaxOutputSize: maxOutputSize,
				Confirmed:     confirmed,
			})
			return printResult(res)
		},
	}

	cmd.Flags().StringVarP(&toolName, "tool", "t", tools.ToolNameShell, "Tool to invoke")
	cmd.Flags().StringArrayVar(&argPairs, "arg", nil, "Tool argument as key=value (repeatable)")
	cmd.Flags().StringVar(&argsJSON, "args-json", "", "Tool arguments as a JSON object")
	cmd.Flags().Float64Var(&timeout, "timeout", 0, "Execution timeout in seconds")
	cmd.Flags().Float64Var(&killTimeout, "kill-timeout", 0, "Grace window before forced kill, in seconds")
	cmd.Flags().Float64Var(&maxOutputSize, "max-output", 0, "Output cap (bytes, or MB below 16)")
	cmd.Flags().BoolVar(&confirmed, "confirmed", false, "Skip the confirmation gate for this invocation")

	return cmd
}

// parseArguments combines --args-json with repeated --arg key=value pairs;
// the pairs win on conflict.
func parseArguments(pairs []string, argsJSON string) (map[string]interface{}, error) {
	arguments := map[string]interface{}{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &arguments); err != nil {
			return nil, fmt.Errorf("invalid --args-json: %w", err)
		}
	}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --arg %q, expected key=value", pair)
		}
		arguments[key] = value
	}
	return arguments, nil
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg := buildRegistry(cfg)
			for _, name := range reg.Names() {
				tool, _ := reg.Get(name)
				fmt.Printf("%-12s %s\n", name, tool.Description())
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "check <command>",
		Short: "Run a command string through the sanitizer without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sanitizer.New()
			if platform != "" {
				s = sanitizer.NewForPlatform(platform)
			}

			verdict := s.Sanitize(args[0])
			report := map[string]interface{}{
				"is_safe":  verdict.IsSafe,
				"platform": s.Platform(),
			}
			if verdict.Reason != "" {
				report["reason"] = verdict.Reason
			}
			if verdict.IsSafe {
				needs, reason := s.RequiresConfirmation(verdict.Cleaned)
				report["requires_confirmation"] = needs
				if needs {
					report["reason"] = reason
				}
			}

			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "Rule set to use (windows or linux); defaults to the host")
	return cmd
}
