package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dudeperfectdwag/widgetcraft/pkg/cli"
)

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	outputJSON  bool
	verbose     bool

	// Global configuration
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "widgetcraft",
	Short: "Widget script runner and live preview tool",
	Long: `widgetcraft - run, preview and manage small display-widget scripts.

A widget script is a JavaScript snippet that reads data fields through a
context object and returns one output: a text value, a list, or a shape.
Scripts run inside a hardened sandbox with a hard time budget, so a broken
or hostile script reports an error instead of taking the process down.

Configuration is stored in ~/.widgetcraft/ and supports multiple contexts,
similar to kubectl's context management. A context names a widget store,
a data feed and the preview server address.

Examples:
  # Run a script once against inline data
  widgetcraft run clock.js

  # Run with a request file carrying data values and limits
  widgetcraft run -f request.yaml --json

  # Live preview: re-run on every edit and data change
  widgetcraft watch clock.js --tui

  # Serve previews to editor clients over WebSocket
  widgetcraft serve --listen :8321 --script clock.js

  # Store a widget and run it by id
  widgetcraft widget new --name clock --script-file clock.js
  widgetcraft run --widget <id>
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging, initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is ~/.widgetcraft/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(widgetCmd)
	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func initConfig() {
	var err error
	globalConfig, err = cli.LoadConfigWithPath(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

// getConfig returns the global configuration
func getConfig() *cli.Config {
	return globalConfig
}

// currentContext returns the selected context. Unlike API clients, most
// widgetcraft commands work without one: no context means defaults.
func currentContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, nil
	}
	if contextName != "" {
		return cfg.GetContext(contextName)
	}
	if cfg.CurrentContext == "" {
		return nil, nil
	}
	return cfg.GetCurrentContext()
}

// getOutputFile returns the output file path
func getOutputFile() string {
	return outputFile
}

// isJSONOutput returns whether output should be JSON
func isJSONOutput() bool {
	return outputJSON
}

// outputResult outputs the result using cli package
func outputResult(result any, outputPath string, asJSON bool) error {
	format := cli.FormatYAML
	if asJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputPath,
	})
}

// printVerbose prints verbose output if enabled
func printVerbose(format string, args ...any) {
	cli.PrintVerbose(verbose, format, args...)
}
