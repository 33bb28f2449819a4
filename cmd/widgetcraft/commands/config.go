package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dudeperfectdwag/widgetcraft/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

A context names a workspace: the widget store directory, the data feed
document and rules backing previews, and the preview server address.

Configuration is stored in ~/.widgetcraft/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name.

Example:
  widgetcraft config add-context home --feed /var/run/house/state.json --rules ~/widgets/rules.yaml
  widgetcraft config add-context dev --data-dir ./widgets --listen 127.0.0.1:8321`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		dataDir, err := cmd.Flags().GetString("data-dir")
		if err != nil {
			return fmt.Errorf("failed to read 'data-dir' flag: %w", err)
		}
		feed, err := cmd.Flags().GetString("feed")
		if err != nil {
			return fmt.Errorf("failed to read 'feed' flag: %w", err)
		}
		rules, err := cmd.Flags().GetString("rules")
		if err != nil {
			return fmt.Errorf("failed to read 'rules' flag: %w", err)
		}
		listen, err := cmd.Flags().GetString("listen")
		if err != nil {
			return fmt.Errorf("failed to read 'listen' flag: %w", err)
		}
		timeoutMS, err := cmd.Flags().GetInt("timeout-ms")
		if err != nil {
			return fmt.Errorf("failed to read 'timeout-ms' flag: %w", err)
		}

		ctx := &cli.Context{
			DataDir:   dataDir,
			Feed:      feed,
			Rules:     rules,
			Listen:    listen,
			TimeoutMS: timeoutMS,
		}

		cfg := getConfig()
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg := getConfig()
		if err := cfg.DeleteContext(name); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q deleted", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg := getConfig()
		if err := cfg.UseContext(name); err != nil {
			return err
		}

		cli.PrintSuccess("Switched to context %q", name)
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}

		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tFEED\tDATA_DIR\tLISTEN")

		for name, ctx := range cfg.Contexts {
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			feed := ctx.Feed
			if feed == "" {
				feed = "(none)"
			}
			dataDir := ctx.DataDir
			if dataDir == "" {
				dataDir = "(default)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", current, name, feed, dataDir, ctx.Listen)
		}

		w.Flush()
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		fmt.Printf("Config file: %s\n", cfg.Path())
		fmt.Printf("Current context: %s\n", cfg.CurrentContext)
		fmt.Printf("Contexts: %d\n", len(cfg.Contexts))

		if len(cfg.Contexts) > 0 {
			fmt.Println("\nContext details:")
			for name, ctx := range cfg.Contexts {
				fmt.Printf("\n  %s:\n", name)
				if ctx.DataDir != "" {
					fmt.Printf("    Data dir: %s\n", ctx.DataDir)
				}
				if ctx.Feed != "" {
					fmt.Printf("    Feed: %s\n", ctx.Feed)
				}
				if ctx.Rules != "" {
					fmt.Printf("    Rules: %s\n", ctx.Rules)
				}
				if ctx.Listen != "" {
					fmt.Printf("    Listen: %s\n", ctx.Listen)
				}
				if ctx.TimeoutMS > 0 {
					fmt.Printf("    Timeout: %s\n", cli.FormatDuration(int64(ctx.TimeoutMS)))
				}
			}
		}

		return nil
	},
}

func init() {
	// add-context flags
	configAddContextCmd.Flags().String("data-dir", "", "Widget store directory")
	configAddContextCmd.Flags().String("feed", "", "Data feed JSON document path")
	configAddContextCmd.Flags().String("rules", "", "Feed field rules YAML path")
	configAddContextCmd.Flags().String("listen", "", "Preview server address (host:port)")
	configAddContextCmd.Flags().Int("timeout-ms", 0, "Script execution budget in milliseconds")

	// Add subcommands
	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
