package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dudeperfectdwag/widgetcraft/pkg/cli"
	"github.com/dudeperfectdwag/widgetcraft/pkg/widget"
)

var widgetCmd = &cobra.Command{
	Use:   "widget",
	Short: "Manage stored widget definitions",
	Long: `Manage stored widget definitions.

A definition carries the script text, an optional refresh cadence and notes.
Definitions live in the context's widget store and travel between machines
as JSON files (import/export).`,
}

var (
	widgetNewName       string
	widgetNewScriptFile string
	widgetNewRefresh    time.Duration
	widgetNewNotes      string
)

var widgetNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a widget from a script file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(widgetNewScriptFile)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}

		def := widget.New(widgetNewName, string(data))
		def.Refresh = widget.RefreshInterval(widgetNewRefresh)
		def.Notes = widgetNewNotes

		store, err := openCurrentStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Put(cmd.Context(), def); err != nil {
			return err
		}
		cli.PrintSuccess("Widget %q created: %s", def.Name, def.ID)
		return nil
	},
}

var widgetGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a stored widget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCurrentStore()
		if err != nil {
			return err
		}
		defer store.Close()

		def, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return outputResult(def, getOutputFile(), isJSONOutput())
	},
}

var widgetListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored widgets",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCurrentStore()
		if err != nil {
			return err
		}
		defer store.Close()

		defs, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if isJSONOutput() {
			return outputResult(defs, getOutputFile(), true)
		}
		if len(defs) == 0 {
			fmt.Println("No widgets stored")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tREFRESH\tUPDATED")
		for _, def := range defs {
			refresh := "-"
			if def.Refresh > 0 {
				refresh = def.Refresh.String()
			}
			updated := time.UnixMilli(def.UpdatedAt).Format(time.RFC3339)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", def.ID, def.Name, refresh, updated)
		}
		return w.Flush()
	},
}

var widgetDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a stored widget",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCurrentStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Widget %s deleted", args[0])
		return nil
	},
}

var widgetImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import a widget definition file",
	Long: `Import a widget definition from a JSON file.

Hand-edited files are accepted: trailing commas and similar damage are
repaired before validation. The imported widget gets a fresh ID unless the
file carries one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read definition: %w", err)
		}
		def, err := widget.Import(data)
		if err != nil {
			return err
		}

		store, err := openCurrentStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Put(cmd.Context(), def); err != nil {
			return err
		}
		cli.PrintSuccess("Widget %q imported: %s", def.Name, def.ID)
		return nil
	},
}

var widgetExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a widget as a definition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCurrentStore()
		if err != nil {
			return err
		}
		defer store.Close()

		def, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		data, err := widget.Export(def)
		if err != nil {
			return err
		}
		return cli.OutputBytes(data, getOutputFile())
	},
}

func init() {
	widgetNewCmd.Flags().StringVar(&widgetNewName, "name", "", "widget name (required)")
	widgetNewCmd.Flags().StringVar(&widgetNewScriptFile, "script-file", "", "path to the script source (required)")
	widgetNewCmd.Flags().DurationVar(&widgetNewRefresh, "refresh", 0, "refresh cadence, e.g. 30s, 5m")
	widgetNewCmd.Flags().StringVar(&widgetNewNotes, "notes", "", "free-form notes")
	_ = widgetNewCmd.MarkFlagRequired("name")
	_ = widgetNewCmd.MarkFlagRequired("script-file")

	widgetCmd.AddCommand(widgetNewCmd)
	widgetCmd.AddCommand(widgetGetCmd)
	widgetCmd.AddCommand(widgetListCmd)
	widgetCmd.AddCommand(widgetDeleteCmd)
	widgetCmd.AddCommand(widgetImportCmd)
	widgetCmd.AddCommand(widgetExportCmd)
}

// openCurrentStore opens the widget store of the selected context.
func openCurrentStore() (widget.Store, error) {
	cctx, err := currentContext()
	if err != nil {
		return nil, err
	}
	return openStore(cctx)
}
