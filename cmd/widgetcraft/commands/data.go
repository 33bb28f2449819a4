package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Inspect the data fields scripts can read",
	Long: `Inspect the data fields available to scripts in the current context:
the built-in clock fields and the fields extracted from the context's feed
document.`,
}

var dataListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List available fields and their current values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx, err := currentContext()
		if err != nil {
			return err
		}
		ws, err := buildWorkspace(cctx, nil)
		if err != nil {
			return err
		}

		keys := ws.provider.Keys()
		sort.Strings(keys)

		if isJSONOutput() {
			values := make(map[string]any, len(keys))
			for _, key := range keys {
				v, _ := ws.provider.GetValue(key)
				values[key] = v
			}
			return outputResult(values, getOutputFile(), true)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE")
		for _, key := range keys {
			v, _ := ws.provider.GetValue(key)
			fmt.Fprintf(w, "%s\t%v\n", key, v)
		}
		return w.Flush()
	},
}

var dataGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one field value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx, err := currentContext()
		if err != nil {
			return err
		}
		ws, err := buildWorkspace(cctx, nil)
		if err != nil {
			return err
		}

		v, ok := ws.provider.GetValue(args[0])
		if !ok {
			return fmt.Errorf("no such field: %s", args[0])
		}
		fmt.Printf("%v\n", v)
		return nil
	},
}

func init() {
	dataCmd.AddCommand(dataListCmd)
	dataCmd.AddCommand(dataGetCmd)
}
