package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dudeperfectdwag/widgetcraft/pkg/cli"
	"github.com/dudeperfectdwag/widgetcraft/pkg/datasource"
	"github.com/dudeperfectdwag/widgetcraft/pkg/script"
)

// runRequest is the request-file shape for the run command. Every field is
// optional; flags override file values.
type runRequest struct {
	// Script is the source text inline.
	Script string `json:"script" yaml:"script"`

	// ScriptFile is a path to the source, relative to the cwd.
	ScriptFile string `json:"script_file" yaml:"script_file"`

	// Now fixes the context timestamp (Unix milliseconds). Zero means the
	// wall clock at invocation.
	Now int64 `json:"now" yaml:"now"`

	// Data holds inline field values, e.g. {"weather.temp": 21.5}.
	Data map[string]any `json:"data" yaml:"data"`

	// TimeoutMS overrides the execution budget.
	TimeoutMS int `json:"timeout_ms" yaml:"timeout_ms"`

	// Allow replaces the allowed-globals list; Forbid extends the deny list.
	Allow  []string `json:"allow" yaml:"allow"`
	Forbid []string `json:"forbid" yaml:"forbid"`

	// Console adds the capturing console to the sandbox surface.
	Console bool `json:"console" yaml:"console"`
}

var (
	runRequestFile string
	runNow         int64
	runTimeoutMS   int
	runSetValues   []string
	runConsole     bool
	runWidgetID    string
)

var runCmd = &cobra.Command{
	Use:   "run [script.js]",
	Short: "Execute a widget script once and print the result",
	Long: `Execute a widget script once against a data snapshot.

The script is the body of a function receiving a read-only 'context'
argument. It must return one output literal:

  return { type: 'text', value: 'Hello' };
  return { type: 'list', items: [{value: 'a'}, {value: 'b'}] };
  return { type: 'shape', shape: 'circle' };

The source comes from a file argument, a request file (-f), or a stored
widget (--widget). Data fields come from the context's feed, the built-in
clock, and --set overrides. Failures are printed as classified errors, not
stack traces; the command itself only fails when it cannot assemble the run.

Examples:
  widgetcraft run clock.js
  widgetcraft run greeting.js --now 1756080000000
  widgetcraft run -f request.yaml --json
  widgetcraft run --widget 7b0a... --set weather.temp=21.5
  cat request.json | widgetcraft run -f -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func init() {
	runCmd.Flags().StringVarP(&runRequestFile, "file", "f", "", "request file (YAML/JSON, '-' for stdin)")
	runCmd.Flags().Int64Var(&runNow, "now", 0, "fixed context timestamp (Unix milliseconds)")
	runCmd.Flags().IntVar(&runTimeoutMS, "timeout-ms", 0, "execution budget in milliseconds")
	runCmd.Flags().StringArrayVar(&runSetValues, "set", nil, "inline data value key=value (repeatable)")
	runCmd.Flags().BoolVar(&runConsole, "console", false, "allow console logging inside the script")
	runCmd.Flags().StringVar(&runWidgetID, "widget", "", "run the script of a stored widget")
}

func runScript(cmd *cobra.Command, args []string) error {
	var req runRequest
	if runRequestFile != "" {
		if err := cli.LoadRequest(runRequestFile, &req); err != nil {
			return err
		}
	}

	source, err := resolveSource(cmd, args, &req)
	if err != nil {
		return err
	}

	inline := req.Data
	overrides, err := parseSetValues(runSetValues)
	if err != nil {
		return err
	}
	if len(overrides) > 0 {
		if inline == nil {
			inline = overrides
		} else {
			for k, v := range overrides {
				inline[k] = v
			}
		}
	}

	cctx, err := currentContext()
	if err != nil {
		return err
	}
	ws, err := buildWorkspace(cctx, inline)
	if err != nil {
		return err
	}

	timeoutMS := req.TimeoutMS
	if runTimeoutMS > 0 {
		timeoutMS = runTimeoutMS
	}
	opts := scriptOptions(cctx, timeoutMS, req.Allow, req.Forbid, req.Console || runConsole)

	now := req.Now
	if runNow != 0 {
		now = runNow
	}
	if now == 0 {
		now = time.Now().UnixMilli()
	}

	printVerbose("running %d-byte script, budget %s", len(source), opts.MaxExecution)

	runtime := script.New()
	sctx := datasource.Live(ws.provider, now)
	res := runtime.Run(cmd.Context(), source, sctx, opts)

	if err := outputResult(res, getOutputFile(), isJSONOutput()); err != nil {
		return err
	}
	if !res.OK {
		// The classified failure was already printed as data; the returned
		// error only sets the exit code for shell callers.
		return errScriptFailed
	}
	return nil
}

// errScriptFailed makes 'run' exit nonzero when the script itself failed.
var errScriptFailed = errors.New("script failed")

// resolveSource picks the script text: stored widget, file argument, request
// file inline text, or request file path, in that priority order.
func resolveSource(cmd *cobra.Command, args []string, req *runRequest) (string, error) {
	if runWidgetID != "" {
		cctx, err := currentContext()
		if err != nil {
			return "", err
		}
		store, err := openStore(cctx)
		if err != nil {
			return "", err
		}
		defer store.Close()
		def, err := store.Get(cmd.Context(), runWidgetID)
		if err != nil {
			return "", err
		}
		return def.Script, nil
	}
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read script: %w", err)
		}
		return string(data), nil
	}
	if req.Script != "" {
		return req.Script, nil
	}
	if req.ScriptFile != "" {
		data, err := os.ReadFile(req.ScriptFile)
		if err != nil {
			return "", fmt.Errorf("read script: %w", err)
		}
		return string(data), nil
	}
	return "", errors.New("no script: pass a file argument, --widget, or a request with script/script_file")
}
