package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dudeperfectdwag/widgetcraft/pkg/cli"
	"github.com/dudeperfectdwag/widgetcraft/pkg/preview"
	"github.com/dudeperfectdwag/widgetcraft/pkg/script"
)

var (
	watchTUI       bool
	watchDebounce  time.Duration
	watchTick      time.Duration
	watchTimeoutMS int
	watchConsole   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <script.js>",
	Short: "Re-run a script as it and its data change",
	Long: `Watch a script file and re-run it whenever the file or the data it
reads changes. Edits are debounced; a slow stale run never overwrites a
newer result. After each run only the fields the script actually read
trigger re-runs.

Examples:
  widgetcraft watch clock.js
  widgetcraft watch clock.js --tui --tick 1s
  widgetcraft watch weather.js --debounce 100ms`,
	Args: cobra.ExactArgs(1),
	RunE: watchScript,
}

func init() {
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "render a live terminal frame instead of log lines")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", preview.DefaultDebounce, "delay between a change and the re-run it schedules")
	watchCmd.Flags().DurationVar(&watchTick, "tick", time.Minute, "clock field refresh interval")
	watchCmd.Flags().IntVar(&watchTimeoutMS, "timeout-ms", 0, "execution budget in milliseconds")
	watchCmd.Flags().BoolVar(&watchConsole, "console", false, "allow console logging inside the script")
}

func watchScript(cmd *cobra.Command, args []string) error {
	scriptPath := args[0]
	source, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	cctx, err := currentContext()
	if err != nil {
		return err
	}
	ws, err := buildWorkspace(cctx, nil)
	if err != nil {
		return err
	}
	opts := scriptOptions(cctx, watchTimeoutMS, nil, nil, watchConsole)
	runtime := script.New(script.WithOptions(*opts))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var render func(preview.Update)
	if watchTUI {
		render = newFrameRenderer(filepath.Base(scriptPath))
	} else {
		render = printUpdate
	}

	svc := preview.NewService(runtime, ws.provider,
		preview.WithDebounce(watchDebounce),
		preview.WithOnUpdate(render),
	)
	svc.Start()
	defer svc.Stop()
	svc.SetScript(string(source))

	go ws.clock.Tick(ctx, watchTick)
	if ws.feed != nil {
		go func() {
			if err := ws.feed.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				cli.PrintWarning("feed watch stopped: %v", err)
			}
		}()
	}

	if err := watchFile(ctx, scriptPath, func() {
		data, err := os.ReadFile(scriptPath)
		if err != nil {
			cli.PrintWarning("reload script: %v", err)
			return
		}
		svc.SetScript(string(data))
	}); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

// watchFile watches path's parent directory and invokes reload on changes to
// the file. Watching the directory survives editors that replace the file on
// save instead of writing in place.
func watchFile(ctx context.Context, path string, reload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	abs, _ := filepath.Abs(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				evAbs, _ := filepath.Abs(ev.Name)
				if evAbs != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				cli.PrintWarning("watch error: %v", err)
			}
		}
	}()
	return nil
}

// printUpdate logs one applied run as a single line.
func printUpdate(u preview.Update) {
	for _, line := range u.Result.Logs {
		fmt.Printf("  log: %s\n", line)
	}
	if u.Result.OK {
		fmt.Printf("#%d %s (%s, %d keys)\n",
			u.Seq, describeOutput(u.Result.Output), cli.FormatDuration(u.Result.ElapsedMS), len(u.Keys))
		return
	}
	e := u.Result.Err
	if e.Line > 0 {
		fmt.Printf("#%d %s at line %d: %s (%s)\n", u.Seq, e.Kind, e.Line, e.Message, cli.FormatDuration(u.Result.ElapsedMS))
	} else {
		fmt.Printf("#%d %s: %s (%s)\n", u.Seq, e.Kind, e.Message, cli.FormatDuration(u.Result.ElapsedMS))
	}
}

// newFrameRenderer returns an update handler that redraws a full-screen
// frame on every applied run.
func newFrameRenderer(title string) func(preview.Update) {
	styles := cli.NewStyles(cli.DefaultTheme)
	runs := cli.NewLogBuffer(64)
	var output []string
	var logs []string

	return func(u preview.Update) {
		status := "ok"
		failed := !u.Result.OK
		if failed {
			status = string(u.Result.Err.Kind)
			output = []string{u.Result.Err.Error()}
		} else {
			output = outputLines(u.Result.Output)
		}
		logs = u.Result.Logs
		_ = runs.Add(fmt.Sprintf("#%d %s %s", u.Seq, status, cli.FormatDuration(u.Result.ElapsedMS)))

		frame := cli.Frame{
			Styles: styles,
			Title:  title,
			Status: status,
			Failed: failed,
			Sections: []cli.Section{
				{Label: "Output", Content: func() []string { return output }},
				{Label: "Logs", Content: func() []string { return logs }},
				{Label: "Runs", Content: func() []string { return runs.Snapshot() }},
			},
			Help: "ctrl-c to quit",
		}
		// Home the cursor and clear before redrawing.
		fmt.Print("\033[H\033[2J")
		fmt.Println(frame.Render(80, 24))
	}
}

// describeOutput renders an output for single-line display.
func describeOutput(o *script.Output) string {
	switch o.Kind {
	case script.KindText:
		return fmt.Sprintf("text %q", o.Value)
	case script.KindList:
		return fmt.Sprintf("list (%d items)", len(o.Items))
	case script.KindShape:
		return fmt.Sprintf("shape %s", o.Shape)
	}
	return string(o.Kind)
}

// outputLines renders an output for the frame's output section.
func outputLines(o *script.Output) []string {
	switch o.Kind {
	case script.KindText:
		return []string{o.Value}
	case script.KindList:
		lines := make([]string, 0, len(o.Items))
		for _, item := range o.Items {
			lines = append(lines, "• "+item.Value)
		}
		return lines
	case script.KindShape:
		return []string{"shape: " + string(o.Shape)}
	}
	return nil
}
