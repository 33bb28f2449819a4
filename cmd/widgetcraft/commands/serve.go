package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dudeperfectdwag/widgetcraft/pkg/cli"
	"github.com/dudeperfectdwag/widgetcraft/pkg/preview"
	"github.com/dudeperfectdwag/widgetcraft/pkg/script"
)

var (
	serveListen     string
	serveScriptFile string
	serveWidgetID   string
	serveDebounce   time.Duration
	serveTick       time.Duration
	serveTimeoutMS  int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve live previews over HTTP and WebSocket",
	Long: `Serve the preview loop to editor clients.

Endpoints:
  /ws       WebSocket; every applied run is broadcast as a JSON update
  /preview  the newest applied update as JSON
  /script   GET the current source, POST a replacement (re-runs it)
  /healthz  liveness

The script comes from a file (--script, re-run on file changes) or a stored
widget (--widget). Data changes from the context's feed and the clock drive
re-runs the same way watch mode does.

Examples:
  widgetcraft serve --script clock.js
  widgetcraft serve --widget 7b0a... --listen 127.0.0.1:8321`,
	RunE: servePreviews,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default :8321, or the context's)")
	serveCmd.Flags().StringVar(&serveScriptFile, "script", "", "script file to serve")
	serveCmd.Flags().StringVar(&serveWidgetID, "widget", "", "stored widget to serve")
	serveCmd.Flags().DurationVar(&serveDebounce, "debounce", preview.DefaultDebounce, "delay between a change and the re-run it schedules")
	serveCmd.Flags().DurationVar(&serveTick, "tick", time.Minute, "clock field refresh interval")
	serveCmd.Flags().IntVar(&serveTimeoutMS, "timeout-ms", 0, "execution budget in milliseconds")
}

func servePreviews(cmd *cobra.Command, args []string) error {
	cctx, err := currentContext()
	if err != nil {
		return err
	}

	source, err := serveSource(cmd, cctx)
	if err != nil {
		return err
	}

	addr := serveListen
	if addr == "" && cctx != nil {
		addr = cctx.Listen
	}
	if addr == "" {
		addr = ":8321"
	}

	ws, err := buildWorkspace(cctx, nil)
	if err != nil {
		return err
	}
	opts := scriptOptions(cctx, serveTimeoutMS, nil, nil, true)
	runtime := script.New(script.WithOptions(*opts))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := preview.NewHub()
	defer hub.Close()

	svc := preview.NewService(runtime, ws.provider,
		preview.WithDebounce(serveDebounce),
		preview.WithOnUpdate(func(u preview.Update) { hub.Broadcast(u) }),
	)
	svc.Start()
	defer svc.Stop()

	// current mirrors the service's source for the /script GET handler.
	var srcMu sync.RWMutex
	current := source
	setSource := func(s string) {
		srcMu.Lock()
		current = s
		srcMu.Unlock()
		svc.SetScript(s)
	}
	setSource(source)

	go ws.clock.Tick(ctx, serveTick)
	if ws.feed != nil {
		go func() {
			if err := ws.feed.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				cli.PrintWarning("feed watch stopped: %v", err)
			}
		}()
	}
	if serveScriptFile != "" {
		if err := watchFile(ctx, serveScriptFile, func() {
			data, err := os.ReadFile(serveScriptFile)
			if err != nil {
				cli.PrintWarning("reload script: %v", err)
				return
			}
			setSource(string(data))
		}); err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/preview", func(w http.ResponseWriter, r *http.Request) {
		u := svc.Last()
		if u == nil {
			http.Error(w, "no run applied yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(u)
	})
	mux.HandleFunc("/script", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			srcMu.RLock()
			s := current
			srcMu.RUnlock()
			w.Header().Set("Content-Type", "text/javascript")
			_, _ = w.Write([]byte(s))
		case http.MethodPost:
			body := http.MaxBytesReader(w, r.Body, int64(script.DefaultMaxSourceBytes))
			data, err := io.ReadAll(body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
				return
			}
			setSource(string(data))
			w.WriteHeader(http.StatusAccepted)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	cli.PrintInfo("preview server listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// serveSource resolves the initial script text for serve mode.
func serveSource(cmd *cobra.Command, cctx *cli.Context) (string, error) {
	switch {
	case serveScriptFile != "" && serveWidgetID != "":
		return "", errors.New("--script and --widget are mutually exclusive")
	case serveScriptFile != "":
		data, err := os.ReadFile(serveScriptFile)
		if err != nil {
			return "", fmt.Errorf("read script: %w", err)
		}
		return string(data), nil
	case serveWidgetID != "":
		store, err := openStore(cctx)
		if err != nil {
			return "", err
		}
		defer store.Close()
		def, err := store.Get(cmd.Context(), serveWidgetID)
		if err != nil {
			return "", err
		}
		return def.Script, nil
	}
	return "", errors.New("no script: pass --script or --widget")
}
