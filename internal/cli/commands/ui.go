package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sorlineage/internal/ui"
)

// UIOptions holds options for the ui command.
type UIOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
	Dev       bool
	FromState bool
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the lineage viewer",
		Long: `Start a local web server with the interactive lineage viewer.

Pick an output table and a record id, then click output columns to
highlight their input columns, transformation rules and sample examples.
The viewer reloads when the workbook changes on disk.`,
		Example: `  # Start the viewer on the default port
  sorlineage ui

  # Start on a custom port without opening a browser
  sorlineage ui --port 3000 --no-browser

  # Serve the last indexed snapshot
  sorlineage ui --from-state`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8766)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Reload when the workbook changes")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "Enable page hot reload endpoints")
	cmd.Flags().BoolVar(&opts.FromState, "from-state", false, "Serve the last indexed snapshot instead of the workbook")

	return cmd
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, EngineOptions{FromState: opts.FromState})
	if err != nil {
		return err
	}
	defer cleanup()

	// Get UI config with defaults
	uiCfg := cc.Cfg.GetUIConfig()

	// CLI flags override config file
	port := uiCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	autoOpen := uiCfg.AutoOpen
	if opts.NoBrowser {
		autoOpen = false
	}

	watch := uiCfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}
	if opts.FromState {
		watch = false
	}

	server := ui.NewServer(ui.Config{
		Engine:        cc.Engine,
		Port:          port,
		Watch:         watch,
		Dev:           opts.Dev,
		SessionSecret: sessionSecret(),
		Logger:        cc.Logger,
	})

	url := fmt.Sprintf("http://localhost:%d", port)
	if autoOpen {
		go openBrowser(url)
	}

	r := cc.Renderer
	b := cc.Engine.Current()
	r.Success(fmt.Sprintf("Loaded %d sheets from %s", len(b.Sheets), b.Location))
	r.Println("Serving lineage viewer on " + url)
	r.Muted("Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	return server.Serve(ctx)
}

// sessionSecret returns SORLINEAGE_SESSION_SECRET, or a random secret that
// lives as long as the process. Highlight state then resets on restart.
func sessionSecret() string {
	if secret := os.Getenv("SORLINEAGE_SESSION_SECRET"); secret != "" {
		return secret
	}
	return uuid.NewString() + uuid.NewString()
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
