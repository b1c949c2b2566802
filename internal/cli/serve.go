package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"dyphal/internal/mediatypes"
	"dyphal/internal/metrics"
	"dyphal/internal/middleware"
	"dyphal/internal/server"
	"dyphal/internal/startup"
)

func (a *app) serveCommand() *cobra.Command {
	var (
		addr    string
		copyURL bool
	)

	cmd := &cobra.Command{
		Use:   "serve DIR",
		Short: "Preview an album directory in a browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			startTime := time.Now()
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Preview.Addr
			}

			startup.PrintBanner(cmd.ErrOrStderr())
			metrics.InitializeMetrics()

			srv, err := server.New(dir, server.Config{
				Addr:    addr,
				Logging: middleware.DefaultLoggingConfig(),
			})
			if err != nil {
				return err
			}
			startup.LogHTTPRoutes(srv.Router(), dir)

			ln, err := srv.Listen()
			if err != nil {
				return err
			}

			base := server.URL(ln.Addr())
			startup.LogServerStarted(base, time.Since(startTime))
			url := base + albumPage(dir)
			fmt.Fprintln(cmd.OutOrStdout(), url)
			if copyURL {
				copyToClipboard(url)
			}

			ctx, stop := withSignals(cmd.Context())
			defer stop()
			go func() {
				<-ctx.Done()
				if cmd.Context().Err() == nil {
					startup.LogShutdownInitiated("interrupt")
				}
			}()

			if err := srv.Serve(ctx, ln); err != nil {
				return err
			}
			startup.LogShutdownComplete()
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from configuration)")
	cmd.Flags().BoolVar(&copyURL, "copy-url", false, "copy the album URL to the clipboard")
	return cmd
}

// albumPage returns the viewer page for the first album in dir,
// relative to dir, or "" when dir holds no album.
func albumPage(dir string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, "*"+mediatypes.AlbumExtension))
	if len(matches) == 0 {
		return ""
	}
	return "index.html#" + mediatypes.WebFileName(filepath.Base(matches[0]))
}

func copyToClipboard(text string) {
	if clipboard.Unsupported {
		log.Warn("no clipboard is available")
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		log.Warn("could not copy to the clipboard: %v", err)
		return
	}
	log.Info("copied %s to the clipboard", text)
}

// withSignals returns a context cancelled by an interrupt.
func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
