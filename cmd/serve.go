package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aselya-coder/PraktisiMengajar/internal/render"
	"github.com/aselya-coder/PraktisiMengajar/internal/server"
)

var (
	serveAddr     string
	secureCookies bool
)

const reloadDebounce = 500 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the site and the admin editor",
	Long: `The serve command loads the site content, then serves the public page, the
read-only content API and the admin editor. When layoutsDir is set, layout
changes on disk are picked up without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, appConfig, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		renderer, err := a.renderer()
		if err != nil {
			return err
		}
		authn, err := a.authenticator()
		if err != nil {
			return err
		}
		a.load(ctx)

		addr := appConfig.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := &http.Server{
			Addr: addr,
			Handler: server.New(a.store, renderer, authn,
				server.WithLogger(logger),
				server.WithSite(appConfig.SiteTitle, appConfig.BaseURL),
				server.WithStaticDir(appConfig.StaticDir),
				server.WithMetricsHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})),
				server.WithSecureCookies(secureCookies),
			).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       appConfig.Server.ReadTimeout,
			WriteTimeout:      appConfig.Server.WriteTimeout,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("serving site", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		if renderer.Dir() != "" {
			g.Go(func() error {
				return watchLayouts(gctx, renderer)
			})
		}
		return g.Wait()
	},
}

// watchLayouts re-parses layouts after changes under the overlay directory
// settle. It returns when ctx is done.
func watchLayouts(ctx context.Context, r *render.Renderer) error {
	log := logger.With(zap.String("module", "watch"))
	root := r.Dir()
	if !isDir(root) {
		log.Info("layouts directory not found, not watching", zap.String("dir", root))
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Warn("error walking layouts", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				log.Warn("failed to watch", zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info("watching layouts", zap.String("dir", root))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debug("change detected", zap.String("path", event.Name), zap.Stringer("op", event.Op))
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := watcher.Add(event.Name); err != nil {
					log.Warn("failed to watch", zap.String("path", event.Name), zap.Error(err))
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				if err := r.Reload(); err != nil {
					log.Error("layout reload failed, keeping previous layouts", zap.Error(err))
					return
				}
				log.Info("layouts reloaded")
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "address to listen on (overrides server.addr)")
	serveCmd.Flags().BoolVar(&secureCookies, "secure-cookies", false, "mark session cookies Secure (serve behind TLS)")
	rootCmd.AddCommand(serveCmd)
}
