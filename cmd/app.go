package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/aselya-coder/PraktisiMengajar/internal/auth"
	"github.com/aselya-coder/PraktisiMengajar/internal/cache"
	"github.com/aselya-coder/PraktisiMengajar/internal/config"
	"github.com/aselya-coder/PraktisiMengajar/internal/model"
	"github.com/aselya-coder/PraktisiMengajar/internal/remote"
	"github.com/aselya-coder/PraktisiMengajar/internal/render"
	"github.com/aselya-coder/PraktisiMengajar/internal/store"
)

// app holds the components every command builds from appConfig.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	remote   *remote.Store
	store    *store.Store
	registry *prometheus.Registry
	closers  []io.Closer
}

// openRemote opens the hosted content table, or returns nil when no DSN is
// configured.
func openRemote(ctx context.Context, cfg config.Config, log *zap.Logger) (*remote.Store, error) {
	if !cfg.RemoteEnabled() {
		return nil, nil
	}
	r, err := remote.Open(cfg.Remote.Driver, cfg.Remote.DSN, remote.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if cfg.Remote.EnsureSchema {
		if err := r.EnsureSchema(ctx); err != nil {
			// an unreachable database is not fatal, the store falls back
			log.Warn("could not ensure content schema", zap.Error(err))
		}
	}
	return r, nil
}

func openCache(cfg config.Config) (store.Cache, io.Closer, error) {
	switch cfg.Cache.Backend {
	case config.CacheFile:
		f, err := cache.NewFile(cfg.Cache.Path)
		return f, nil, err
	case config.CacheRedis:
		client := cache.NewRedisClient(cache.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		r, err := cache.NewRedis(client, cfg.Cache.Redis.Key)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return r, client, nil
	default:
		return cache.Nop{}, nil, nil
	}
}

func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		log:      log,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	defaults, err := model.LoadDefaults(cfg.DefaultsFile)
	if err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	r, err := openRemote(ctx, cfg, log.With(zap.String("module", "remote")))
	if err != nil {
		return nil, fmt.Errorf("open remote: %w", err)
	}
	var rem store.Remote
	if r != nil {
		a.remote = r
		a.closers = append(a.closers, r)
		rem = r
	} else {
		log.Info("no remote.dsn configured, serving cached or default content")
	}

	c, closer, err := openCache(cfg)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.store = store.New(rem, c, defaults,
		store.WithLogger(log),
		store.WithMetrics(store.NewMetrics(a.registry)),
	)
	return a, nil
}

func (a *app) renderer() (*render.Renderer, error) {
	return render.New(
		render.WithLayoutsDir(a.cfg.LayoutsDir),
		render.WithLogger(a.log),
	)
}

func (a *app) authenticator() (*auth.Authenticator, error) {
	creds := make([]auth.Credential, 0, len(a.cfg.Admin.Users))
	for _, u := range a.cfg.Admin.Users {
		creds = append(creds, auth.Credential{Username: u.Username, Name: u.Name, PasswordHash: u.PasswordHash})
	}
	if len(creds) == 0 {
		a.log.Warn("no admin users configured, the editor is unreachable")
	}
	if a.cfg.Admin.SessionSecret == "" {
		a.log.Warn("admin.sessionSecret is empty, sessions end on restart")
	}
	return auth.New(creds, a.cfg.Admin.SessionSecret, a.cfg.Admin.SessionTTL, auth.WithLogger(a.log))
}

// load runs the fallback chain and logs where the content came from.
func (a *app) load(ctx context.Context) store.LoadResult {
	res := a.store.Load(ctx)
	fields := []zap.Field{zap.String("source", string(res.Source))}
	if res.RemoteErr != nil && !errors.Is(res.RemoteErr, store.ErrRemoteNotConfigured) {
		fields = append(fields, zap.NamedError("remote_error", res.RemoteErr))
	}
	if res.CacheErr != nil && !errors.Is(res.CacheErr, cache.ErrMiss) {
		fields = append(fields, zap.NamedError("cache_error", res.CacheErr))
	}
	if len(res.Missing) > 0 {
		fields = append(fields, zap.Stringers("missing", res.Missing))
	}
	if len(res.Ignored) > 0 {
		fields = append(fields, zap.Strings("ignored", res.Ignored))
	}
	a.log.Info("content loaded", fields...)
	return res
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
