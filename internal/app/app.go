// Package app wires configuration, logging, account lookup, the loader and
// report storage together for the command-line tools.
package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"crontabs/internal/account"
	"crontabs/internal/config"
	"crontabs/internal/crontab"
	"crontabs/internal/diag"
	"crontabs/internal/eventbus"
	"crontabs/internal/loader"
	"crontabs/internal/storage"
	logx "crontabs/pkg/logx"
)

// Overrides are command-line settings that win over the config file.
// Zero values leave the file's setting alone.
type Overrides struct {
	Dir      string
	System   *bool
	Owner    string
	Timezone string
	Workers  int
	LogLevel string
}

type App struct {
	cfg *config.Config

	logs *logx.Service
	log  logx.Logger

	sink     diag.Sink
	env      *crontab.Env
	bus      *eventbus.MemBus
	resolver account.Resolver
	loc      *time.Location
}

// New loads cfgPath (empty means defaults), applies ov and sets up logging.
func New(cfgPath string, ov Overrides) (*App, error) {
	cfg, err := config.NewManager(cfgPath).Load()
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, ov)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	env, err := baseEnv(cfg)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		logs:     logs,
		log:      log,
		sink:     diag.NewLogSink(log.With(logx.String("comp", "diag"))),
		env:      env,
		bus:      eventbus.New(),
		resolver: newResolver(cfg.Accounts),
		loc:      cfg.Location(),
	}
	log.Debug("configuration loaded",
		logx.String("config", cfgPath),
		logx.String("dir", cfg.Crontab.Dir),
		logx.Bool("system", cfg.Crontab.IsSystem()),
		logx.String("tz", a.loc.String()),
	)
	return a, nil
}

func applyOverrides(cfg *config.Config, ov Overrides) {
	if s := strings.TrimSpace(ov.Dir); s != "" {
		cfg.Crontab.Dir = s
	}
	if ov.System != nil {
		v := *ov.System
		cfg.Crontab.System = &v
	}
	if s := strings.TrimSpace(ov.Owner); s != "" {
		cfg.Crontab.Owner = s
	}
	if s := strings.TrimSpace(ov.Timezone); s != "" {
		cfg.Crontab.Timezone = s
	}
	if ov.Workers > 0 {
		cfg.Crontab.Workers = ov.Workers
	}
	if s := strings.TrimSpace(ov.LogLevel); s != "" {
		cfg.Logging.Level = s
	}
}

func newResolver(accounts []config.AccountConfig) account.Resolver {
	if len(accounts) == 0 {
		return account.OS{}
	}
	st := account.NewStatic()
	for _, a := range accounts {
		st.Add(account.Account{
			Name:  strings.TrimSpace(a.Name),
			UID:   a.UID,
			GID:   a.GID,
			Home:  a.Home,
			Shell: a.Shell,
		})
	}
	return st
}

// baseEnv reads the optional dotenv file in sorted name order, then layers
// the environment list on top.
func baseEnv(cfg *config.Config) (*crontab.Env, error) {
	env := crontab.NewEnv()
	if path := strings.TrimSpace(cfg.EnvironmentFile); path != "" {
		vals, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("environment_file %s: %w", path, err)
		}
		names := make([]string, 0, len(vals))
		for k := range vals {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			env.Set(k, vals[k])
		}
	}
	for _, kv := range crontab.ParseEnviron(cfg.Environment).Environ() {
		name, val, _ := strings.Cut(kv, "=")
		env.Set(name, val)
	}
	return env, nil
}

func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Logger() logx.Logger { return a.log }
func (a *App) Bus() *eventbus.MemBus { return a.bus }
func (a *App) Location() *time.Location { return a.loc }
func (a *App) Resolver() account.Resolver { return a.resolver }
func (a *App) Env() *crontab.Env { return a.env.Clone() }

// Loader returns a loader for dir, or for the configured directory when dir
// is empty.
func (a *App) Loader(dir string) *loader.Loader {
	if strings.TrimSpace(dir) == "" {
		dir = a.cfg.Crontab.Dir
	}
	return loader.New(loader.Options{
		Dir:      dir,
		System:   a.cfg.Crontab.IsSystem(),
		Owner:    a.cfg.Crontab.Owner,
		Workers:  a.cfg.Crontab.Workers,
		Env:      a.Env(),
		Resolver: a.resolver,
		Sink:     a.sink,
		Bus:      a.bus,
		Logger:   a.log,
	})
}

// Watcher returns a watcher for dir with the configured timings.
func (a *App) Watcher(dir string) (*loader.Watcher, error) {
	debounce, err := config.Duration("watch.debounce", a.cfg.Watch.Debounce, loader.DefaultDebounce)
	if err != nil {
		return nil, err
	}
	minInterval, err := config.Duration("watch.min_interval", a.cfg.Watch.MinInterval, loader.DefaultMinInterval)
	if err != nil {
		return nil, err
	}
	return loader.NewWatcher(a.Loader(dir), loader.WatchOptions{Debounce: debounce, MinInterval: minInterval}), nil
}

// OpenStore opens the configured report store. It returns
// storage.ErrDisabled when none is configured.
func (a *App) OpenStore() (storage.Store, error) {
	sc, ok, err := mapStorageConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, storage.ErrDisabled
	}
	return storage.Open(sc, a.log)
}

// Export writes res to st as one scan report.
func (a *App) Export(ctx context.Context, st storage.Store, res *loader.Result) (storage.Scan, error) {
	sc := storage.NewScan(res, time.Now().In(a.loc))
	if err := st.SaveScan(ctx, sc); err != nil {
		return storage.Scan{}, fmt.Errorf("save scan: %w", err)
	}
	a.log.Info("scan report exported",
		logx.String("scan_id", sc.ID),
		logx.Int("entries", len(sc.Entries)),
		logx.Int("failures", len(sc.Failures)),
	)
	return sc, nil
}

func (a *App) Close() error {
	if a.logs == nil {
		return nil
	}
	return a.logs.Close()
}
