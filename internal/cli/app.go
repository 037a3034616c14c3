package cli

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sandeepkv93/plannerd/internal/config"
	"github.com/sandeepkv93/plannerd/internal/firer"
	"github.com/sandeepkv93/plannerd/internal/logger"
	"github.com/sandeepkv93/plannerd/internal/model"
	"github.com/sandeepkv93/plannerd/internal/notify"
	"github.com/sandeepkv93/plannerd/internal/runtime"
	"github.com/sandeepkv93/plannerd/internal/scheduler"
	"github.com/sandeepkv93/plannerd/internal/storage"
)

// app holds what every subcommand needs once config is resolved.
type app struct {
	cfg    config.RuntimeConfig
	logger *zap.Logger
	loc    *time.Location
	store  storage.Store
}

// openApp loads config, builds the logger and opens the store. When
// logToFile is set and no log file is configured, logs go next to the
// database so they do not draw over the terminal UI.
func openApp(logToFile bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	logCfg := logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding, File: cfg.Log.File}
	if logToFile && logCfg.File == "" {
		logCfg.File = filepath.Join(filepath.Dir(cfg.Storage.Path), "plannerd.log")
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(storage.Backend(cfg.Storage.Backend), cfg.Storage.Path, loc)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	log.Debug("store opened",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("path", cfg.Storage.Path))
	return &app{cfg: cfg, logger: log, loc: loc, store: store}, nil
}

func (a *app) Close() error {
	err := a.store.Close()
	_ = a.logger.Sync()
	return err
}

func (a *app) notifier() notify.Notifier {
	out := notify.Multi{notify.Log{Logger: a.logger}}
	if a.cfg.DesktopNotifications {
		out = append(out, notify.Desktop{})
	}
	return out
}

func (a *app) newRunner(sched *scheduler.Engine) *runtime.Runner {
	f := firer.New(
		firer.WithLogger(a.logger),
		firer.WithSkipMissed(a.cfg.SkipMissed),
		firer.WithIDGenerator(func() string {
			return model.NewUniqueID("r", func(id string) bool {
				return storage.HasReminder(context.Background(), a.store, id)
			})
		}),
	)
	opts := []runtime.Option{
		runtime.WithNotifier(a.notifier()),
		runtime.WithLogger(a.logger),
		runtime.WithInterval(a.cfg.TickInterval),
	}
	if sched != nil {
		opts = append(opts, runtime.WithScheduler(sched))
	}
	return runtime.New(a.store, f, opts...)
}

func closeApp(a *app, err *error) {
	if cerr := a.Close(); cerr != nil {
		*err = errors.Join(*err, cerr)
	}
}
