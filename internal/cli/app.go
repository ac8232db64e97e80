// Package cli wires the pieces into a running program: configuration,
// logging, store and dialer selection, signal handling, and the session
// loop itself.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nodesh/nodesh/internal/config"
	"github.com/nodesh/nodesh/internal/logging"
	"github.com/nodesh/nodesh/internal/render"
	"github.com/nodesh/nodesh/internal/session"
	"github.com/nodesh/nodesh/pkg/adapters/file"
	"github.com/nodesh/nodesh/pkg/adapters/loopback"
	redisstore "github.com/nodesh/nodesh/pkg/adapters/redis"
	"github.com/nodesh/nodesh/pkg/cache"
	"github.com/nodesh/nodesh/pkg/options"
	"github.com/nodesh/nodesh/pkg/ports"
)

// RunOptions carries everything the run command collected.
type RunOptions struct {
	Target     string
	ConfigPath string
	Debug      bool
	Subscribe  []string
	Scan       bool
	ScanDepth  int

	// Dialer and Store override the scheme/config based selection; used by
	// tests and embedders.
	Dialer ports.Dialer
	Store  ports.BlobStore

	In  *os.File
	Out io.Writer
}

// Execute runs one interactive session against the target. A non-nil error
// means exit status 1.
func Execute(ctx context.Context, opts RunOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	cfgFile, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	cfg := options.NewConfig()
	reg := options.NewRegistry(cfg)
	if err := cfgFile.ApplyOptions(reg); err != nil {
		return err
	}
	if opts.Debug {
		if err := reg.Set("debug", "true"); err != nil {
			return err
		}
	}

	// The logger level follows the debug option, also when it flips at
	// runtime through `!set`.
	level := new(slog.LevelVar)
	level.Set(logLevel(cfg.Debug()))
	log := logging.New(level)
	cfg.OnDebug(func(on bool) { level.Set(logLevel(on)) })

	target, err := ParseTarget(cfgFile.ResolveHost(opts.Target))
	if err != nil {
		return err
	}
	if err := target.EnsurePassword(opts.In, opts.Out); err != nil {
		return err
	}

	store := opts.Store
	if store == nil {
		if store, err = selectStore(cfgFile); err != nil {
			return err
		}
	}

	dialer := opts.Dialer
	if dialer == nil {
		if dialer, err = selectDialer(target); err != nil {
			return err
		}
	}

	sc := NewSignalContext(ctx)
	defer sc.Stop()

	conn, err := dialer.Dial(sc, target.URL.String())
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", target.CacheKey(), err)
	}
	defer conn.Close()

	c := cache.New()
	if cfg.Cache() {
		if err := c.Load(sc, store, target.CacheKey()); err != nil {
			log.Warn("discovery cache unavailable", "err", err)
		}
	}

	sess := session.New(conn, c, cfg, reg,
		session.WithLogger(log),
		session.WithReader(session.NewStdioReader(opts.In, opts.Out)),
		session.WithRenderer(render.New(opts.Out)),
		session.WithInterrupts(sc.Interrupts()),
	)

	if err := sess.Startup(sc, opts.Subscribe, opts.Scan, opts.ScanDepth); err != nil {
		return err
	}

	runErr := sess.Run(sc)

	if cfg.Cache() {
		if err := c.Save(context.WithoutCancel(sc), store, target.CacheKey()); err != nil {
			log.Warn("discovery cache not saved", "err", err)
		}
	}
	return runErr
}

func logLevel(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// selectStore picks the persistent cache backend from the config file. The
// default is the per-user file store.
func selectStore(f *config.File) (ports.BlobStore, error) {
	if strings.HasPrefix(f.CacheStore, "redis://") || strings.HasPrefix(f.CacheStore, "rediss://") {
		return redisstore.NewFromURL(f.CacheStore)
	}
	if f.CacheStore != "" {
		return nil, fmt.Errorf("unsupported cache_store %q", f.CacheStore)
	}
	return file.NewStore(f.CacheDir), nil
}

// selectDialer picks the transport by URL scheme. The loopback scheme serves
// the built-in demo broker.
func selectDialer(t *Target) (ports.Dialer, error) {
	switch t.URL.Scheme {
	case "loopback":
		return loopback.NewDemo(), nil
	default:
		return nil, fmt.Errorf("unsupported scheme %q", t.URL.Scheme)
	}
}
