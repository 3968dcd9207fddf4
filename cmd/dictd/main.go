// Command dictd serves a DICT protocol (RFC 2229-compatible subset)
// lookup service over TCP, loading one or more StarDict .dict files named
// by a TOML configuration file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/joshuafuller/dictd/internal/config"
	"github.com/joshuafuller/dictd/internal/dictlog"
	"github.com/joshuafuller/dictd/internal/fallback"
	"github.com/joshuafuller/dictd/internal/ingest"
	"github.com/joshuafuller/dictd/internal/registry"
	"github.com/joshuafuller/dictd/internal/store"
	"github.com/joshuafuller/dictd/internal/transport"
	"github.com/joshuafuller/dictd/internal/workerpool"
)

func main() {
	app := &cli.App{
		Name:      "dictd",
		Usage:     "serve dictionaries over the DICT protocol",
		ArgsUsage: "<config-file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("usage: dictd <config-file>", 1)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	log := dictlog.New(os.Stderr, c.Bool("debug"))
	pool := workerpool.New(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dicts := loadDictionaries(ctx, cfg, pool, log)
	if len(dicts) == 0 {
		return cli.Exit("dictd: no dictionaries loaded, exiting", 1)
	}

	reg := registry.New(dicts, pool)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	ln, err := transport.Listen(addr, reg, log)
	if err != nil {
		return cli.Exit(fmt.Sprintf("dictd: listen on %s: %v", addr, err), 1)
	}
	log.Info().Str("addr", ln.Addr().String()).Int("databases", len(dicts)).Msg("dictd listening")

	return ln.Serve(ctx)
}

// loadDictionaries ingests every configured database in parallel. A
// dictionary whose file fails to load is logged and omitted; the server
// still starts as long as at least one dictionary succeeds.
func loadDictionaries(ctx context.Context, cfg *config.Config, pool *workerpool.Pool, log zerolog.Logger) []*registry.Dictionary {
	// Loaded into a slot per config index, not appended, so registration
	// order always matches declaration order in the config file regardless
	// of which parallel load finishes first.
	slots := make([]*registry.Dictionary, len(cfg.Databases))

	fns := make([]func(context.Context) error, len(cfg.Databases))
	for i, db := range cfg.Databases {
		i, db := i, db
		fns[i] = func(context.Context) error {
			m := store.New()
			if err := ingest.LoadFile(db.Path, db.ShortName, m, log); err != nil {
				log.Warn().Err(err).Str("dictionary", db.ShortName).Str("path", db.Path).Msg("failed to load dictionary, skipping")
				return nil
			}

			d := &registry.Dictionary{
				ShortName: db.ShortName,
				LongName:  db.Name,
				Path:      db.Path,
				Store:     m,
			}
			if db.Fallback != nil {
				d.Fallback = &fallback.Target{
					RemoteDB: db.Fallback.DB,
					Host:     db.Fallback.Host,
					Port:     db.Fallback.Port,
				}
			}

			slots[i] = d
			return nil
		}
	}

	// Errors are swallowed per-dictionary above, so Run fails only when ctx
	// is canceled before every load has started; loads that never started
	// are simply absent from the result.
	_ = pool.Run(ctx, fns)

	dicts := make([]*registry.Dictionary, 0, len(slots))
	for _, d := range slots {
		if d != nil {
			dicts = append(dicts, d)
		}
	}
	return dicts
}
