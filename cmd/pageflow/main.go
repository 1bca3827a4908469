// Command pageflow serves editing sessions over websockets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pageflow/pkg/config"
	"pageflow/pkg/editor"
	"pageflow/pkg/export"
	"pageflow/pkg/images"
	"pageflow/pkg/importer"
	"pageflow/pkg/logging"
	"pageflow/pkg/macro"
	"pageflow/pkg/render"
	"pageflow/pkg/server"
	"pageflow/pkg/store"
	"pageflow/pkg/store/mysqlstore"
	"pageflow/pkg/store/pgstore"
	"pageflow/pkg/store/snapshot"
	"pageflow/pkg/text"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pageflow: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("pageflow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default: user config dir)")
	addr := fs.String("addr", "", "listen address, overrides the config")
	level := fs.String("log-level", "", "log level, overrides the config")
	macroDir := fs.String("macros", "", "directory of *.js macros, overrides the config")
	printConfig := fs.Bool("print-config", false, "print the effective config and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *level != "" {
		cfg.Log.Level = *level
	}
	if *macroDir != "" {
		cfg.Server.MacroDir = *macroDir
	}
	if *printConfig {
		out, err := cfg.TOML()
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, out)
		return err
	}

	logs, err := logging.New().FromBuffer(stderr).FromPath(cfg.Log.Path).Level(cfg.Log.Level).Console(cfg.Log.Console).Make()
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logs.Close()
	log := logs.Logger

	srv, closeAll, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAll()
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

// build wires the server from cfg. The returned func closes the backends.
func build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*server.Server, func(), error) {
	st, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return nil, nil, err
	}
	snaps, err := openSnapshots(cfg.Snapshot, log)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	lib, err := macro.LoadDir(cfg.Server.MacroDir)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	if len(lib) > 0 {
		log.Info().Strs("macros", lib.Names()).Msg("macros loaded")
	}

	var cacheOpts []images.CacheOption
	if cfg.Export.RemoteImages {
		cacheOpts = append(cacheOpts, images.WithFetcher(images.NewHTTPFetcher(cfg.Export.ImageBase)))
	}
	rasterizer := render.New(text.NewGGMeasurer(text.FontConfig{}),
		render.WithLogger(log), render.WithImageCache(images.NewCache(cacheOpts...)))
	srv := server.New(
		server.WithLogger(log),
		server.WithStore(st),
		server.WithSnapshots(snaps),
		server.WithExporter(export.New(rasterizer, export.WithScale(cfg.Export.Scale), export.WithLogger(log))),
		server.WithImporter(importer.New(importer.JSONExtractor{}, importer.WithLogger(log))),
		server.WithMacros(lib),
		server.WithPollInterval(cfg.Server.PollInterval.Duration),
		server.WithPageSettings(cfg.Editor.Page),
		server.WithNoticeTTL(cfg.Editor.NoticeTTL.Duration),
		server.WithEditorOptions(
			editor.WithBackspaceMerge(cfg.Editor.BackspaceMerge),
			editor.WithReadOnly(cfg.Editor.ReadOnly),
			editor.WithPageGap(cfg.Editor.PageGap),
		),
	)
	closeAll := func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
		if c, ok := snaps.(io.Closer); ok {
			_ = c.Close()
		}
	}
	return srv, closeAll, nil
}

func openStore(ctx context.Context, c config.Store, log zerolog.Logger) (store.Store, error) {
	switch c.Type {
	case "", "memory":
		return store.NewMemory(), nil
	case "pgsql":
		return pgstore.Open(ctx, pgstore.Conf{
			Host: c.Host, Port: c.Port, User: c.User, PW: c.PW, DB: c.DB, TZ: c.TZ, DSN: c.DSN, Table: c.Table,
		}, pgstore.WithLogger(log))
	case "mysql":
		return mysqlstore.Open(ctx, mysqlstore.Conf{
			Host: c.Host, Port: c.Port, User: c.User, PW: c.PW, DB: c.DB, TZ: c.TZ, DSN: c.DSN, Table: c.Table,
		}, mysqlstore.WithLogger(log))
	}
	return nil, fmt.Errorf("unknown store type %q", c.Type)
}

func openSnapshots(c config.Snapshot, log zerolog.Logger) (snapshot.Cache, error) {
	switch c.Type {
	case "", "none":
		return nil, nil
	case "file":
		if c.Path == "" {
			return nil, errors.New("file snapshots need a path")
		}
		return snapshot.NewFile(c.Path, log), nil
	case "redis":
		return snapshot.NewRedis(snapshot.RedisConf{
			Host: c.Host, Port: c.Port, PW: c.PW, DB: c.DB, Key: c.Key, TTL: 30 * 24 * time.Hour,
		}, log), nil
	}
	return nil, fmt.Errorf("unknown snapshot type %q", c.Type)
}
