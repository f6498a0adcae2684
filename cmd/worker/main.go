// Copyright (c) 2026 zco.mx. All rights reserved.
// Author: zcomix developers <dev@zco.mx>

// Command worker runs the background job pool, or a single job command
// inline when one is given on the command line.
//
// # Usage
//
//	worker                          run the polling pool until signalled
//	worker [-v|-vv] COMMAND [ARG]…  run one command inline and exit
//
// Example:
//
//	worker -v release_book 42
//	worker create_torrent all
//
// The inline mode bypasses the job table entirely. It exists for
// operators re-running failed jobs and for cron entries (sitemap,
// search_prefetch, integrity) that want a non-zero exit on failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zcomx/zcomix/internal/jobq"
	"github.com/zcomx/zcomix/internal/platform/config"
	"github.com/zcomx/zcomix/internal/platform/migration"
	pgstore "github.com/zcomx/zcomix/internal/platform/postgres"
	redisstore "github.com/zcomx/zcomix/internal/platform/redis"
	"github.com/zcomx/zcomix/internal/worker"
)

func main() {
	verbose := flag.Bool("v", false, "log at debug level")
	veryVerbose := flag.Bool("vv", false, "log at debug level with source locations")
	flag.Parse()

	// ── 1. Logger ──────────────────────────────────────────────────────────
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if *verbose || *veryVerbose {
		options.Level = slog.LevelDebug
		options.AddSource = *veryVerbose
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, options)).
		With(slog.String("app", "zcomix-worker"))
	slog.SetDefault(log)

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")
	if cfg.Debug && options.Level != slog.LevelDebug {
		options.Level = slog.LevelDebug
		log = slog.New(slog.NewJSONHandler(os.Stdout, options)).
			With(slog.String("app", "zcomix-worker"))
		slog.SetDefault(log)
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer pool.Close()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer rdb.Close()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	// The worker runs them too so either process can start first.
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	app := worker.Wire(pool, rdb, cfg, log)
	workerPool := jobq.NewPool(app.Jobs, app.Registry, cfg.WorkerCount, log)

	// ── 7. One-Shot Mode ──────────────────────────────────────────────────
	if args := flag.Args(); len(args) > 0 {
		if err := workerPool.RunCommand(context.Background(), args[0], args[1:]); err != nil {
			log.Error("command failed",
				slog.String("command", args[0]),
				slog.Any("error", err),
			)
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// ── 8. Polling Pool ───────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := workerPool.Run(ctx); err != nil {
		log.Error("worker pool error", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("worker stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
