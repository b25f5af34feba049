// Command lodis runs the Lodis server: a single-node, on-disk
// data-structure store exposing List, HashMap and ArrayMap types over
// HTTP POST. Process wiring uses github.com/urfave/cli/v2; the two
// environment variables that make up Lodis's entire configuration
// surface are read directly with os.LookupEnv rather than through a
// third-party config library, since nothing in the dependency set
// is worth reaching for on a two-variable surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rsms/go-log"
	"github.com/urfave/cli/v2"

	"github.com/lodis-io/lodis"
	"github.com/lodis-io/lodis/internal/server"
	"github.com/lodis-io/lodis/store/memstore"
	"github.com/lodis-io/lodis/store/pebblestore"
	"github.com/lodis-io/lodis/store/redisstore"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "lodis",
		Usage: "a single-node, on-disk data-structure server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "backend",
				Value:   "pebble",
				Usage:   "storage backend: pebble, memory, or redis",
				EnvVars: []string{"LODIS_BACKEND"},
			},
			&cli.StringFlag{
				Name:    "db-path",
				Value:   "./lodis-data",
				Usage:   "directory for the pebble backend",
				EnvVars: []string{"LODIS_DB_PATH"},
			},
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":7878",
				Usage:   "address to listen on",
				EnvVars: []string{"LODIS_IP_PORT"},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "address of the redis server, when backend=redis",
				EnvVars: []string{"LODIS_REDIS_ADDR"},
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	logger := log.RootLogger

	dbPath := c.String("db-path")
	addr := c.String("addr")
	if v, ok := os.LookupEnv("LODIS_DB_PATH"); ok {
		dbPath = v
	}
	if v, ok := os.LookupEnv("LODIS_IP_PORT"); ok {
		addr = v
	}

	storage, err := openStorage(c, logger, dbPath)
	if err != nil {
		return err
	}
	defer storage.Close()

	dispatcher := &lodis.Dispatcher{
		Lists:  &lodis.ListEngine{Storage: storage},
		Hashes: &lodis.HashEngine{Storage: storage},
		Arrays: &lodis.ArrayMapEngine{Storage: storage},
		Locks:  lodis.NewLockRegistry(),
	}
	dispatcher.Locks.Logger = logger

	srv := server.New(dispatcher, addr, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func openStorage(c *cli.Context, logger *log.Logger, dbPath string) (lodis.Storage, error) {
	switch c.String("backend") {
	case "memory":
		return memstore.New(), nil
	case "redis":
		return redisstore.OpenRetry(c.String("redis-addr"), 10, logger, 30*time.Second)
	default:
		return pebblestore.Open(dbPath)
	}
}
