// Command respserver serves instrument response evaluation over HTTP.
//
// Configuration comes from the environment or a .env file: PORT, RESP_DIR,
// API_BEARER_TOKEN, MAX_FREQUENCIES, MAX_BODY_BYTES, SENSITIVITY_TOLERANCE
// and DATABASE_URL.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"github.com/cwbudde/algo-seisresp/internal/config"
	"github.com/cwbudde/algo-seisresp/internal/export"
	"github.com/cwbudde/algo-seisresp/internal/server"
)

func main() {
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.Load()
	if err != nil {
		glog.Exitf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store *export.Postgres
	if cfg.DatabaseURL != "" {
		store, err = export.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			glog.Exitf("db connection error: %v", err)
		}
		defer store.Close()
		if err := store.Ping(ctx); err != nil {
			glog.Warningf("database not reachable yet: %v", err)
		}
	}

	srv := server.New(cfg, store)
	glog.Infof("response API listening on %s", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		glog.Exitf("server error: %v", err)
	}
}
