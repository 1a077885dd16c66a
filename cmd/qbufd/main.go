// Package main wires up the qbuf manager and lifecycle ticker as a runnable
// process: load config, construct the backend and logger, start the actor
// and its ticker, and shut both down cleanly on SIGINT/SIGTERM.
//
// This is explicitly not the RPC/CLI surface spec.md names as out of scope
// (§1 "the RPC/CLI surface" is an external collaborator) — qbufd adds no
// network handlers. It exists only to give the manager and ticker a
// composition root, matching the teacher's convention that every
// service-shaped package gets a cmd/ binary.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dreamware/qbuf/internal/qbufcore"
	"github.com/dreamware/qbuf/internal/qbufcore/backend"
	"github.com/dreamware/qbuf/internal/qbuflog"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	dev := flag.Bool("dev", false, "use a development (console) logger instead of production JSON")
	flag.Parse()

	log, err := qbuflog.New(*dev)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := qbufcore.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	mgr := qbufcore.NewManager(cfg, backend.NewBadgerBackend(), log)
	ticker := qbufcore.NewTicker(mgr, cfg.TickInterval, log)
	ticker.Start()

	log.Info("qbufd started", zap.String("root_path", cfg.RootPath))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("qbufd stopping")
	ticker.Stop()
	if err := mgr.KillAll(); err != nil {
		log.Warn("kill_all completed with errors", zap.Error(err))
	}
	log.Info("qbufd stopped")
}
