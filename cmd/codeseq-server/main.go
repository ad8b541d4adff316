package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/aimhigh31/work-ten-sub018/internal/config"
	"github.com/aimhigh31/work-ten-sub018/internal/logging"
	"github.com/aimhigh31/work-ten-sub018/internal/server"
	"github.com/aimhigh31/work-ten-sub018/internal/version"
)

func main() {
	configDir := os.Getenv("CODESEQ_CONFIG_DIR")
	if configDir == "" {
		configDir = "./config"
	}

	if err := config.Load(configDir); err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	cfg := config.Get()

	closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to set up logging")
	}
	defer closer.Close()

	config.OnReload(func(c *config.Config) {
		if lvl, err := logging.ParseLevel(c.Logging.Level); err == nil {
			logrus.SetLevel(lvl)
		}
	})

	log := logging.WithComponent("main")
	log.WithFields(logrus.Fields{
		"version": version.String(),
		"backend": cfg.Store.Backend,
		"env":     cfg.App.Env,
	}).Info("Starting codeseq server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, cfg); err != nil {
		log.WithError(err).Error("Server stopped with error")
		stop()
		_ = closer.Close()
		os.Exit(1)
	}
	log.Info("Server stopped")
}
