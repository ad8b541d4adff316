package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aimhigh31/work-ten-sub018/internal/config"
	"github.com/aimhigh31/work-ten-sub018/internal/logging"
	"github.com/aimhigh31/work-ten-sub018/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			closer, err := logging.Setup(cfg.Logging)
			if err != nil {
				return err
			}
			defer closer.Close()
			watchLogLevel()

			return server.Start(cmd.Context(), cfg)
		},
	}
}

// watchLogLevel applies logging.level changes from config hot reloads.
func watchLogLevel() {
	config.OnReload(func(c *config.Config) {
		lvl, err := logging.ParseLevel(c.Logging.Level)
		if err != nil {
			logging.WithComponent("config").WithError(err).Warn("ignoring reloaded log level")
			return
		}
		logrus.SetLevel(lvl)
	})
}
