package app

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/authnd/authnd/internal/config"
	"github.com/authnd/authnd/internal/daemon"
	"github.com/authnd/authnd/internal/logger"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().StringVar(&configPath, "config", "./etc/", "Path to the configuration directory")
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	rootCmd.AddCommand(startCmd)
}

var (
	configPath string // Path to the configuration directory
	devMode    bool

	cfg config.Config

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the authnd web service",
		PreRun: func(_ *cobra.Command, _ []string) {
			var err error
			if cfg, err = config.ReadConfig(configPath); err != nil {
				panic(err)
			}

			if devMode {
				cfg.DevMode = true
			}

			if err = logger.Init(cfg.Log); err != nil {
				panic(err)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			log.Info().Str("title", cfg.Title).Msg("starting service")

			return daemon.New(&cfg).Start()
		},
	}
)
