package main

import (
	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/chainregbot/core/cmd"
	"github.com/m3rciful/chainregbot/internal/app"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		RunE: func(*cobra.Command, []string) error {
			return runBot(flags)
		},
	}
}

func runBot(flags *rootFlags) error {
	return corecmd.Run(corecmd.Options{
		ConfigPath: flags.configPath(),
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(cfg.(*app.Config))
		},
	})
}
