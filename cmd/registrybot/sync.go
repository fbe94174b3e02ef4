package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/m3rciful/chainregbot/internal/app"
)

func newSyncCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Clone or pull the chain registry once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Load(flags.configPath())
			if err != nil {
				return err
			}
			res := app.NewSyncer(cfg).Sync(cmd.Context())
			if res.Err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("%s failed: %v", res.Action, res.Err))
				return res.Err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("%s ok (%s)", res.Action, res.ID))
			return err
		},
	}
}
