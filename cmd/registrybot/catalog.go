package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/m3rciful/chainregbot/internal/app"
	"github.com/m3rciful/chainregbot/internal/menu"
	"github.com/m3rciful/chainregbot/internal/registry"
)

func newCatalogCmd(flags *rootFlags) *cobra.Command {
	var pageSize int
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the chain catalog as the bot pages it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Load(flags.configPath())
			if err != nil {
				return err
			}
			if pageSize <= 0 {
				pageSize = cfg.Registry.PageSize
			}

			chains := registry.NewCatalog(registry.NewDirSource(cfg.Registry.Dir), nil).List(cmd.Context())
			out := cmd.OutOrStdout()
			if len(chains) == 0 {
				_, err := fmt.Fprintln(out, color.YellowString("no chains found in %s", cfg.Registry.Dir))
				return err
			}

			pages := menu.TotalPages(len(chains), pageSize)
			header := color.New(color.FgCyan, color.Bold)
			for p := 0; p < pages; p++ {
				if _, err := header.Fprintf(out, "page %d/%d\n", p+1, pages); err != nil {
					return err
				}
				end := min((p+1)*pageSize, len(chains))
				for _, name := range chains[p*pageSize : end] {
					fmt.Fprintf(out, "  %s\n", name)
				}
			}
			_, err = fmt.Fprintln(out, color.GreenString("%d chains", len(chains)))
			return err
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "chains per page (default from config)")
	return cmd
}
