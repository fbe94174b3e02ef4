package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

type rootFlags struct {
	config  string
	envFile string
}

// configPath resolves --config, then CONFIG_PATH, then the default.
func (f *rootFlags) configPath() string {
	if f.config != "" {
		return f.config
	}
	if p := os.Getenv(configEnvVar); p != "" {
		return p
	}
	return defaultConfigPath
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "registrybot",
		Short:         "Telegram bot for browsing the Cosmos chain registry",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		},
		RunE: func(*cobra.Command, []string) error {
			return runBot(flags)
		},
	}
	root.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "path to the YAML config (default $"+configEnvVar+" or "+defaultConfigPath+")")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		newRunCmd(flags),
		newCatalogCmd(flags),
		newSyncCmd(flags),
		newVersionCmd(),
	)
	return root
}
