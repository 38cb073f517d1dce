package main

import (
	"github.com/spf13/cobra"

	"github.com/jonwraymond/edgetag/config"
)

type globalFlags struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "edgetag",
		Short:         "Cloudflare cache tagging and tag purging",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", envOr("EDGETAG_CONFIG", ""), "YAML config file (env EDGETAG_CONFIG)")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file; ignored when missing")

	root.AddCommand(
		newServeCmd(g),
		newPurgeCmd(g),
		newPublishCmd(g),
		newConfigCmd(g),
		newVersionCmd(),
	)
	return root
}

func (g *globalFlags) load(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(cmd.Context(), config.LoadOptions{
		Path:    g.configPath,
		EnvFile: g.envFile,
	})
}
