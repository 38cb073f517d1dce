package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	var reveal bool
	get := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value at a dotted key, e.g. cloudflare.cache.enabled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			lookup := cfg.LookupRedacted
			if reveal {
				lookup = cfg.Lookup
			}
			v, err := lookup(args[0])
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(v)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	get.Flags().BoolVar(&reveal, "reveal", false, "print credentials instead of masking them")
	cmd.AddCommand(get)
	return cmd
}
