package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/edgetag/dispatch"
	"github.com/jonwraymond/edgetag/tagset"
)

var errPurgeNotSucceeded = errors.New("purge did not succeed")

func newPurgeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "purge TAG...",
		Short: "Purge cache tags now and wait for the result",
		Long: "Runs the tags through the same allow-list and credential checks as\n" +
			"served invalidations, sends at most one purge request and waits for it.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}

			var (
				mu      sync.Mutex
				outcome *dispatch.Outcome
			)
			a, err := newApp(cmd.Context(), cfg, func(o dispatch.Outcome) {
				mu.Lock()
				outcome = &o
				mu.Unlock()
			})
			if err != nil {
				return err
			}

			var tags []string
			for _, arg := range args {
				tags = append(tags, tagset.ParseHeader(arg)...)
			}
			state := a.dispatcher.Dispatch(cmd.Context(), tags)
			if err := a.close(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if state == dispatch.StateDisabled {
				fmt.Fprintln(out, "disabled: cloudflare.cache.enabled and server.useOutputCacheTagging must both be true")
				return errPurgeNotSucceeded
			}

			mu.Lock()
			defer mu.Unlock()
			if outcome == nil {
				return fmt.Errorf("%w: no outcome recorded", errPurgeNotSucceeded)
			}
			fmt.Fprintf(out, "%s id=%s tags=%s\n", outcome.State, outcome.ID, strings.Join(outcome.Tags, ","))
			if outcome.State != dispatch.StateSucceeded {
				if outcome.Err != nil {
					fmt.Fprintf(out, "error: %v\n", outcome.Err)
				}
				return errPurgeNotSucceeded
			}
			return nil
		},
	}
}
