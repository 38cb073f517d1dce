package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/edgetag/eventbus"
	"github.com/jonwraymond/edgetag/hooks"
	"github.com/jonwraymond/edgetag/tagset"
)

func newPublishCmd(g *globalFlags) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "publish TAG...",
		Short: "Publish an invalidation event to every running edgetag",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			if cfg.Events.Redis.Addr == "" {
				return errors.New("events.redis.addr is not configured")
			}

			bus, err := eventbus.New(eventbus.Config{
				Addr:     cfg.Events.Redis.Addr,
				Password: cfg.Events.Redis.Password,
				DB:       cfg.Events.Redis.DB,
				Channel:  cfg.Events.Redis.Channel,
			}, nil)
			if err != nil {
				return err
			}
			defer bus.Close()

			var tags []string
			for _, arg := range args {
				tags = append(tags, tagset.ParseHeader(arg)...)
			}
			ev := hooks.InvalidationEvent{ID: uuid.NewString(), Tags: tags, Source: source}
			n, err := bus.Publish(cmd.Context(), ev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published id=%s receivers=%d\n", ev.ID, n)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "cli", "event source label")
	return cmd
}
