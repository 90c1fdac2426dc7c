package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipd/internal/grpcservice"
)

func newSelectCmd() *cobra.Command {
	return newClientCmd("select <id>", "Make a history entry the current clipboard", cobra.ExactArgs(1),
		func(ctx context.Context, c *grpcservice.Client, _ *viper.Viper, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.SetClipboard(ctx, id)
		})
}

func newPinCmd(pinned bool) *cobra.Command {
	use, short := "pin <id>", "Pin a history entry to the top"
	if !pinned {
		use, short = "unpin <id>", "Unpin a history entry"
	}
	return newClientCmd(use, short, cobra.ExactArgs(1),
		func(ctx context.Context, c *grpcservice.Client, _ *viper.Viper, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.SetPinned(ctx, id, pinned)
		})
}

func newDeleteCmd() *cobra.Command {
	return newClientCmd("delete <id>...", "Delete history entries", cobra.MinimumNArgs(1),
		func(ctx context.Context, c *grpcservice.Client, _ *viper.Viper, args []string) error {
			for _, a := range args {
				id, err := parseID(a)
				if err != nil {
					return err
				}
				if err := c.DeleteItem(ctx, id); err != nil {
					return err
				}
			}
			return nil
		})
}

func newClearCmd() *cobra.Command {
	return newClientCmd("clear", "Delete the whole history", cobra.NoArgs,
		func(ctx context.Context, c *grpcservice.Client, _ *viper.Viper, _ []string) error {
			if err := c.ClearHistory(ctx); err != nil {
				return err
			}
			fmt.Println("History cleared.")
			return nil
		})
}
