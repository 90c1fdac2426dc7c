package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/clipd/internal/grpcservice"
	"go.klb.dev/clipd/internal/hub"
)

func newWatchCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Print history changes as they happen",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := dialDaemon(v.GetString("socket"))
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, grpcservice.NewClient(conn), cmd.OutOrStdout(), v.GetBool("json"))
		},
	}
	cmd.Flags().Bool("json", false, "print one JSON event per line")
	addSocketFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

func watch(ctx context.Context, c *grpcservice.Client, out io.Writer, asJSON bool) error {
	stream, err := c.Watch(ctx)
	if err != nil {
		return rpcError(err)
	}
	enc := json.NewEncoder(out)
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
			return nil
		}
		if err != nil {
			return rpcError(err)
		}
		if asJSON {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(out, formatEvent(ev))
	}
}

func formatEvent(ev *hub.Event) string {
	switch ev.Kind {
	case hub.NewItem:
		if ev.Entry != nil {
			return fmt.Sprintf("new\t%d\t%s\t%s", ev.ID, ev.Entry.ContentType, oneLine(ev.Entry.Preview, 60))
		}
		return fmt.Sprintf("new\t%d", ev.ID)
	case hub.ItemPinned:
		if ev.Pinned {
			return fmt.Sprintf("pinned\t%d", ev.ID)
		}
		return fmt.Sprintf("unpinned\t%d", ev.ID)
	case hub.ItemDeleted:
		return fmt.Sprintf("deleted\t%d", ev.ID)
	case hub.HistoryCleared:
		return "cleared"
	default:
		return string(ev.Kind)
	}
}
