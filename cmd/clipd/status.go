package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipd/internal/engine"
	"go.klb.dev/clipd/internal/grpcservice"
	"go.klb.dev/clipd/internal/history"
)

func newStatusCmd() *cobra.Command {
	cmd := newClientCmd("status", "Show daemon status", cobra.NoArgs,
		func(ctx context.Context, c *grpcservice.Client, v *viper.Viper, _ []string) error {
			resp, err := c.Status(ctx)
			if err != nil {
				return err
			}
			if v.GetBool("json") {
				enc, _ := json.MarshalIndent(resp, "", "  ")
				fmt.Println(string(enc))
				return nil
			}
			printStatus(resp, v.GetString("socket"))
			return nil
		})
	cmd.Flags().Bool("json", false, "output raw JSON")
	return cmd
}

func printStatus(resp *grpcservice.StatusResponse, socket string) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%s\n", resp.Version)
	fmt.Fprintf(w, "Socket:\t%s\n", socket)
	fmt.Fprintf(w, "Protocol:\t%s\n", resp.Protocol)
	fmt.Fprintf(w, "Entries:\t%d/%d (%d pinned)\n", resp.Entries, history.MaxEntries, resp.Pinned)
	if resp.Ownership.Phase == engine.Idle {
		fmt.Fprintf(w, "Selection:\tnot owned\n")
	} else {
		fmt.Fprintf(w, "Selection:\tentry %d (%s)\n", resp.Ownership.EntryID, resp.Ownership.Phase)
	}
	_ = w.Flush()
}
