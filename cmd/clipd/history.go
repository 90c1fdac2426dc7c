package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipd/internal/engine"
	"go.klb.dev/clipd/internal/grpcservice"
)

const previewWidth = 60

func newHistoryCmd() *cobra.Command {
	cmd := newClientCmd("history", "List clipboard history", cobra.NoArgs,
		func(ctx context.Context, c *grpcservice.Client, v *viper.Viper, _ []string) error {
			resp, err := c.GetHistory(ctx)
			if err != nil {
				return err
			}
			if v.GetBool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printHistory(os.Stdout, resp)
			return nil
		})
	cmd.Flags().Bool("json", false, "output raw JSON")
	return cmd
}

func printHistory(out io.Writer, resp *grpcservice.HistoryResponse) {
	if len(resp.Items) == 0 {
		fmt.Fprintln(out, "History is empty.")
		return
	}
	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "\tID\tTYPE\tCOPIED\tPIN\tPREVIEW\n")
	_, _ = fmt.Fprintf(tw, "\t--\t----\t------\t---\t-------\n")
	for _, it := range resp.Items {
		marker := ""
		if resp.Ownership.Phase != engine.Idle && resp.Ownership.EntryID == it.ID {
			marker = "*"
		}
		pin := ""
		if it.Pinned {
			pin = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			marker, it.ID, it.ContentType, fmtAge(time.Unix(it.Timestamp, 0)), pin, oneLine(it.Preview, previewWidth),
		)
	}
	_ = tw.Flush()
}

// oneLine flattens s and cuts it to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
