package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipd/internal/grpcservice"
	"go.klb.dev/clipd/internal/history"
)

func newCopyCmd() *cobra.Command {
	cmd := newClientCmd("copy", "Copy stdin to the clipboard (like wl-copy)", cobra.NoArgs,
		func(ctx context.Context, c *grpcservice.Client, v *viper.Viper, _ []string) error {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			if len(data) == 0 {
				return nil
			}
			resp, err := c.Copy(ctx, history.MIMEData{{MIME: v.GetString("mime"), Data: data}})
			if err != nil {
				return err
			}
			if !resp.Offered {
				slog.Warn("stored in history but not offered", "id", resp.ID, "err", resp.Error)
			}
			if v.GetBool("print-id") {
				fmt.Println(resp.ID)
			}
			return nil
		})
	cmd.Long = `Reads stdin, adds it to the clipboard history and makes it the current
selection through the running daemon.`
	cmd.Flags().String("mime", history.MIMEText, "MIME type of the data being copied")
	cmd.Flags().Bool("print-id", false, "print the id of the new history entry")
	return cmd
}
