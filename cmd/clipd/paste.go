package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipd/internal/grpcservice"
	"go.klb.dev/clipd/internal/history"
)

func newPasteCmd() *cobra.Command {
	cmd := newClientCmd("paste [id]", "Print a history entry to stdout (like wl-paste)", cobra.MaximumNArgs(1),
		func(ctx context.Context, c *grpcservice.Client, v *viper.Viper, args []string) error {
			var id uint64
			if len(args) == 1 {
				var err error
				if id, err = parseID(args[0]); err != nil {
					return err
				}
			} else {
				h, err := c.GetHistory(ctx)
				if err != nil {
					return err
				}
				if len(h.Items) == 0 {
					return nil
				}
				id = newest(h.Items)
			}

			item, err := c.GetItem(ctx, id)
			if err != nil {
				return err
			}
			if v.GetBool("list-types") {
				for _, t := range item.Data.Types() {
					fmt.Println(t)
				}
				return nil
			}

			mime := v.GetString("mime")
			if mime == "" && len(item.Data) > 0 {
				mime = item.Data[0].MIME
			}
			data, ok := item.Data.Get(mime)
			if !ok {
				// Requested type not present: exit 0, print nothing.
				return nil
			}
			_, err = os.Stdout.Write(data)
			return err
		})
	cmd.Long = `Writes an entry of the clipboard history to stdout: the given id, or the
most recently copied entry. If the entry does not carry --mime, nothing is
printed (exit 0). To retrieve an image:

  clipd paste --mime image/png > screenshot.png`
	cmd.Flags().String("mime", history.MIMEText, "MIME type to output (empty = first stored type)")
	cmd.Flags().Bool("list-types", false, "list the stored MIME types instead of the payload")
	return cmd
}

// newest returns the most recently added entry; pinned entries sort first, so
// it is not necessarily the first one.
func newest(items []history.Preview) uint64 {
	var id uint64
	for _, it := range items {
		id = max(id, it.ID)
	}
	return id
}
