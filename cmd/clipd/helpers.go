package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"go.klb.dev/clipd/internal/grpcservice"
	"go.klb.dev/clipd/internal/ipc"
)

const rpcTimeout = 5 * time.Second

// newClientCmd builds a command that talks to the daemon over gRPC.
func newClientCmd(use, short string, args cobra.PositionalArgs, run func(context.Context, *grpcservice.Client, *viper.Viper, []string) error) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Args:    args,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := dialDaemon(v.GetString("socket"))
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			if err := run(ctx, grpcservice.NewClient(conn), v, args); err != nil {
				return rpcError(err)
			}
			return nil
		},
	}
	addSocketFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

func dialDaemon(socket string) (*grpc.ClientConn, error) {
	if !ipc.IsRunning(socket) {
		return nil, fmt.Errorf("no clipd daemon on %s (start one with \"clipd daemon\")", socket)
	}
	conn, err := grpcservice.Dial(socket)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}

// rpcError strips the gRPC status wrapping for display.
func rpcError(err error) error {
	if st, ok := status.FromError(err); ok {
		return fmt.Errorf("%s", st.Message())
	}
	return err
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid item id %q", s)
	}
	return id, nil
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	if age < 24*time.Hour {
		return t.Format("15:04:05")
	}
	return t.Format("2006-01-02")
}
