package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipd/internal/datacontrol"
	"go.klb.dev/clipd/internal/engine"
	"go.klb.dev/clipd/internal/grpcservice"
	"go.klb.dev/clipd/internal/ipc"
	"go.klb.dev/clipd/internal/wayland"
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the clipboard history daemon",
		Long: `Connects to the Wayland compositor, records every clipboard selection
into an in-memory history (100 entries) and serves the history on the IPC
socket (gRPC, HTTP/JSON and JSON lines share the socket).

Unless --monitor-only is set, each new selection is immediately re-offered by
the daemon so it outlives the application that copied it.

Config file search order:
  /etc/clipd/clipd.toml
  $HOME/.config/clipd/clipd.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLIPD_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.Bool("monitor-only", false, "record selections without re-offering them")
	addSocketFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)

	socket := v.GetString("socket")
	monitorOnly := v.GetBool("monitor-only")

	slog.Info("clipd daemon starting",
		"version", Version,
		"socket", socket,
		"monitor_only", monitorOnly,
	)

	conn, err := wayland.Dial()
	if err != nil {
		slog.Error("cannot connect to the Wayland compositor", "err", err)
		return err
	}
	defer conn.Close()

	eng := engine.New(engine.Options{MonitorOnly: monitorOnly})
	binding, err := datacontrol.Bind(conn, eng)
	if err != nil {
		slog.Error("clipboard access unavailable", "err", err)
		return err
	}
	eng.Attach(binding)
	protocol := binding.Variant().Manager.Name

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sole reader of the Wayland socket; every event handler runs here.
	dispatchErr := make(chan error, 1)
	go func() {
		for {
			if err := conn.Dispatch(); err != nil {
				dispatchErr <- err
				return
			}
		}
	}()

	ln, err := ipc.Listen(socket)
	if err != nil {
		eng.Shutdown()
		_ = binding.Close()
		return fmt.Errorf("listen %s: %w", socket, err)
	}
	svc := grpcservice.New(eng, Version, func() string { return protocol })
	srv, err := newIPCServer(ln, eng, svc)
	if err != nil {
		_ = ln.Close()
		eng.Shutdown()
		_ = binding.Close()
		return err
	}
	go srv.serve()
	slog.Info("IPC socket listening", "path", socket)

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-dispatchErr:
		slog.Error("wayland connection lost", "err", err)
		runErr = err
	}

	srv.stop()
	_ = os.Remove(socket)
	eng.Shutdown()
	if err := binding.Close(); err != nil {
		slog.Debug("closing data-control binding", "err", err)
	}
	return runErr
}
