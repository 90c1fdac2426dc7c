// clipd: Wayland clipboard history daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/clipd/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipd",
		Short: "Wayland clipboard history",
		Long: `clipd keeps a history of the Wayland clipboard using the data-control
protocol (ext-data-control-v1, or zwlr-data-control-v1 on older compositors).
Copied content is re-offered by the daemon, so it survives the application it
came from exiting.

Run "clipd daemon" inside the Wayland session. Use "clipd history",
"clipd select", "clipd pin" and friends to inspect and drive it.

Config file search order (first found wins):
  /etc/clipd/clipd.toml
  $HOME/.config/clipd/clipd.toml
  path supplied via --config

All flags can be set via CLIPD_<FLAG> env vars or config-file keys.
See "clipd daemon --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newHistoryCmd(),
		newSelectCmd(),
		newPinCmd(true),
		newPinCmd(false),
		newDeleteCmd(),
		newClearCmd(),
		newCopyCmd(),
		newPasteCmd(),
		newStatusCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("clipd %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.DefaultLevel(interactive)
	if levelStr != "" {
		level = logging.ParseLevel(levelStr)
	}
	logging.Setup(format, level)
}
