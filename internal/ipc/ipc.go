// Package ipc provides the local Unix-socket IPC channel used by the clipd
// CLI and overlay front-ends to talk to a running daemon.
//
// The socket carries three protocols, told apart by cmux in the daemon:
// gRPC, HTTP/JSON through the gateway, and the plain JSON-lines protocol
// served here.
package ipc

import (
	"net"
	"os"
	"path/filepath"
	"time"
)

// SocketPath returns the default path for the IPC socket.
//
//   - $CLIPD_SOCKET when set
//   - $XDG_RUNTIME_DIR/clipd.sock
//   - $TMPDIR/clipd.sock as a fallback
func SocketPath() string {
	if s := os.Getenv("CLIPD_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "clipd.sock")
	}
	return filepath.Join(os.TempDir(), "clipd.sock")
}

// IsRunning reports whether a daemon appears to be listening on path. It does
// a cheap dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	c, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on path, removing any stale socket file first.
// The socket is only accessible to the current user.
func Listen(path string) (net.Listener, error) {
	// Remove stale socket from a previous (crashed) run.
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return nil, err
	}
	return ln, nil
}

// Dial connects to the socket at path.
func Dial(path string) (net.Conn, error) {
	return net.DialTimeout("unix", path, 5*time.Second)
}
