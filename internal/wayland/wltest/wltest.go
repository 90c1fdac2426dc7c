// Package wltest provides a scripted compositor for exercising the Wayland
// client. It listens on a socket in a private runtime directory and points
// WAYLAND_DISPLAY at it, so tests using it must not run in parallel.
package wltest

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"go.klb.dev/clipd/internal/wayland"
)

const (
	readTimeout = 5 * time.Second
	displayName = "wayland-test"

	displayID          = 1
	displaySync        = 0
	displayGetRegistry = 1
)

// Request is one request read by the fake compositor.
type Request struct {
	Object uint32
	Opcode uint16
	Args   *Args
}

// Peer is the compositor end of a client connection.
type Peer struct {
	conn       *net.UnixConn
	buf        []byte
	fds        []int
	registries []uint32
}

// Pair connects a client to a fresh fake compositor. Both ends are closed
// when the test finishes.
func Pair(t testing.TB) (*wayland.Conn, *Peer) {
	t.Helper()
	// t.TempDir paths can exceed the sun_path limit.
	dir, err := os.MkdirTemp("", "wltest")
	if err != nil {
		t.Fatalf("runtime dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Net: "unix", Name: filepath.Join(dir, displayName)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv("WAYLAND_DISPLAY", displayName)
	t.Setenv("WAYLAND_SOCKET", "")
	_ = os.Unsetenv("WAYLAND_SOCKET")

	accepted := make(chan *net.UnixConn, 1)
	go func() {
		_ = ln.SetDeadline(time.Now().Add(readTimeout))
		conn, err := ln.AcceptUnix()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	c, err := wayland.Dial()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	server, ok := <-accepted
	if !ok {
		_ = c.Close()
		t.Fatal("compositor did not accept the client")
	}

	p := &Peer{conn: server}
	t.Cleanup(func() {
		_ = c.Close()
		_ = p.Close()
		for _, fd := range p.fds {
			_ = unix.Close(fd)
		}
	})
	return c, p
}

// Close hangs up on the client.
func (p *Peer) Close() error { return p.conn.Close() }

// Next blocks until one complete request has arrived. Registry creation is
// recorded for Handshake.
func (p *Peer) Next() (Request, error) {
	for {
		id, opcode, body, rest, ok, err := split(p.buf)
		if err != nil {
			return Request{}, err
		}
		if ok {
			p.buf = rest
			r := Request{Object: id, Opcode: opcode, Args: &Args{body: body}}
			if id == displayID && opcode == displayGetRegistry {
				p.registries = append(p.registries, (&Args{body: body}).NewID())
			}
			return r, nil
		}
		if err := p.read(); err != nil {
			return Request{}, err
		}
	}
}

// Expect reads the next request and checks its target and opcode.
func (p *Peer) Expect(object uint32, opcode uint16) (Request, error) {
	r, err := p.Next()
	if err != nil {
		return r, err
	}
	if r.Object != object || r.Opcode != opcode {
		return r, fmt.Errorf("wltest: got request %d/%d, want %d/%d", r.Object, r.Opcode, object, opcode)
	}
	return r, nil
}

// ExpectSync skips registry creation and returns the callback id of the next
// wl_display.sync.
func (p *Peer) ExpectSync() (uint32, error) {
	for {
		r, err := p.Next()
		if err != nil {
			return 0, err
		}
		if r.Object != displayID {
			return 0, fmt.Errorf("wltest: got request %d/%d, want wl_display.sync", r.Object, r.Opcode)
		}
		if r.Opcode == displaySync {
			return r.Args.NewID(), nil
		}
	}
}

// Handshake answers the client's registry roundtrip: it announces globals
// on every registry created so far and completes the sync.
func (p *Peer) Handshake(globals ...wayland.Global) error {
	cb, err := p.ExpectSync()
	if err != nil {
		return err
	}
	for _, reg := range p.registries {
		for _, g := range globals {
			if err := p.Global(reg, g.Name, g.Interface, g.Version); err != nil {
				return err
			}
		}
	}
	return p.Done(cb)
}

// TakeFD returns the oldest file descriptor received and not yet taken.
func (p *Peer) TakeFD() (*os.File, error) {
	for len(p.fds) == 0 {
		if err := p.read(); err != nil {
			return nil, err
		}
	}
	fd := p.fds[0]
	p.fds = p.fds[1:]
	return os.NewFile(uintptr(fd), "peer-fd"), nil
}

func (p *Peer) read() error {
	buf := make([]byte, 4*maxMessageSize)
	oob := make([]byte, unix.CmsgSpace(28*4))
	_ = p.conn.SetReadDeadline(time.Now().Add(readTimeout))
	n, oobn, _, _, err := p.conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return err
	}
	if oobn > 0 {
		msgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			return err
		}
		for i := range msgs {
			fds, err := unix.ParseUnixRights(&msgs[i])
			if err == nil {
				p.fds = append(p.fds, fds...)
			}
		}
	}
	p.buf = append(p.buf, buf[:n]...)
	return nil
}

// Send writes one event. FD arguments are passed out-of-band.
func (p *Peer) Send(object uint32, opcode uint16, args ...any) error {
	msg, fds, err := marshal(object, opcode, args...)
	if err != nil {
		return err
	}
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	_, _, err = p.conn.WriteMsgUnix(msg, oob, nil)
	return err
}

// Global announces a global on the registry object.
func (p *Peer) Global(registry, name uint32, iface string, version uint32) error {
	return p.Send(registry, 0, name, iface, version)
}

// Done fires a wl_callback and retires its id, as a compositor answers
// wl_display.sync.
func (p *Peer) Done(callback uint32) error {
	if err := p.Send(callback, 0, uint32(0)); err != nil {
		return err
	}
	return p.DeleteID(callback)
}

// DeleteID confirms the destruction of a client object.
func (p *Peer) DeleteID(id uint32) error { return p.Send(displayID, 1, id) }
