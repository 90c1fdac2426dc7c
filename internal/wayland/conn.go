// Package wayland adapts the deedles.dev/wl client to the object model the
// data-control proxies are written against.
//
// The wl client owns the socket, the wire codec, fd passing over SCM_RIGHTS
// and the id table. This package adds what a clipboard daemon needs on top:
// per-object event handlers, serials that stay unique when wire ids are
// reused, and destroyed objects that swallow late events (closing their fds)
// until the compositor confirms the delete.
//
//	request:  Object.Request ──▶ wire.MessageBuilder ──▶ client queue ──Flush──▶ socket
//	event:    socket ──▶ client ──Dispatch──▶ Object.Dispatch ──▶ Handler
//
// Requests may be issued from any goroutine. Events are delivered only on the
// goroutine calling Dispatch.
package wayland

import (
	"errors"
	"fmt"
	"os"
	"sync"

	wl "deedles.dev/wl/client"
	"deedles.dev/wl/wire"
)

var (
	// ErrProtocol reports an event the interface description does not allow.
	ErrProtocol = errors.New("wayland: protocol error")

	// ErrClosed is returned by Dispatch once the compositor connection is gone.
	ErrClosed = errors.New("wayland: connection closed")
)

const (
	displaySync        = 0
	displayGetRegistry = 1
)

// Interface names a protocol interface and lists the signature of each event
// by opcode, using libwayland's signature letters (i u f s o n a h).
type Interface struct {
	Name   string
	Events []string
}

var (
	RegistryInterface = &Interface{Name: "wl_registry", Events: []string{"usu", "u"}}
	CallbackInterface = &Interface{Name: "wl_callback", Events: []string{"u"}}
	SeatInterface     = &Interface{Name: "wl_seat", Events: []string{"u", "s"}}
)

// Handler receives the events of one object.
type Handler func(ev *Event)

// Conn is a connection to a Wayland compositor.
type Conn struct {
	client *wl.Client

	// mu serialises use of the client by request goroutines.
	mu     sync.Mutex
	serial uint64
	fatal  error
}

// Dial connects to the compositor named by WAYLAND_SOCKET or
// WAYLAND_DISPLAY.
func Dial() (*Conn, error) {
	client, err := wl.Dial()
	if err != nil {
		return nil, fmt.Errorf("wayland: connect: %w", err)
	}
	return &Conn{client: client}, nil
}

// Close closes the connection. A blocked Dispatch returns ErrClosed.
func (c *Conn) Close() error { return c.client.Close() }

// NewObject allocates a client-side id for a new object.
func (c *Conn) NewObject(iface *Interface, version uint32) *Object {
	o := c.newObject(iface, version)
	c.mu.Lock()
	c.client.Add(o)
	c.mu.Unlock()
	return o
}

// Adopt registers an object the compositor created through a new_id event
// argument.
func (c *Conn) Adopt(id uint32, iface *Interface, version uint32) *Object {
	o := c.newObject(iface, version)
	o.id = id
	o.server = true
	c.mu.Lock()
	c.client.Set(id, o)
	c.mu.Unlock()
	return o
}

func (c *Conn) newObject(iface *Interface, version uint32) *Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serial++
	return &Object{conn: c, iface: iface, version: version, serial: c.serial}
}

// request encodes one request. Supported argument types are uint32, int32,
// string, *Object (nil encodes the null object) and *os.File, which must stay
// open until the next Flush.
func (c *Conn) request(sender wire.Object, opcode uint16, args ...any) error {
	msg := wire.NewMessage(sender, opcode)
	for _, a := range args {
		switch v := a.(type) {
		case uint32:
			msg.WriteUint(v)
		case int32:
			msg.WriteInt(v)
		case string:
			msg.WriteString(v)
		case *Object:
			var id uint32
			if v != nil {
				id = v.ID()
			}
			msg.WriteUint(id)
		case *os.File:
			msg.WriteFile(v)
		default:
			return fmt.Errorf("wayland: unsupported argument type %T", a)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal != nil {
		return c.fatal
	}
	c.client.Enqueue(msg)
	return nil
}

// Flush writes all queued requests.
func (c *Conn) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal != nil {
		return c.fatal
	}
	if err := c.client.Flush(); err != nil {
		return fmt.Errorf("wayland: flush: %w", err)
	}
	return nil
}

// Dispatch flushes pending requests, waits for the next event and delivers
// it.
func (c *Conn) Dispatch() error {
	if err := c.Flush(); err != nil {
		return err
	}
	ev, ok := <-c.client.Events()
	if !ok {
		c.fail(ErrClosed)
		return ErrClosed
	}
	ev()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatal
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.fatal == nil {
		c.fatal = err
	}
	c.mu.Unlock()
}

// Roundtrip blocks until the compositor has processed every request sent so
// far and all resulting events have been dispatched.
func (c *Conn) Roundtrip() error {
	cb := c.NewObject(CallbackInterface, 1)
	done := false
	cb.SetHandler(func(*Event) { done = true })
	if err := c.request(c.client.Display(), displaySync, cb); err != nil {
		return err
	}
	for !done {
		if err := c.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}

// Object is a client-side proxy for a protocol object. It implements
// wire.Object so the wl client can route events to it.
type Object struct {
	conn    *Conn
	id      uint32
	iface   *Interface
	version uint32
	serial  uint64
	server  bool

	mu      sync.Mutex
	handler Handler
	retired bool
}

// ID returns the wire id. Wire ids are recycled; use Serial for identity.
func (o *Object) ID() uint32 { return o.id }

// SetID is called by the wl client when it allocates the id.
func (o *Object) SetID(id uint32) { o.id = id }

// Serial is unique for the lifetime of the connection.
func (o *Object) Serial() uint64 { return o.serial }

// Version returns the bound protocol version.
func (o *Object) Version() uint32 { return o.version }

// MethodName names a request for the client's debug output.
func (o *Object) MethodName(opcode uint16) string {
	return fmt.Sprintf("%s#%d", o.iface.Name, opcode)
}

func (o *Object) String() string { return fmt.Sprintf("%s@%d", o.iface.Name, o.id) }

// SetHandler installs the event handler. It must be set before the first
// Dispatch that could deliver events to the object.
func (o *Object) SetHandler(h Handler) {
	o.mu.Lock()
	o.handler = h
	o.mu.Unlock()
}

// Request queues a request on the object.
func (o *Object) Request(opcode uint16, args ...any) error {
	return o.conn.request(o, opcode, args...)
}

// Destroy queues a destructor request and retires the object. Events still in
// flight for it are dropped. Compositor-created ids leave the client's table at
// once; client ids stay reserved until delete_id.
func (o *Object) Destroy(opcode uint16) error {
	err := o.conn.request(o, opcode)
	o.mu.Lock()
	o.retired = true
	o.handler = nil
	o.mu.Unlock()
	if o.server {
		o.conn.mu.Lock()
		o.conn.client.Delete(o.id)
		o.conn.mu.Unlock()
	}
	return err
}

// Dispatch implements wire.Object.
func (o *Object) Dispatch(msg *wire.MessageBuffer) error {
	opcode := msg.Op()
	if int(opcode) >= len(o.iface.Events) {
		err := fmt.Errorf("%w: %s has no event %d", ErrProtocol, o.iface.Name, opcode)
		o.conn.fail(err)
		return err
	}
	o.mu.Lock()
	h := o.handler
	o.mu.Unlock()

	ev := &Event{Opcode: opcode, msg: msg}
	if h == nil {
		ev.closeFDs(o.iface.Events[opcode])
		return nil
	}
	h(ev)
	return nil
}

// Delete implements wire.Object; the client calls it once the id is free.
func (o *Object) Delete() {
	o.mu.Lock()
	o.retired = true
	o.handler = nil
	o.mu.Unlock()
}

// Event is one event delivered to an Object's Handler. Arguments are read in
// order.
type Event struct {
	Opcode uint16
	msg    *wire.MessageBuffer
	err    error
}

// Uint reads a uint argument.
func (e *Event) Uint() uint32 { return e.msg.ReadUint() }

// Int reads an int argument.
func (e *Event) Int() int32 { return e.msg.ReadInt() }

// Object reads an object argument; 0 is the null object.
func (e *Event) Object() uint32 { return e.msg.ReadUint() }

// NewID reads a typed new_id argument.
func (e *Event) NewID() uint32 { return e.msg.ReadUint() }

// Str reads a string argument.
func (e *Event) Str() string { return e.msg.ReadString() }

// FD takes ownership of the next file descriptor. The caller must close it.
func (e *Event) FD() *os.File {
	f := e.msg.ReadFile()
	if f == nil && e.err == nil {
		e.err = fmt.Errorf("%w: missing file descriptor", ErrProtocol)
	}
	return f
}

// Err returns the first decoding error.
func (e *Event) Err() error { return e.err }

// closeFDs releases the descriptors of an event nobody handles.
func (e *Event) closeFDs(sig string) {
	for _, c := range sig {
		if c != 'h' {
			continue
		}
		if f := e.msg.ReadFile(); f != nil {
			_ = f.Close()
		}
	}
}
