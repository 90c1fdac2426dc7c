package datacontrol

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"go.klb.dev/clipd/internal/wayland"
)

var (
	// ErrNoSeat means the compositor exposes no wl_seat.
	ErrNoSeat = errors.New("wl_seat is not available: the session exposes no input seat, so no data device can be created")

	// ErrNoDataControl means neither protocol variant is available.
	ErrNoDataControl = errors.New("neither ext_data_control_manager_v1 nor zwlr_data_control_manager_v1 is exposed by the compositor")
)

// Offer is a selection announced by the compositor.
type Offer interface {
	// Key identifies the offer for the lifetime of the connection.
	Key() uint64
	// Receive asks the owner to write mime data into w.
	Receive(mime string, w *os.File) error
	Destroy() error
}

// Source is a selection this process offers to the compositor.
type Source interface {
	Key() uint64
	Offer(mime string) error
	Destroy() error
}

// Controller is the capability set the clipboard engine needs, independent of
// the bound variant.
type Controller interface {
	CreateSource() (Source, error)
	// SetSelection makes src the selection; nil clears it.
	SetSelection(src Source) error
	Flush() error
}

// Handler receives device, offer and source events. All methods are invoked
// on the dispatching goroutine.
type Handler interface {
	DataOffer(o Offer)
	OfferMIME(o Offer, mime string)
	// Selection reports the new selection; o is nil when it was cleared.
	Selection(o Offer)
	PrimarySelection(o Offer)
	Finished()
	// Send asks for mime data to be written to fd; the handler closes fd.
	Send(s Source, mime string, fd *os.File)
	Cancelled(s Source)
}

// Binding is a bound manager and data device.
type Binding struct {
	conn    *wayland.Conn
	variant Variant
	handler Handler
	seat    *wayland.Object
	manager *wayland.Object
	device  *wayland.Object

	mu     sync.Mutex
	offers map[uint32]*offer
}

// Bind negotiates the protocol: it requires wl_seat, prefers Ext over Wlr and
// obtains the data device for the seat. Events are delivered to h once the
// caller starts dispatching.
func Bind(conn *wayland.Conn, h Handler) (*Binding, error) {
	reg, err := conn.GetRegistry()
	if err != nil {
		return nil, err
	}

	sg, ok := reg.Find(wayland.SeatInterface.Name)
	if !ok {
		return nil, ErrNoSeat
	}

	var (
		variant Variant
		mg      wayland.Global
		found   bool
	)
	for _, v := range Preference {
		if mg, found = reg.Find(v.Manager.Name); found {
			variant = v
			break
		}
	}
	if !found {
		return nil, ErrNoDataControl
	}

	b := &Binding{
		conn:    conn,
		variant: variant,
		handler: h,
		offers:  make(map[uint32]*offer),
	}
	if b.seat, err = reg.Bind(sg, wayland.SeatInterface, 2); err != nil {
		return nil, err
	}
	if b.manager, err = reg.Bind(mg, variant.Manager, variant.MaxVersion); err != nil {
		return nil, err
	}
	b.device = conn.NewObject(variant.Device, b.manager.Version())
	b.device.SetHandler(b.handleDevice)
	if err := b.manager.Request(managerGetDataDevice, b.device, b.seat); err != nil {
		return nil, fmt.Errorf("get_data_device: %w", err)
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}

	slog.Info("data-control protocol bound",
		"protocol", variant.Manager.Name,
		"version", b.manager.Version(),
	)
	return b, nil
}

// Variant reports the negotiated protocol variant.
func (b *Binding) Variant() Variant { return b.variant }

// CreateSource implements Controller.
func (b *Binding) CreateSource() (Source, error) {
	obj := b.conn.NewObject(b.variant.Source, b.manager.Version())
	s := &source{obj: obj}
	obj.SetHandler(func(ev *wayland.Event) { b.handleSource(s, ev) })
	if err := b.manager.Request(managerCreateDataSource, obj); err != nil {
		return nil, fmt.Errorf("create_data_source: %w", err)
	}
	return s, nil
}

// SetSelection implements Controller.
func (b *Binding) SetSelection(src Source) error {
	var obj *wayland.Object
	if src != nil {
		s, ok := src.(*source)
		if !ok {
			return fmt.Errorf("set_selection: foreign source %T", src)
		}
		obj = s.obj
	}
	return b.device.Request(deviceSetSelection, obj)
}

// Flush implements Controller.
func (b *Binding) Flush() error { return b.conn.Flush() }

// Close destroys the device and manager.
func (b *Binding) Close() error {
	b.mu.Lock()
	for id, o := range b.offers {
		if !o.dead.Swap(true) {
			_ = o.obj.Destroy(offerDestroy)
		}
		delete(b.offers, id)
	}
	b.mu.Unlock()
	errDev := b.device.Destroy(deviceDestroy)
	errMgr := b.manager.Destroy(managerDestroy)
	return errors.Join(errDev, errMgr, b.conn.Flush())
}

func (b *Binding) handleDevice(ev *wayland.Event) {
	switch ev.Opcode {
	case deviceEventDataOffer:
		id := ev.NewID()
		if ev.Err() != nil {
			return
		}
		o := &offer{b: b, obj: b.conn.Adopt(id, b.variant.Offer, b.device.Version())}
		o.obj.SetHandler(func(ev *wayland.Event) {
			if ev.Opcode == offerEventOffer {
				b.handler.OfferMIME(o, ev.Str())
			}
		})
		b.mu.Lock()
		b.offers[id] = o
		b.mu.Unlock()
		b.handler.DataOffer(o)

	case deviceEventSelection, deviceEventPrimarySelection:
		id := ev.Object()
		var o Offer
		if id != 0 {
			b.mu.Lock()
			if known, ok := b.offers[id]; ok {
				o = known
			}
			b.mu.Unlock()
			if o == nil {
				slog.Debug("selection names untracked offer", "object", id)
				return
			}
		}
		if ev.Opcode == deviceEventSelection {
			b.handler.Selection(o)
		} else {
			b.handler.PrimarySelection(o)
		}

	case deviceEventFinished:
		b.handler.Finished()
	}
}

func (b *Binding) handleSource(s *source, ev *wayland.Event) {
	switch ev.Opcode {
	case sourceEventSend:
		mime := ev.Str()
		fd := ev.FD()
		if ev.Err() != nil {
			if fd != nil {
				_ = fd.Close()
			}
			return
		}
		b.handler.Send(s, mime, fd)
	case sourceEventCancelled:
		b.handler.Cancelled(s)
	}
}

type source struct {
	obj  *wayland.Object
	dead atomic.Bool
}

func (s *source) Key() uint64 { return s.obj.Serial() }

func (s *source) Offer(mime string) error { return s.obj.Request(sourceOffer, mime) }

// Destroy is idempotent.
func (s *source) Destroy() error {
	if s.dead.Swap(true) {
		return nil
	}
	return s.obj.Destroy(sourceDestroy)
}

type offer struct {
	b    *Binding
	obj  *wayland.Object
	dead atomic.Bool
}

func (o *offer) Key() uint64 { return o.obj.Serial() }

func (o *offer) Receive(mime string, w *os.File) error {
	return o.obj.Request(offerReceive, mime, w)
}

func (o *offer) Destroy() error {
	if o.dead.Swap(true) {
		return nil
	}
	o.b.mu.Lock()
	if o.b.offers[o.obj.ID()] == o {
		delete(o.b.offers, o.obj.ID())
	}
	o.b.mu.Unlock()
	return o.obj.Destroy(offerDestroy)
}
