package datacontrol

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipd/internal/wayland"
	"go.klb.dev/clipd/internal/wayland/wltest"
)

type recorder struct {
	offers    []Offer
	mimes     map[uint64][]string
	selection Offer
	cleared   bool
	primary   int
	finished  bool
	sends     []string
	sendFD    *os.File
	cancelled []Source
}

func newRecorder() *recorder { return &recorder{mimes: make(map[uint64][]string)} }

func (r *recorder) DataOffer(o Offer)              { r.offers = append(r.offers, o) }
func (r *recorder) OfferMIME(o Offer, mime string) { r.mimes[o.Key()] = append(r.mimes[o.Key()], mime) }
func (r *recorder) PrimarySelection(Offer)         { r.primary++ }
func (r *recorder) Finished()                      { r.finished = true }
func (r *recorder) Cancelled(s Source)             { r.cancelled = append(r.cancelled, s) }

func (r *recorder) Selection(o Offer) {
	if o == nil {
		r.cleared = true
		return
	}
	r.selection = o
}

func (r *recorder) Send(_ Source, mime string, fd *os.File) {
	r.sends = append(r.sends, mime)
	r.sendFD = fd
}

// handshake answers the registry roundtrip with the given globals.
func handshake(p *wltest.Peer, globals []wayland.Global) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- p.Handshake(globals...) }()
	return errc
}

type bound struct {
	b        *Binding
	peer     *wltest.Peer
	conn     *wayland.Conn
	rec      *recorder
	deviceID uint32
	mgrID    uint32
}

func bindWith(t *testing.T, globals []wayland.Global) bound {
	t.Helper()
	c, p := wltest.Pair(t)
	errc := handshake(p, globals)
	rec := newRecorder()
	b, err := Bind(c, rec)
	require.NoError(t, err)
	require.NoError(t, <-errc)

	seatBind, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, uint16(0), seatBind.Opcode)
	seatBind.Args.Uint()
	assert.Equal(t, "wl_seat", seatBind.Args.Str())
	seatBind.Args.Uint()
	seatID := seatBind.Args.NewID()

	mgrBind, err := p.Next()
	require.NoError(t, err)
	mgrBind.Args.Uint()
	assert.Equal(t, b.Variant().Manager.Name, mgrBind.Args.Str())
	mgrBind.Args.Uint()
	mgrID := mgrBind.Args.NewID()

	dev, err := p.Expect(mgrID, managerGetDataDevice)
	require.NoError(t, err)
	deviceID := dev.Args.NewID()
	assert.Equal(t, seatID, dev.Args.Object())

	return bound{b: b, peer: p, conn: c, rec: rec, deviceID: deviceID, mgrID: mgrID}
}

func TestBindPrefersExt(t *testing.T) {
	bd := bindWith(t, []wayland.Global{
		{Name: 1, Interface: "wl_seat", Version: 7},
		{Name: 2, Interface: "zwlr_data_control_manager_v1", Version: 2},
		{Name: 3, Interface: "ext_data_control_manager_v1", Version: 1},
	})
	assert.Equal(t, "ext", bd.b.Variant().Name)
}

func TestBindFallsBackToWlr(t *testing.T) {
	bd := bindWith(t, []wayland.Global{
		{Name: 1, Interface: "wl_seat", Version: 7},
		{Name: 2, Interface: "zwlr_data_control_manager_v1", Version: 1},
	})
	assert.Equal(t, "wlr", bd.b.Variant().Name)
	assert.Equal(t, uint32(1), bd.b.manager.Version())
}

func TestBindFailures(t *testing.T) {
	tests := []struct {
		name    string
		globals []wayland.Global
		want    error
	}{
		{
			name:    "NoSeat",
			globals: []wayland.Global{{Name: 1, Interface: "ext_data_control_manager_v1", Version: 1}},
			want:    ErrNoSeat,
		},
		{
			name:    "NoManager",
			globals: []wayland.Global{{Name: 1, Interface: "wl_seat", Version: 7}},
			want:    ErrNoDataControl,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, p := wltest.Pair(t)
			errc := handshake(p, tt.globals)
			_, err := Bind(c, newRecorder())
			require.NoError(t, <-errc)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOfferLifecycle(t *testing.T) {
	bd := bindWith(t, []wayland.Global{
		{Name: 1, Interface: "wl_seat", Version: 7},
		{Name: 2, Interface: "ext_data_control_manager_v1", Version: 1},
	})
	const offerID = 0xff000001

	require.NoError(t, bd.peer.Send(bd.deviceID, deviceEventDataOffer, uint32(offerID)))
	require.NoError(t, bd.peer.Send(offerID, offerEventOffer, "text/plain;charset=utf-8"))
	require.NoError(t, bd.peer.Send(offerID, offerEventOffer, "TEXT"))
	require.NoError(t, bd.peer.Send(bd.deviceID, deviceEventSelection, uint32(offerID)))
	for bd.rec.selection == nil {
		require.NoError(t, bd.conn.Dispatch())
	}

	require.Len(t, bd.rec.offers, 1)
	o := bd.rec.offers[0]
	assert.Equal(t, o.Key(), bd.rec.selection.Key())
	assert.Equal(t, []string{"text/plain;charset=utf-8", "TEXT"}, bd.rec.mimes[o.Key()])

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, o.Receive("TEXT", w))
	require.NoError(t, bd.b.Flush())
	require.NoError(t, w.Close())

	req, err := bd.peer.Expect(offerID, offerReceive)
	require.NoError(t, err)
	assert.Equal(t, "TEXT", req.Args.Str())
	f, err := bd.peer.TakeFD()
	require.NoError(t, err)
	_, _ = f.Write([]byte("payload"))
	require.NoError(t, f.Close())
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	require.NoError(t, o.Destroy())
	require.NoError(t, bd.b.Flush())
	_, err = bd.peer.Expect(offerID, offerDestroy)
	require.NoError(t, err)

	require.NoError(t, bd.peer.Send(bd.deviceID, deviceEventSelection, uint32(0)))
	for !bd.rec.cleared {
		require.NoError(t, bd.conn.Dispatch())
	}
}

func TestSourceLifecycle(t *testing.T) {
	bd := bindWith(t, []wayland.Global{
		{Name: 1, Interface: "wl_seat", Version: 7},
		{Name: 2, Interface: "zwlr_data_control_manager_v1", Version: 2},
	})

	src, err := bd.b.CreateSource()
	require.NoError(t, err)
	require.NoError(t, src.Offer("text/plain"))
	require.NoError(t, bd.b.SetSelection(src))
	require.NoError(t, bd.b.Flush())

	create, err := bd.peer.Expect(bd.mgrID, managerCreateDataSource)
	require.NoError(t, err)
	srcID := create.Args.NewID()
	offered, err := bd.peer.Expect(srcID, sourceOffer)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", offered.Args.Str())
	sel, err := bd.peer.Expect(bd.deviceID, deviceSetSelection)
	require.NoError(t, err)
	assert.Equal(t, srcID, sel.Args.Object())

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, bd.peer.Send(srcID, sourceEventSend, "text/plain", wltest.FD(w.Fd())))
	require.NoError(t, w.Close())
	for bd.rec.sendFD == nil {
		require.NoError(t, bd.conn.Dispatch())
	}
	assert.Equal(t, []string{"text/plain"}, bd.rec.sends)
	_, _ = bd.rec.sendFD.Write([]byte("hello"))
	require.NoError(t, bd.rec.sendFD.Close())
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	require.NoError(t, bd.peer.Send(srcID, sourceEventCancelled))
	for len(bd.rec.cancelled) == 0 {
		require.NoError(t, bd.conn.Dispatch())
	}
	assert.Equal(t, src.Key(), bd.rec.cancelled[0].Key())
}

func TestFinished(t *testing.T) {
	bd := bindWith(t, []wayland.Global{
		{Name: 1, Interface: "wl_seat", Version: 7},
		{Name: 2, Interface: "ext_data_control_manager_v1", Version: 1},
	})
	require.NoError(t, bd.peer.Send(bd.deviceID, deviceEventFinished))
	for !bd.rec.finished {
		require.NoError(t, bd.conn.Dispatch())
	}
}
