package wayland_test

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipd/internal/wayland"
	"go.klb.dev/clipd/internal/wayland/wltest"
)

var testSource = &wayland.Interface{Name: "test_source", Events: []string{"sh", ""}}

func TestRoundtrip(t *testing.T) {
	c, p := wltest.Pair(t)

	errc := make(chan error, 1)
	go func() {
		cb, err := p.ExpectSync()
		if err != nil {
			errc <- err
			return
		}
		errc <- p.Done(cb)
	}()

	require.NoError(t, c.Roundtrip())
	require.NoError(t, <-errc)
}

func TestRegistryCollectsGlobals(t *testing.T) {
	c, p := wltest.Pair(t)

	errc := make(chan error, 1)
	go func() {
		errc <- p.Handshake(
			wayland.Global{Name: 4, Interface: "wl_seat", Version: 7},
			wayland.Global{Name: 9, Interface: "ext_data_control_manager_v1", Version: 1},
		)
	}()

	reg, err := c.GetRegistry()
	require.NoError(t, err)
	require.NoError(t, <-errc)

	g, ok := reg.Find("ext_data_control_manager_v1")
	require.True(t, ok)
	assert.Equal(t, wayland.Global{Name: 9, Interface: "ext_data_control_manager_v1", Version: 1}, g)
	_, ok = reg.Find("zwlr_data_control_manager_v1")
	assert.False(t, ok)
}

func TestRequestPassesFD(t *testing.T) {
	c, p := wltest.Pair(t)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	o := c.NewObject(testSource, 1)
	require.NoError(t, o.Request(0, "text/plain", w))
	require.NoError(t, c.Flush())
	require.NoError(t, w.Close())

	req, err := p.Expect(o.ID(), 0)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", req.Args.Str())

	f, err := p.TakeFD()
	require.NoError(t, err)
	_, err = f.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}

func TestEventDeliversFD(t *testing.T) {
	c, p := wltest.Pair(t)

	o := c.NewObject(testSource, 1)
	var (
		mime string
		file *os.File
	)
	o.SetHandler(func(ev *wayland.Event) {
		if ev.Opcode == 0 {
			mime = ev.Str()
			file = ev.FD()
		}
	})

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, p.Send(o.ID(), 0, "image/png", wltest.FD(w.Fd())))
	require.NoError(t, w.Close())

	require.NoError(t, c.Dispatch())
	require.NotNil(t, file)
	assert.Equal(t, "image/png", mime)

	_, err = file.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, file.Close())

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "png", string(got))
}

func TestDestroyedObjectDropsLateEvents(t *testing.T) {
	c, p := wltest.Pair(t)

	o := c.NewObject(testSource, 1)
	called := false
	o.SetHandler(func(*wayland.Event) { called = true })
	id := o.ID()
	require.NoError(t, o.Destroy(1))
	require.NoError(t, c.Flush())

	_, err := p.Expect(id, 1)
	require.NoError(t, err)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, p.Send(id, 0, "text/plain", wltest.FD(w.Fd())))
	require.NoError(t, w.Close())
	require.NoError(t, c.Dispatch())
	assert.False(t, called)

	// the dropped event's fd was closed, so the pipe reports EOF
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHangupEndsDispatch(t *testing.T) {
	c, p := wltest.Pair(t)

	require.NoError(t, p.Close())
	assert.Error(t, c.Dispatch())
	assert.Error(t, c.Dispatch())
}

func TestSerialsAreUnique(t *testing.T) {
	c, _ := wltest.Pair(t)

	seen := make(map[uint64]bool)
	for range 8 {
		o := c.NewObject(testSource, 1)
		assert.False(t, seen[o.Serial()])
		seen[o.Serial()] = true
	}
}
