package wayland

import (
	"fmt"
	"sync"
)

// Global is one entry announced by wl_registry.global.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Registry tracks the compositor's globals.
type Registry struct {
	obj *Object

	mu      sync.Mutex
	globals map[uint32]Global
	order   []uint32
}

// GetRegistry creates the registry and waits for the initial burst of
// globals.
func (c *Conn) GetRegistry() (*Registry, error) {
	r := &Registry{
		obj:     c.NewObject(RegistryInterface, 1),
		globals: make(map[uint32]Global),
	}
	r.obj.SetHandler(r.handle)
	if err := c.request(c.client.Display(), displayGetRegistry, r.obj); err != nil {
		return nil, err
	}
	if err := c.Roundtrip(); err != nil {
		return nil, fmt.Errorf("registry roundtrip: %w", err)
	}
	return r, nil
}

func (r *Registry) handle(ev *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch ev.Opcode {
	case 0: // global
		g := Global{Name: ev.Uint(), Interface: ev.Str(), Version: ev.Uint()}
		if ev.Err() != nil {
			return
		}
		if _, ok := r.globals[g.Name]; !ok {
			r.order = append(r.order, g.Name)
		}
		r.globals[g.Name] = g
	case 1: // global_remove
		delete(r.globals, ev.Uint())
	}
}

// Find returns the first announced global with the given interface name.
func (r *Registry) Find(iface string) (Global, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.order {
		if g, ok := r.globals[name]; ok && g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// Bind binds a global at min(version, advertised version).
func (r *Registry) Bind(g Global, iface *Interface, version uint32) (*Object, error) {
	if g.Version < version {
		version = g.Version
	}
	o := r.obj.conn.NewObject(iface, version)
	if err := r.obj.Request(0, g.Name, iface.Name, version, o); err != nil {
		return nil, fmt.Errorf("bind %s: %w", iface.Name, err)
	}
	return o, nil
}
