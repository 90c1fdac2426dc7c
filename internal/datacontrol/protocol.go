// Package datacontrol speaks the Wayland data-control extension in its two
// flavours: the standard ext_data_control_v1 and the older
// zwlr_data_control_unstable_v1. Both share opcodes and semantics, so each is
// described once as a Variant and driven by the same code.
package datacontrol

import "go.klb.dev/clipd/internal/wayland"

// Request opcodes, identical in both variants.
const (
	managerCreateDataSource = 0
	managerGetDataDevice    = 1
	managerDestroy          = 2

	deviceSetSelection = 0
	deviceDestroy      = 1

	sourceOffer   = 0
	sourceDestroy = 1

	offerReceive = 0
	offerDestroy = 1
)

// Event opcodes.
const (
	deviceEventDataOffer        = 0
	deviceEventSelection        = 1
	deviceEventFinished         = 2
	deviceEventPrimarySelection = 3

	sourceEventSend      = 0
	sourceEventCancelled = 1

	offerEventOffer = 0
)

var (
	deviceEvents = []string{"n", "o", "", "o"}
	sourceEvents = []string{"sh", ""}
	offerEvents  = []string{"s"}
)

// Variant describes one flavour of the protocol.
type Variant struct {
	Name       string
	Manager    *wayland.Interface
	Device     *wayland.Interface
	Source     *wayland.Interface
	Offer      *wayland.Interface
	MaxVersion uint32
}

var (
	// Ext is the standardised ext-data-control-v1 protocol.
	Ext = Variant{
		Name:       "ext",
		Manager:    &wayland.Interface{Name: "ext_data_control_manager_v1"},
		Device:     &wayland.Interface{Name: "ext_data_control_device_v1", Events: deviceEvents},
		Source:     &wayland.Interface{Name: "ext_data_control_source_v1", Events: sourceEvents},
		Offer:      &wayland.Interface{Name: "ext_data_control_offer_v1", Events: offerEvents},
		MaxVersion: 1,
	}

	// Wlr is the wlroots data-control protocol that predates Ext.
	Wlr = Variant{
		Name:       "wlr",
		Manager:    &wayland.Interface{Name: "zwlr_data_control_manager_v1"},
		Device:     &wayland.Interface{Name: "zwlr_data_control_device_v1", Events: deviceEvents},
		Source:     &wayland.Interface{Name: "zwlr_data_control_source_v1", Events: sourceEvents},
		Offer:      &wayland.Interface{Name: "zwlr_data_control_offer_v1", Events: offerEvents},
		MaxVersion: 2,
	}
)

// Preference lists the variants in the order Bind tries them.
var Preference = []Variant{Ext, Wlr}
