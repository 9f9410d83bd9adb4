package domain

import "time"

// EventType is the closed enum of behavioral observation kinds (§3).
type EventType string

const (
	EventKeystroke        EventType = "keystroke"
	EventMouseClick       EventType = "mouse_click"
	EventMouseMove        EventType = "mouse_move"
	EventScroll           EventType = "scroll"
	EventFocus            EventType = "focus"
	EventBlur             EventType = "blur"
	EventDeviceInfo       EventType = "device_info"
	EventVisibilityChange EventType = "visibility_change"
	EventSessionStart     EventType = "session_start"
)

// ValidEventTypes is used by the Ingest boundary to reject unknown
// event_type values (ValidationFailed, per §7).
var ValidEventTypes = map[EventType]bool{
	EventKeystroke: true, EventMouseClick: true, EventMouseMove: true,
	EventScroll: true, EventFocus: true, EventBlur: true,
	EventDeviceInfo: true, EventVisibilityChange: true, EventSessionStart: true,
}

// Payload is the tagged-variant per-event_type data (§9 design note:
// "a tagged variant Event = { type, common_fields, payload }"). Only
// the fields relevant to the event's type are populated; analyzers
// read the fields they need and ignore the rest.
type Payload struct {
	// keystroke
	Key string `json:"key,omitempty"`

	// mouse_move / mouse_click
	X, Y       float64 `json:"x,omitempty"`
	TargetW    float64 `json:"target_w,omitempty"`
	TargetH    float64 `json:"target_h,omitempty"`
	TargetHitX float64 `json:"target_hit_x,omitempty"` // click offset from target center, x
	TargetHitY float64 `json:"target_hit_y,omitempty"` // click offset from target center, y

	// device_info / any event carrying screen+viewport
	ScreenWidth   int    `json:"screen_width,omitempty"`
	ScreenHeight  int    `json:"screen_height,omitempty"`
	ViewportWidth int    `json:"viewport_width,omitempty"`
	ViewportHeight int   `json:"viewport_height,omitempty"`
	Locale        string `json:"locale,omitempty"`

	// scroll
	ScrollY float64 `json:"scroll_y,omitempty"`

	// visibility_change
	Visible bool `json:"visible,omitempty"`
}

// Event is a single behavioral observation (§3). Events are
// append-only and, once persisted, appear in timestamp order for any
// subsequent read of the same session (§5 ordering guarantee).
type Event struct {
	SessionID   string
	EventType   EventType
	Timestamp   time.Time
	Payload     Payload
	ElementID   string
	ElementType string
}

// Validate checks the boundary invariants for one event: a known
// event_type and a non-zero timestamp. Session existence is checked
// by the caller (Ingest), not here, since that requires a Store round
// trip.
func (e Event) Validate() error {
	if !ValidEventTypes[e.EventType] {
		return NewError(KindValidationFailed, "unknown event_type: "+string(e.EventType), nil)
	}
	if e.Timestamp.IsZero() {
		return NewError(KindValidationFailed, "timestamp is required", nil)
	}
	return nil
}

// HasScreenInfo reports whether this event carries a screen-size
// reading the Device analyzer can use (§4.2.4). Viewport readings are
// reported separately by HasViewportInfo.
func (e Event) HasScreenInfo() bool {
	return e.Payload.ScreenWidth > 0 && e.Payload.ScreenHeight > 0
}

// HasViewportInfo reports whether this event carries a viewport reading.
func (e Event) HasViewportInfo() bool {
	return e.Payload.ViewportWidth > 0 && e.Payload.ViewportHeight > 0
}
