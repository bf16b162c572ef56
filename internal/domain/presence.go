package domain

// Channel names used on the ephemeral presence transport.
const (
	SelectionChannel = "shape:selection"
	DragChannel      = "shape:dragging"
)

// ClientValue is one remote client's latest value on a presence channel.
type ClientValue[T any] struct {
	ClientID  string
	Connected bool
	Value     T
}

// LatestState is a per-client, latest-value-wins ephemeral channel.
// It is never part of durable history.
type LatestState[T any] interface {
	Local() T
	SetLocal(v T)
	// ClientValues returns the latest value of every known remote client,
	// disconnected ones included.
	ClientValues() []ClientValue[T]
	OnLocalUpdated(fn func(T)) (unsubscribe func())
	OnRemoteUpdated(fn func(ClientValue[T])) (unsubscribe func())
}

// Audience tracks the attendees of a session.
type Audience interface {
	Myself() string
	IsConnected(clientID string) bool
	OnAttendeeJoined(fn func(clientID string)) (unsubscribe func())
	OnAttendeeDisconnected(fn func(clientID string)) (unsubscribe func())
}

// DragPackage is the ephemeral drag broadcast. An empty ID means no drag in progress.
type DragPackage struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Active reports whether the package describes an in-progress drag.
func (d DragPackage) Active() bool {
	return d.ID != ""
}
