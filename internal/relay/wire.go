// Package relay carries shape transactions and presence between processes over
// websockets. The server owns one sequencing document per board; clients hold
// replicas and presence workspaces fed by the relay.
package relay

import (
	"errors"

	"canvas/internal/presence"
	"canvas/internal/replica"
)

// ErrProtocol is returned for malformed or unexpected frames.
var ErrProtocol = errors.New("relay: protocol error")

// MsgType tags every frame.
type MsgType string

const (
	MsgWelcome   MsgType = "welcome"   // server → client, first frame
	MsgSubmit    MsgType = "submit"    // client → server
	MsgSequenced MsgType = "sequenced" // server → every client, sender included
	MsgPresence  MsgType = "presence"  // both ways, never echoed
	MsgJoin      MsgType = "join"      // server → others
	MsgLeave     MsgType = "leave"     // server → others
	MsgError     MsgType = "error"     // server → client
)

// Envelope is the single JSON frame shape. Only the fields relevant to Type are set.
type Envelope struct {
	Type      MsgType            `json:"type"`
	ClientID  string             `json:"clientId,omitempty"`
	Snapshot  *replica.Snapshot  `json:"snapshot,omitempty"`
	Attendees []string           `json:"attendees,omitempty"`
	Txn       *replica.Txn       `json:"txn,omitempty"`
	Sequenced *replica.Sequenced `json:"sequenced,omitempty"`
	Presence  *presence.Message  `json:"presence,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Welcome is what a client learns when it connects.
type Welcome struct {
	ClientID  string
	Snapshot  replica.Snapshot
	Attendees []string
}
