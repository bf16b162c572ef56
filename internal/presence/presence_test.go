package presence_test

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"canvas/internal/domain"
	"canvas/internal/presence"
)

func TestLatest_LocalUpdateReachesPeers(t *testing.T) {
	hub := presence.NewHub(nil)
	a := hub.Join("alice")
	b := hub.Join("bob")

	dragA := presence.Latest(a, domain.DragChannel, domain.DragPackage{})
	dragB := presence.Latest(b, domain.DragChannel, domain.DragPackage{})

	var seen []domain.ClientValue[domain.DragPackage]
	dragB.OnRemoteUpdated(func(v domain.ClientValue[domain.DragPackage]) { seen = append(seen, v) })

	local := 0
	dragA.OnLocalUpdated(func(domain.DragPackage) { local++ })

	dragA.SetLocal(domain.DragPackage{ID: "s1", X: 10, Y: 20})

	assert.Equal(t, 1, local)
	assert.Equal(t, 1, len(seen))
	assert.Equal(t, "alice", seen[0].ClientID)
	assert.Equal(t, true, seen[0].Connected)
	assert.Equal(t, domain.DragPackage{ID: "s1", X: 10, Y: 20}, seen[0].Value)

	values := dragB.ClientValues()
	assert.Equal(t, 1, len(values))
	assert.Equal(t, "s1", values[0].Value.ID)
	assert.Equal(t, 0, len(dragA.ClientValues()))
}

func TestLatest_LateChannelPicksUpEarlierValues(t *testing.T) {
	hub := presence.NewHub(nil)
	a := hub.Join("alice")
	selA := presence.Latest(a, domain.SelectionChannel, []string{})
	selA.SetLocal([]string{"s1", "s2"})

	b := hub.Join("bob")
	selB := presence.Latest(b, domain.SelectionChannel, []string{})

	values := selB.ClientValues()
	assert.Equal(t, 1, len(values))
	assert.Equal(t, []string{"s1", "s2"}, values[0].Value)
}

func TestWorkspace_LeaveKeepsValueButDisconnects(t *testing.T) {
	hub := presence.NewHub(nil)
	a := hub.Join("alice")
	b := hub.Join("bob")
	selA := presence.Latest(a, domain.SelectionChannel, []string{})
	selB := presence.Latest(b, domain.SelectionChannel, []string{})

	var left []string
	a.OnAttendeeDisconnected(func(id string) { left = append(left, id) })

	selB.SetLocal([]string{"s9"})
	hub.Leave("bob")

	assert.Equal(t, []string{"bob"}, left)
	assert.Equal(t, false, a.IsConnected("bob"))
	values := selA.ClientValues()
	assert.Equal(t, 1, len(values))
	assert.Equal(t, false, values[0].Connected)
	assert.Equal(t, []string{"s9"}, values[0].Value)
}

func TestWorkspace_JoinNotifies(t *testing.T) {
	hub := presence.NewHub(nil)
	a := hub.Join("alice")
	var joined []string
	a.OnAttendeeJoined(func(id string) { joined = append(joined, id) })

	hub.Join("bob")
	hub.Join("carol")

	assert.Equal(t, []string{"bob", "carol"}, joined)
	assert.Equal(t, []string{"bob", "carol"}, a.Attendees())
	assert.Equal(t, true, a.IsConnected("alice"))
	assert.Equal(t, "alice", a.Myself())
}

func TestWorkspace_IgnoresOwnEchoAndBadPayload(t *testing.T) {
	ws := presence.NewWorkspace("alice", nil, nil)
	sel := presence.Latest(ws, domain.SelectionChannel, []string{})

	ws.Receive(presence.Message{Channel: domain.SelectionChannel, ClientID: "alice", Value: []byte(`["x"]`)})
	ws.Receive(presence.Message{Channel: domain.SelectionChannel, ClientID: "bob", Value: []byte(`{bad`)})

	assert.Equal(t, 0, len(sel.ClientValues()))
	assert.Equal(t, true, ws.IsConnected("bob"))
}
