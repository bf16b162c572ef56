package service_test

import (
	"context"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/go-playground/assert/v2"

	"canvas/internal/domain"
	"canvas/internal/presence"
	"canvas/internal/replica"
	"canvas/internal/scene"
	"canvas/internal/service"
)

// rig wires one client's services by hand against in-process hubs.
type rig struct {
	client    *replica.Client
	ws        *presence.Workspace
	canvas    *scene.Canvas
	shapes    *service.ShapeService
	selection *service.SelectionService
	drag      *service.DragService
	recon     *service.Reconciler
	order     *service.OrderingService
	undo      *service.UndoService
	emitter   *service.MockEmitter
}

type hubs struct {
	shapes   *replica.Hub
	presence *presence.Hub
}

func newHubs() *hubs {
	h := &hubs{
		shapes:   replica.NewHub(replica.NewDocument("doc", nil), nil),
		presence: presence.NewHub(nil),
	}
	h.shapes.AutoFlush = true
	return h
}

func (h *hubs) rig(t *testing.T, id string, maxShapes int) *rig {
	t.Helper()
	ctx := context.Background()
	r := &rig{emitter: &service.MockEmitter{}}
	r.client = h.shapes.Connect(id)
	r.ws = h.presence.Join(id)
	r.canvas = scene.New(600, 600, nil)
	r.shapes = service.NewShapeService(ctx, r.client, maxShapes, nil)
	sel := presence.Latest(r.ws, domain.SelectionChannel, []string{})
	drag := presence.Latest(r.ws, domain.DragChannel, domain.DragPackage{})
	r.selection = service.NewSelectionService(ctx, r.shapes, sel, r.ws, r.canvas, r.emitter, nil)
	r.drag = service.NewDragService(ctx, r.shapes, drag, r.ws, r.canvas, true, r.emitter, nil)
	r.recon = service.NewReconciler(ctx, r.shapes, r.canvas, r.drag, r.emitter, nil)
	r.order = service.NewOrderingService(r.shapes, nil)
	r.undo = service.NewUndoService(ctx, r.shapes, 0, r.emitter, nil)
	r.shapes.OnChanged(func(domain.Commit) {
		r.recon.Sync()
		r.selection.RefreshDecorations()
	})
	return r
}

func square(id string, x, y float64) domain.Shape {
	return domain.Shape{ID: id, Type: domain.ShapeSquare, Color: domain.ColorBlue, Position: domain.Position{X: x, Y: y}}
}

func (r *rig) seed(names ...string) {
	shapes := make([]domain.Shape, 0, len(names))
	for i, n := range names {
		shapes = append(shapes, square(n, 100+float64(i)*70, 100))
	}
	r.shapes.InsertMany(shapes)
}

// ─────────────────────────────────────────────────────────────
// ShapeService
// ─────────────────────────────────────────────────────────────

func TestShapeService_InsertManyFillsToCapacity(t *testing.T) {
	r := newHubs().rig(t, "alice", 5)
	r.shapes.InsertEnd(square("first", 100, 100))

	batch := make([]domain.Shape, 0, 8)
	for range 8 {
		batch = append(batch, domain.NewShape(domain.ShapeCircle, domain.ColorRed, 100, 100))
	}
	r.shapes.InsertMany(batch)

	assert.Equal(t, 5, r.shapes.Len())
	assert.Equal(t, true, r.shapes.MaxReached())

	r.shapes.InsertEnd(square("extra", 100, 100))
	assert.Equal(t, 5, r.shapes.Len())
	_, ok := r.shapes.Resolve("extra")
	assert.Equal(t, false, ok)
}

func TestShapeService_ResolveTracksChanges(t *testing.T) {
	r := newHubs().rig(t, "alice", 100)
	r.seed("a", "b", "c")

	i, ok := r.shapes.Resolve("c")
	assert.Equal(t, true, ok)
	assert.Equal(t, 2, i)

	r.shapes.MoveToStart(2)
	i, _ = r.shapes.Resolve("c")
	assert.Equal(t, 0, i)

	r.shapes.RemoveRange(0, 1)
	_, ok = r.shapes.Resolve("c")
	assert.Equal(t, false, ok)
}

func TestShapeService_SetColorSkipsVanishedIDs(t *testing.T) {
	r := newHubs().rig(t, "alice", 100)
	r.seed("a", "b")
	r.shapes.SetColor([]string{"gone", "b"}, domain.ColorGreen)
	assert.Equal(t, domain.ColorBlue, r.shapes.At(0).Color)
	assert.Equal(t, domain.ColorGreen, r.shapes.At(1).Color)
}

// ─────────────────────────────────────────────────────────────
// SelectionService
// ─────────────────────────────────────────────────────────────

func TestSelection_RangesExample(t *testing.T) {
	r := newHubs().rig(t, "alice", 100)
	r.seed("A", "B", "C", "D")
	r.selection.SetSelection("D", "A", "C", "ghost")

	ranges := r.selection.Ranges()
	assert.Equal(t, 2, len(ranges))
	assert.Equal(t, []string{"A"}, ranges[0].IDs)
	assert.Equal(t, 0, ranges[0].Start)
	assert.Equal(t, 1, ranges[0].End)
	assert.Equal(t, []string{"C", "D"}, ranges[1].IDs)
	assert.Equal(t, 2, ranges[1].Start)
	assert.Equal(t, 4, ranges[1].End)
}

func TestSelection_RangesAreMaximalAndCoverSelection(t *testing.T) {
	r := newHubs().rig(t, "alice", 100)
	names := make([]string, 30)
	for i := range names {
		names[i] = string(rune('a'+i%26)) + string(rune('0'+i/26))
	}
	r.seed(names...)

	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 50; round++ {
		var picked []string
		for _, n := range names {
			if rng.IntN(2) == 0 {
				picked = append(picked, n)
			}
		}
		r.selection.SetSelection(picked...)

		var covered []string
		ranges := r.selection.Ranges()
		for i, rg := range ranges {
			assert.Equal(t, rg.End-rg.Start, len(rg.IDs))
			if i > 0 {
				assert.Equal(t, true, rg.Start > ranges[i-1].End)
			}
			covered = append(covered, rg.IDs...)
		}
		want := slices.Clone(picked)
		slices.Sort(want)
		slices.Sort(covered)
		assert.Equal(t, len(want), len(covered))
		assert.Equal(t, true, slices.Equal(want, covered))
	}
}

func TestSelection_PlainAndModifierPolicy(t *testing.T) {
	r := newHubs().rig(t, "alice", 100)
	r.seed("a", "b", "c")

	r.selection.Select("a", false)
	r.selection.Select("b", true)
	assert.Equal(t, []string{"a", "b"}, r.selection.LocalSelected())

	r.selection.Select("a", false)
	assert.Equal(t, []string{"a", "b"}, r.selection.LocalSelected())

	r.selection.Select("c", false)
	assert.Equal(t, []string{"c"}, r.selection.LocalSelected())

	r.selection.Select("c", true)
	assert.Equal(t, 0, len(r.selection.LocalSelected()))
}

func TestSelection_RemotePresenceAndDisconnect(t *testing.T) {
	h := newHubs()
	alice := h.rig(t, "alice", 100)
	bob := h.rig(t, "bob", 100)
	alice.seed("S")

	alice.selection.SetSelection("S")
	bob.selection.SetSelection("S")

	node, ok := alice.canvas.Get("S")
	assert.Equal(t, true, ok)
	assert.Equal(t, true, node.Selected())
	assert.Equal(t, 1, node.Presence())
	assert.Equal(t, []string{"bob"}, alice.selection.RemoteSelectors("S"))

	h.presence.Leave("bob")
	assert.Equal(t, 0, node.Presence())
	assert.Equal(t, 0, len(alice.selection.RemoteSelectors("S")))
	assert.Equal(t, true, node.Selected())
}

func TestSelection_StaleIDDoesNotBreakQueries(t *testing.T) {
	h := newHubs()
	alice := h.rig(t, "alice", 100)
	bob := h.rig(t, "bob", 100)
	alice.seed("a", "b")

	alice.selection.SetSelection("a", "b")
	bob.shapes.RemoveRange(0, 1)

	assert.Equal(t, true, alice.selection.IsSelectedLocal("a"))
	first, ok := alice.selection.First()
	assert.Equal(t, true, ok)
	assert.Equal(t, "b", first)
	assert.Equal(t, 1, len(alice.selection.Ranges()))
}

// ─────────────────────────────────────────────────────────────
// Reconciler
// ─────────────────────────────────────────────────────────────

func TestReconciler_NodeCountMatchesList(t *testing.T) {
	h := newHubs()
	alice := h.rig(t, "alice", 100)
	bob := h.rig(t, "bob", 100)

	alice.seed("a", "b", "c", "d")
	bob.shapes.RemoveRange(1, 3)
	alice.shapes.InsertEnd(square("e", 300, 300))

	for _, r := range []*rig{alice, bob} {
		assert.Equal(t, r.shapes.Len(), len(r.canvas.NodeIDs()))
	}
	assert.Equal(t, []string{"a", "d", "e"}, bob.shapes.IDs())

	n, _ := bob.canvas.Get("e")
	assert.Equal(t, 2, n.ZIndex())
}

func TestReconciler_ShowIndexFansOut(t *testing.T) {
	r := newHubs().rig(t, "alice", 100)
	r.seed("a", "b")
	r.recon.SetShowIndex(true)
	for _, id := range r.canvas.NodeIDs() {
		n, _ := r.canvas.Get(id)
		assert.Equal(t, true, n.ShowIndex())
	}
	r.shapes.InsertEnd(square("c", 300, 300))
	n, _ := r.canvas.Get("c")
	assert.Equal(t, true, n.ShowIndex())
}

// ─────────────────────────────────────────────────────────────
// DragService
// ─────────────────────────────────────────────────────────────

func TestDrag_LocalPositionWinsDuringDrag(t *testing.T) {
	h := newHubs()
	alice := h.rig(t, "alice", 100)
	bob := h.rig(t, "bob", 100)
	alice.seed("A", "B")

	alice.drag.Start("A", domain.Position{X: 110, Y: 105})
	alice.drag.Move(domain.Position{X: 210, Y: 205})

	node, _ := alice.canvas.Get("A")
	assert.Equal(t, domain.Position{X: 200, Y: 200}, node.Position())

	bob.shapes.SetColor([]string{"A"}, domain.ColorOrange)
	assert.Equal(t, domain.Position{X: 200, Y: 200}, node.Position())
	assert.Equal(t, domain.ColorOrange, node.Fill())

	remote, _ := bob.canvas.Get("A")
	assert.Equal(t, domain.Position{X: 200, Y: 200}, remote.Position())
	shape, _ := bob.shapes.Get("A")
	assert.Equal(t, domain.Position{X: 100, Y: 100}, shape.Position)

	alice.drag.End()
	shape, _ = bob.shapes.Get("A")
	assert.Equal(t, domain.Position{X: 200, Y: 200}, shape.Position)
	_, active := alice.drag.Active()
	assert.Equal(t, false, active)
	assert.Equal(t, 0, len(bob.drag.RemoteDrags()))
	assert.Equal(t, 1, alice.emitter.Count(service.EventDragEnded))
}

func TestDrag_ClampsPerAxis(t *testing.T) {
	r := newHubs().rig(t, "alice", 100)
	r.seed("A")

	r.drag.Start("A", domain.Position{X: 100, Y: 100})
	r.drag.Move(domain.Position{X: 590, Y: 150})
	node, _ := r.canvas.Get("A")
	assert.Equal(t, domain.Position{X: 100, Y: 150}, node.Position())

	r.drag.Move(domain.Position{X: 250, Y: -10})
	assert.Equal(t, domain.Position{X: 250, Y: 150}, node.Position())
	r.drag.End()
}

func TestDrag_ClampsRectangleByItsWidth(t *testing.T) {
	r := newHubs().rig(t, "alice", 100)
	rect := domain.Shape{ID: "R", Type: domain.ShapeRectangle, Color: domain.ColorGreen, Position: domain.Position{X: 100, Y: 100}}
	r.shapes.InsertEnd(rect)

	r.drag.Start("R", domain.Position{X: 100, Y: 100})
	r.drag.Move(domain.Position{X: 565, Y: 100})
	node, _ := r.canvas.Get("R")
	assert.Equal(t, domain.Position{X: 100, Y: 100}, node.Position())

	r.drag.Move(domain.Position{X: 555, Y: 570})
	assert.Equal(t, domain.Position{X: 555, Y: 570}, node.Position())
	r.drag.End()

	got, _ := r.shapes.Get("R")
	half := domain.GeometryOf(domain.ShapeRectangle).Width / 2
	assert.Equal(t, true, got.Position.X+half <= 600)
	assert.Equal(t, 555.0, got.Position.X)
}

func TestDrag_WithoutSignalsStaysLocal(t *testing.T) {
	h := newHubs()
	alice := h.rig(t, "alice", 100)
	bob := h.rig(t, "bob", 100)
	alice.seed("A")
	alice.drag.SetUseSignals(false)

	alice.drag.Start("A", domain.Position{X: 100, Y: 100})
	alice.drag.Move(domain.Position{X: 300, Y: 300})
	remote, _ := bob.canvas.Get("A")
	assert.Equal(t, domain.Position{X: 100, Y: 100}, remote.Position())

	alice.drag.End()
	assert.Equal(t, domain.Position{X: 300, Y: 300}, remote.Position())
}

func TestDrag_TargetRemovedMidDrag(t *testing.T) {
	h := newHubs()
	alice := h.rig(t, "alice", 100)
	bob := h.rig(t, "bob", 100)
	alice.seed("A")

	alice.drag.Start("A", domain.Position{X: 100, Y: 100})
	alice.drag.Move(domain.Position{X: 150, Y: 150})
	bob.shapes.RemoveRange(0, 1)
	alice.drag.Move(domain.Position{X: 200, Y: 200})
	alice.drag.End()

	assert.Equal(t, 0, alice.shapes.Len())
	assert.Equal(t, 0, len(bob.drag.RemoteDrags()))
}

// ─────────────────────────────────────────────────────────────
// OrderingService
// ─────────────────────────────────────────────────────────────

func TestOrdering_BoundaryMovesAreNoOps(t *testing.T) {
	r := newHubs().rig(t, "alice", 100)
	r.seed("a", "b", "c")
	commits := 0
	r.shapes.OnChanged(func(domain.Commit) { commits++ })

	r.order.BringForward("c")
	r.order.BringToFront("c")
	r.order.SendBackward("a")
	r.order.SendToBack("a")
	r.order.BringForward("ghost")

	assert.Equal(t, 0, commits)
	assert.Equal(t, []string{"a", "b", "c"}, r.shapes.IDs())
}

func TestOrdering_Moves(t *testing.T) {
	tests := []struct {
		name string
		op   func(*service.OrderingService)
		want []string
	}{
		{"forward", func(o *service.OrderingService) { o.BringForward("a") }, []string{"b", "a", "c", "d"}},
		{"backward", func(o *service.OrderingService) { o.SendBackward("c") }, []string{"a", "c", "b", "d"}},
		{"front", func(o *service.OrderingService) { o.BringToFront("b") }, []string{"a", "c", "d", "b"}},
		{"back", func(o *service.OrderingService) { o.SendToBack("c") }, []string{"c", "a", "b", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newHubs().rig(t, "alice", 100)
			r.seed("a", "b", "c", "d")
			tt.op(r.order)
			assert.Equal(t, tt.want, r.shapes.IDs())
		})
	}
}

// ─────────────────────────────────────────────────────────────
// UndoService
// ─────────────────────────────────────────────────────────────

func TestUndo_StackDiscipline(t *testing.T) {
	h := newHubs()
	alice := h.rig(t, "alice", 100)
	bob := h.rig(t, "bob", 100)

	alice.seed("a", "b")
	assert.Equal(t, true, alice.undo.CanUndo())
	assert.Equal(t, false, bob.undo.CanUndo())

	alice.shapes.SetColor([]string{"a"}, domain.ColorPurple)
	alice.undo.Undo()
	assert.Equal(t, domain.ColorBlue, alice.shapes.At(0).Color)
	assert.Equal(t, true, alice.undo.CanRedo())

	alice.undo.Redo()
	assert.Equal(t, domain.ColorPurple, alice.shapes.At(0).Color)
	assert.Equal(t, false, alice.undo.CanRedo())

	alice.undo.Undo()
	alice.shapes.MoveToEnd(0)
	assert.Equal(t, false, alice.undo.CanRedo())
}

func TestUndo_DepthIsBounded(t *testing.T) {
	r := newHubs().rig(t, "alice", 100)
	r.seed("a")
	small := service.NewUndoService(context.Background(), r.shapes, 2, nil, nil)
	defer small.Close()

	for _, c := range []domain.Color{domain.ColorRed, domain.ColorGreen, domain.ColorOrange} {
		r.shapes.SetColor([]string{"a"}, c)
	}
	small.Undo()
	small.Undo()
	small.Undo()
	assert.Equal(t, domain.ColorRed, r.shapes.At(0).Color)
	assert.Equal(t, false, small.CanUndo())
}
