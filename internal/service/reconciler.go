package service

import (
	"context"

	"github.com/charmbracelet/log"

	"canvas/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Reconciler: keeps scene nodes in step with the shape list
// ─────────────────────────────────────────────────────────────

// PositionOverrider supplies ephemeral positions that win over durable ones.
type PositionOverrider interface {
	PositionOverride(id string) (domain.Position, bool)
}

// ReconcileStats summarises one Sync pass.
type ReconcileStats struct {
	Live    int `json:"live"`
	Created int `json:"created"`
	Removed int `json:"removed"`
}

// Reconciler owns the scene nodes. Every Sync creates nodes for new shapes,
// refreshes every live node and destroys nodes whose shape is gone.
type Reconciler struct {
	ctx       context.Context
	shapes    *ShapeService
	scene     domain.Scene
	overrides PositionOverrider
	emitter   EventEmitter
	logger    *log.Logger

	showIndex bool
}

// NewReconciler creates a Reconciler. overrides may be nil.
func NewReconciler(ctx context.Context, shapes *ShapeService, scene domain.Scene, overrides PositionOverrider, emitter EventEmitter, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		ctx:       ctx,
		shapes:    shapes,
		scene:     scene,
		overrides: overrides,
		emitter:   orNop(emitter),
		logger:    logger,
	}
}

func (r *Reconciler) ShowIndex() bool { return r.showIndex }

// SetShowIndex toggles the z-index label on every node.
func (r *Reconciler) SetShowIndex(show bool) {
	r.showIndex = show
	for _, id := range r.scene.NodeIDs() {
		if node, ok := r.scene.Node(id); ok {
			node.SetShowIndex(show)
		}
	}
}

// Sync reconciles the scene with the shape list.
func (r *Reconciler) Sync() ReconcileStats {
	var stats ReconcileStats
	live := make(map[string]struct{}, r.shapes.Len())

	for i, sh := range r.shapes.All() {
		live[sh.ID] = struct{}{}
		node, ok := r.scene.Node(sh.ID)
		if !ok {
			node = r.scene.AddNode(sh.ID, sh.Type)
			stats.Created++
		}
		pos := sh.Position
		if r.overrides != nil {
			if p, ok := r.overrides.PositionOverride(sh.ID); ok {
				pos = p
			}
		}
		node.SetPosition(pos)
		node.SetFill(sh.Color)
		node.SetZIndex(i)
		node.SetShowIndex(r.showIndex)
	}

	for _, id := range r.scene.NodeIDs() {
		if _, ok := live[id]; !ok {
			r.scene.RemoveNode(id)
			stats.Removed++
		}
	}
	stats.Live = len(live)

	if stats.Created > 0 || stats.Removed > 0 {
		r.logger.Debug("reconciled", "live", stats.Live, "created", stats.Created, "removed", stats.Removed)
	}
	r.emitter.Emit(r.ctx, EventSceneReconciled, stats)
	return stats
}
