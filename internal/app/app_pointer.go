package app

import (
	"canvas/internal/domain"
)

// ============================================================
// Pointer wiring
// ============================================================

// onPointer routes scene pointer events: down on a shape selects and starts a
// drag, moves drive the drag and any release ends it. A release over the
// background with no drag in progress clears the selection.
func (a *App) onPointer(ev domain.PointerEvent) {
	pos := domain.Position{X: ev.X, Y: ev.Y}
	switch ev.Kind {
	case domain.PointerDown:
		if ev.Target == domain.BackgroundID {
			return
		}
		a.selection.Select(ev.Target, ev.Modifier)
		a.drag.Start(ev.Target, pos)
	case domain.PointerMove:
		a.drag.Move(pos)
	case domain.PointerUp, domain.PointerUpOutside:
		_, dragging := a.drag.Active()
		a.drag.End()
		if ev.Kind == domain.PointerUp && ev.Target == domain.BackgroundID && !dragging {
			a.selection.Clear()
		}
	}
}
