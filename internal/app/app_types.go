package app

import (
	"canvas/internal/domain"
)

// ShapeView is one shape with its decorations as this client sees them.
type ShapeView struct {
	domain.Shape
	Index           int      `json:"index"`
	Selected        bool     `json:"selected"`
	RemoteSelectors []string `json:"remoteSelectors,omitempty"`
}

// Snapshot is a read-only view of the facade state for tools and simulations.
type Snapshot struct {
	ClientID   string      `json:"clientId"`
	Shapes     []ShapeView `json:"shapes"`
	Selected   []string    `json:"selected"`
	MaxShapes  int         `json:"maxShapes"`
	MaxReached bool        `json:"maxReached"`
	ShowIndex  bool        `json:"showIndex"`
	UseSignals bool        `json:"useSignals"`
	CanUndo    bool        `json:"canUndo"`
	CanRedo    bool        `json:"canRedo"`
	Connection string      `json:"connection"`
}

// Snapshot captures the current state.
func (a *App) Snapshot() Snapshot {
	remote := a.selection.RemoteSelected()
	selected := a.selection.LocalSelected()
	local := make(map[string]bool, len(selected))
	for _, id := range selected {
		local[id] = true
	}
	views := make([]ShapeView, 0, a.shapes.Len())
	for i, s := range a.shapes.All() {
		views = append(views, ShapeView{
			Shape:           s,
			Index:           i,
			Selected:        local[s.ID],
			RemoteSelectors: remote[s.ID],
		})
	}
	return Snapshot{
		ClientID:   a.clientID,
		Shapes:     views,
		Selected:   selected,
		MaxShapes:  a.shapes.MaxShapes(),
		MaxReached: a.shapes.MaxReached(),
		ShowIndex:  a.recon.ShowIndex(),
		UseSignals: a.drag.UseSignals(),
		CanUndo:    a.undo.CanUndo(),
		CanRedo:    a.undo.CanRedo(),
		Connection: a.shapes.ConnectionState().String(),
	}
}
