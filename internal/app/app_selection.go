package app

// ============================================================
// Selection and z-order
// ============================================================

// SelectAll selects every shape.
func (a *App) SelectAll() { a.selection.SelectAll() }

// ClearSelection empties the local selection.
func (a *App) ClearSelection() { a.selection.Clear() }

// Select applies the pointer selection policy to id.
func (a *App) Select(id string, modifier bool) { a.selection.Select(id, modifier) }

// SetSelection replaces the local selection.
func (a *App) SetSelection(ids ...string) { a.selection.SetSelection(ids...) }

// Selected returns the local selection.
func (a *App) Selected() []string { return a.selection.LocalSelected() }

// RemoteSelected maps shape ids to the connected remote clients selecting them.
func (a *App) RemoteSelected() map[string][]string { return a.selection.RemoteSelected() }

func (a *App) BringToFrontOfSelection() {
	if id, ok := a.selection.First(); ok {
		a.order.BringToFront(id)
	}
}

func (a *App) SendToBackOfSelection() {
	if id, ok := a.selection.First(); ok {
		a.order.SendToBack(id)
	}
}

func (a *App) BringForwardOfSelection() {
	if id, ok := a.selection.First(); ok {
		a.order.BringForward(id)
	}
}

func (a *App) SendBackwardOfSelection() {
	if id, ok := a.selection.First(); ok {
		a.order.SendBackward(id)
	}
}

// SetShowIndex toggles z-index labels on every node.
func (a *App) SetShowIndex(show bool) { a.recon.SetShowIndex(show) }

func (a *App) ShowIndex() bool { return a.recon.ShowIndex() }

// SetUseSignals toggles drag broadcasting over the presence channel.
func (a *App) SetUseSignals(on bool) { a.drag.SetUseSignals(on) }

func (a *App) UseSignals() bool { return a.drag.UseSignals() }
