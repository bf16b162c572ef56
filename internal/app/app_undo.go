package app

// ============================================================
// Undo / Redo
// ============================================================

// Undo reverts the most recent local batch.
func (a *App) Undo() { a.undo.Undo() }

// Redo re-applies the most recently undone batch.
func (a *App) Redo() { a.undo.Redo() }

func (a *App) CanUndo() bool { return a.undo.CanUndo() }

func (a *App) CanRedo() bool { return a.undo.CanRedo() }
