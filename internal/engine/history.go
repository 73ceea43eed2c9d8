package engine

// Undo restores the snapshot taken before the most recent action and moves
// that action to the redo stack. The ledger is not touched. It reports false
// when there is nothing to undo.
func Undo(s State) (State, bool) {
	if !s.CanUndo() {
		return s, false
	}
	next := s
	var e HistoryEntry
	next.UndoStack, e = pop(s.UndoStack)
	next.RedoStack = push(s.RedoStack, HistoryEntry{Action: e.Action, Restore: s.Snapshot()}, 0)
	next.Clusters = e.Restore.Clusters
	next.Ratios = e.Restore.Ratios
	return next, true
}

// Redo re-establishes the state after the most recently undone action.
// It reports false when there is nothing to redo.
func Redo(s State, opts Options) (State, bool) {
	if !s.CanRedo() {
		return s, false
	}
	next := s
	var e HistoryEntry
	next.RedoStack, e = pop(s.RedoStack)
	next.UndoStack = push(s.UndoStack, HistoryEntry{Action: e.Action, Restore: s.Snapshot()}, opts.MaxHistory)
	next.Clusters = e.Restore.Clusters
	next.Ratios = e.Restore.Ratios
	return next, true
}
