package session

// Timeline keeps the sessions an editor has moved through so edits can be
// undone and redone. Each entry is an immutable Session; only the Timeline's
// own cursor changes.
type Timeline struct {
	past    []Session
	present Session
	future  []Session
	limit   int
}

// NewTimeline starts a timeline at s. limit caps the undo depth; zero means unlimited.
func NewTimeline(s Session, limit int) *Timeline {
	return &Timeline{present: s, limit: limit}
}

func (t *Timeline) Present() Session {
	return t.present
}

// Apply edits the present session. A failed edit leaves the timeline unchanged.
func (t *Timeline) Apply(a Action) error {
	next, err := Edit(t.present, a)
	if err != nil {
		return err
	}
	t.past = append(t.past, t.present)
	if t.limit > 0 && len(t.past) > t.limit {
		t.past = t.past[len(t.past)-t.limit:]
	}
	t.present = next
	t.future = nil
	return nil
}

func (t *Timeline) CanUndo() bool { return len(t.past) > 0 }

func (t *Timeline) CanRedo() bool { return len(t.future) > 0 }

// Undo steps back one edit. It reports false when there is nothing to undo.
func (t *Timeline) Undo() bool {
	if len(t.past) == 0 {
		return false
	}
	t.future = append(t.future, t.present)
	t.present = t.past[len(t.past)-1]
	t.past = t.past[:len(t.past)-1]
	return true
}

// Redo re-applies the last undone edit.
func (t *Timeline) Redo() bool {
	if len(t.future) == 0 {
		return false
	}
	t.past = append(t.past, t.present)
	t.present = t.future[len(t.future)-1]
	t.future = t.future[:len(t.future)-1]
	return true
}
