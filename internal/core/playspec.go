package core

// Playspec is an immutable, ordered list of entries admitted onto the
// realtime side as a single unit. ID is assigned by the control-side facade
// at submission time and is strictly increasing across the lifetime of an
// Interface.
type Playspec struct {
	ID        uint64
	Entries   []Entry
	InsertAt  int64
	StartFrom int64
}

// ReferencesClip reports whether any entry in the playspec points at the
// clip with the given id. Used by the deferred-destruction check; must not
// allocate.
func (p *Playspec) ReferencesClip(clipID uint64) bool {
	if p == nil {
		return false
	}
	for i := range p.Entries {
		if c := p.Entries[i].Clip; c != nil && c.ID == clipID {
			return true
		}
	}
	return false
}
