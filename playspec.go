package amio

import (
	"fmt"

	"github.com/smiszym/amio/internal/core"
)

// Playspec is a builder for an ordered, immutable list of entries to submit
// as a single unit via Interface.SchedulePlayspecChange. A Playspec must not
// be reused after submission; build a fresh one for each change.
type Playspec struct {
	entries   []Entry
	insertAt  int64
	startFrom int64
}

// NewPlayspec creates an empty Playspec builder.
func NewPlayspec() *Playspec {
	return &Playspec{}
}

// AddEntry appends a validated entry to the playspec.
func (p *Playspec) AddEntry(e Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	p.entries = append(p.entries, e)
	return nil
}

// SetInsertionPoints sets the transport frame at which this playspec
// supersedes the previous one (insertAt) and the position the transport
// should be set to when that happens (startFrom).
func (p *Playspec) SetInsertionPoints(insertAt, startFrom int64) error {
	if insertAt < 0 || startFrom < 0 {
		return fmt.Errorf("amio: playspec: %w (insertAt and startFrom must be non-negative)", ErrInvalidArgument)
	}
	p.insertAt = insertAt
	p.startFrom = startFrom
	return nil
}

func (p *Playspec) toCore(id uint64) *core.Playspec {
	entries := make([]core.Entry, len(p.entries))
	copy(entries, p.entries)
	return &core.Playspec{
		ID:        id,
		Entries:   entries,
		InsertAt:  p.insertAt,
		StartFrom: p.startFrom,
	}
}
