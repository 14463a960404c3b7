package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/arborvote/arborvote/internal/domain"
)

// MemoryJournal is the journal used when no database is configured.
// Entries are kept ordered by Seq whatever order they are appended in.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []domain.JournalEntry
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Append stores e under its sequence number. An entry without one is
// numbered after the last stored entry.
func (j *MemoryJournal) Append(ctx context.Context, e *domain.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if e.Seq == 0 {
		e.Seq = 1
		if n := len(j.entries); n > 0 {
			e.Seq = j.entries[n-1].Seq + 1
		}
	}
	i := j.after(e.Seq - 1)
	if i < len(j.entries) && j.entries[i].Seq == e.Seq {
		return fmt.Errorf("journal: duplicate sequence %d", e.Seq)
	}
	j.entries = append(j.entries, domain.JournalEntry{})
	copy(j.entries[i+1:], j.entries[i:])
	j.entries[i] = *e
	return nil
}

func (j *MemoryJournal) List(ctx context.Context, afterSeq uint64, limit int) ([]domain.JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rest := j.entries[j.after(afterSeq):]
	if limit > 0 && len(rest) > limit {
		rest = rest[:limit]
	}
	out := make([]domain.JournalEntry, len(rest))
	copy(out, rest)
	return out, nil
}

// after returns the index of the first entry with Seq > seq.
func (j *MemoryJournal) after(seq uint64) int {
	return sort.Search(len(j.entries), func(i int) bool {
		return j.entries[i].Seq > seq
	})
}
