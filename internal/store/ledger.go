package store

import (
	"context"
	"sync"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

// Ledger is the arena owning every debate, argument, membership and market
// record. Records are addressed by sequential ids; tree links are ids, not
// pointers. All access goes through Update or View.
type Ledger struct {
	mu      sync.Mutex
	debates []*debateRecord
	// seq numbers journaled operations in the order they hold mu.
	seq uint64

	// committed hooks waiting to run, in commit order
	hooks    []func()
	draining bool
}

type shareKey struct {
	argumentID  uint64
	participant common.Address
}

type debateRecord struct {
	debate    domain.Debate
	arguments []domain.Argument
	members   map[common.Address]domain.Member
	shares    map[shareKey]domain.UserShare
	disputes  map[uint64]domain.Dispute
	leaves    *IDSet
	disputed  *IDSet

	// pending holds argument ids in creation order. Finalization times are
	// non-decreasing along it because logical time never goes backwards.
	pending     []uint64
	pendingHead int
}

func newDebateRecord(d domain.Debate) *debateRecord {
	return &debateRecord{
		debate:   d,
		members:  make(map[common.Address]domain.Member),
		shares:   make(map[shareKey]domain.UserShare),
		disputes: make(map[uint64]domain.Dispute),
		leaves:   NewIDSet(),
		disputed: NewIDSet(),
	}
}

func NewLedger() *Ledger {
	return &Ledger{}
}

type txKey struct {
	l *Ledger
}

// Update runs fn as one atomic operation. If fn returns an error or panics,
// every mutation it made is undone. A context that already carries a
// transaction of this ledger joins it instead of taking the lock again, so
// a capability that calls back into ArborVote with the context it was given
// sees the effects applied so far. A failing nested call only rolls back
// its own mutations.
func (l *Ledger) Update(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	if tx, ok := ctx.Value(txKey{l}).(*Tx); ok && tx.writable {
		return tx.savepoint(ctx, fn)
	}

	l.mu.Lock()
	tx := &Tx{l: l, writable: true}
	committed := false
	defer func() {
		if !committed {
			tx.rollbackTo(0)
			l.mu.Unlock()
			return
		}
		l.hooks = append(l.hooks, tx.onCommit...)
		if l.draining {
			l.mu.Unlock()
			return
		}
		l.draining = true
		l.mu.Unlock()
		l.drainHooks()
	}()

	if err := fn(context.WithValue(ctx, txKey{l}, tx), tx); err != nil {
		return err
	}
	committed = true
	return nil
}

// drainHooks runs queued commit hooks outside the lock. Only one goroutine
// drains at a time, so hooks run in commit order.
func (l *Ledger) drainHooks() {
	for {
		l.mu.Lock()
		batch := l.hooks
		l.hooks = nil
		if len(batch) == 0 {
			l.draining = false
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()
		for _, fn := range batch {
			fn()
		}
	}
}

// ResumeSequence continues commit numbering after last, the highest
// sequence a durable journal already holds.
func (l *Ledger) ResumeSequence(last uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last > l.seq {
		l.seq = last
	}
}

// View runs fn with read access. Inside a running Update it reads that
// operation's uncommitted state.
func (l *Ledger) View(ctx context.Context, fn func(tx *Tx) error) error {
	if tx, ok := ctx.Value(txKey{l}).(*Tx); ok {
		return fn(tx)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(&Tx{l: l})
}
