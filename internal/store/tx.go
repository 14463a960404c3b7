package store

import (
	"context"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

// Tx is a single operation against the Ledger. Every mutation pushes an
// undo step so the operation can be discarded as a whole.
type Tx struct {
	l        *Ledger
	writable bool
	undo     []func()
	onCommit []func()
}

func (tx *Tx) savepoint(ctx context.Context, fn func(context.Context, *Tx) error) error {
	mark, hooks := len(tx.undo), len(tx.onCommit)
	ok := false
	defer func() {
		if !ok {
			tx.rollbackTo(mark)
			tx.onCommit = tx.onCommit[:hooks]
		}
	}()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	ok = true
	return nil
}

func (tx *Tx) rollbackTo(mark int) {
	for i := len(tx.undo) - 1; i >= mark; i-- {
		tx.undo[i]()
	}
	tx.undo = tx.undo[:mark]
}

// NextSequence reserves the next commit sequence number. Numbers follow
// the order operations hold the ledger; a rolled back reservation is
// handed out again.
func (tx *Tx) NextSequence() uint64 {
	tx.mustWrite()
	tx.l.seq++
	tx.undo = append(tx.undo, func() { tx.l.seq-- })
	return tx.l.seq
}

// OnCommit registers fn to run once the outermost operation has committed
// and the ledger lock is released. Hooks of different operations run in
// commit order.
func (tx *Tx) OnCommit(fn func()) {
	tx.mustWrite()
	tx.onCommit = append(tx.onCommit, fn)
}

func (tx *Tx) mustWrite() {
	if !tx.writable {
		panic("store: write in read-only transaction")
	}
}

func (tx *Tx) record(id uint64) (*debateRecord, error) {
	if id >= uint64(len(tx.l.debates)) {
		return nil, &domain.DebateUninitializedError{DebateID: id}
	}
	return tx.l.debates[id], nil
}

func (tx *Tx) argument(r *debateRecord, argumentID uint64) (*domain.Argument, error) {
	if argumentID >= uint64(len(r.arguments)) {
		return nil, &domain.ArgumentNotFoundError{DebateID: r.debate.ID, ArgumentID: argumentID}
	}
	return &r.arguments[argumentID], nil
}

// DebateCount returns the id the next debate will get.
func (tx *Tx) DebateCount() uint64 {
	return uint64(len(tx.l.debates))
}

// CreateDebate allocates the next debate id and stores d with root as its
// argument 0. The root is never a member of the leaf set.
func (tx *Tx) CreateDebate(d domain.Debate, root domain.Argument) uint64 {
	tx.mustWrite()
	d.ID = uint64(len(tx.l.debates))
	root.ID = domain.RootArgumentID
	r := newDebateRecord(d)
	r.arguments = append(r.arguments, root)
	tx.l.debates = append(tx.l.debates, r)
	tx.undo = append(tx.undo, func() {
		tx.l.debates = tx.l.debates[:len(tx.l.debates)-1]
	})
	return d.ID
}

func (tx *Tx) Debate(id uint64) (domain.Debate, error) {
	r, err := tx.record(id)
	if err != nil {
		return domain.Debate{}, err
	}
	return r.debate, nil
}

func (tx *Tx) SetPhase(id uint64, phase domain.Phase) error {
	tx.mustWrite()
	r, err := tx.record(id)
	if err != nil {
		return err
	}
	prev := r.debate.Phase.Current
	r.debate.Phase.Current = phase
	tx.undo = append(tx.undo, func() { r.debate.Phase.Current = prev })
	return nil
}

func (tx *Tx) Member(id uint64, addr common.Address) (domain.Member, bool, error) {
	r, err := tx.record(id)
	if err != nil {
		return domain.Member{}, false, err
	}
	m, ok := r.members[addr]
	return m, ok, nil
}

func (tx *Tx) PutMember(id uint64, m domain.Member) error {
	tx.mustWrite()
	r, err := tx.record(id)
	if err != nil {
		return err
	}
	prev, existed := r.members[m.Address]
	r.members[m.Address] = m
	tx.undo = append(tx.undo, func() {
		if existed {
			r.members[m.Address] = prev
		} else {
			delete(r.members, m.Address)
		}
	})
	return nil
}

func (tx *Tx) Argument(id, argumentID uint64) (domain.Argument, error) {
	r, err := tx.record(id)
	if err != nil {
		return domain.Argument{}, err
	}
	a, err := tx.argument(r, argumentID)
	if err != nil {
		return domain.Argument{}, err
	}
	return *a, nil
}

// Arguments returns a copy of every argument of the debate, indexed by id.
func (tx *Tx) Arguments(id uint64) ([]domain.Argument, error) {
	r, err := tx.record(id)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Argument, len(r.arguments))
	copy(out, r.arguments)
	return out, nil
}

// AppendArgument allocates the next argument id, links it under its parent
// and maintains the leaf set and the finalization queue.
func (tx *Tx) AppendArgument(id uint64, a domain.Argument) (uint64, error) {
	tx.mustWrite()
	r, err := tx.record(id)
	if err != nil {
		return 0, err
	}
	if _, err := tx.argument(r, a.ParentID); err != nil {
		return 0, err
	}

	a.ID = uint64(len(r.arguments))
	a.ChildCount = 0
	r.arguments = append(r.arguments, a)
	tx.undo = append(tx.undo, func() { r.arguments = r.arguments[:len(r.arguments)-1] })

	parentID := a.ParentID
	r.arguments[parentID].ChildCount++
	tx.undo = append(tx.undo, func() { r.arguments[parentID].ChildCount-- })

	if parentID != domain.RootArgumentID && r.arguments[parentID].ChildCount == 1 {
		tx.removeLeaf(r, parentID)
	}
	tx.addLeaf(r, a.ID)

	r.pending = append(r.pending, a.ID)
	tx.undo = append(tx.undo, func() { r.pending = r.pending[:len(r.pending)-1] })

	return a.ID, nil
}

// SetArgumentState moves an argument to state and keeps the disputed and
// leaf sets in step with it. An invalidated argument leaves the tree: it is
// dropped from both sets and no longer counts as a child of its parent.
func (tx *Tx) SetArgumentState(id, argumentID uint64, state domain.ArgumentState) error {
	tx.mustWrite()
	r, err := tx.record(id)
	if err != nil {
		return err
	}
	a, err := tx.argument(r, argumentID)
	if err != nil {
		return err
	}
	prev := a.State
	if prev == state {
		return nil
	}
	a.State = state
	tx.undo = append(tx.undo, func() { r.arguments[argumentID].State = prev })

	if prev == domain.ArgumentDisputed {
		tx.removeDisputed(r, argumentID)
	}
	if state == domain.ArgumentDisputed {
		tx.addDisputed(r, argumentID)
	}
	if state == domain.ArgumentInvalid && !a.IsRoot() {
		tx.removeLeaf(r, argumentID)
		parentID := a.ParentID
		parent := &r.arguments[parentID]
		parent.ChildCount--
		tx.undo = append(tx.undo, func() { r.arguments[parentID].ChildCount++ })
		if parentID != domain.RootArgumentID && parent.ChildCount == 0 && parent.State != domain.ArgumentInvalid {
			tx.addLeaf(r, parentID)
		}
	}
	return nil
}

func (tx *Tx) SetChildsVote(id, argumentID uint64, v int64) error {
	tx.mustWrite()
	r, err := tx.record(id)
	if err != nil {
		return err
	}
	a, err := tx.argument(r, argumentID)
	if err != nil {
		return err
	}
	prev := a.ChildsVote
	a.ChildsVote = v
	tx.undo = append(tx.undo, func() { r.arguments[argumentID].ChildsVote = prev })
	return nil
}

func (tx *Tx) SetMarket(id, argumentID uint64, m domain.Market) error {
	tx.mustWrite()
	r, err := tx.record(id)
	if err != nil {
		return err
	}
	a, err := tx.argument(r, argumentID)
	if err != nil {
		return err
	}
	prev := a.Market
	a.Market = m
	tx.undo = append(tx.undo, func() { r.arguments[argumentID].Market = prev })
	return nil
}

// FinalizeExpired turns every unchallenged argument whose window has closed
// by now into a final one and returns their ids.
func (tx *Tx) FinalizeExpired(id, now uint64) ([]uint64, error) {
	tx.mustWrite()
	r, err := tx.record(id)
	if err != nil {
		return nil, err
	}

	startHead := r.pendingHead
	var finalized []uint64
	for r.pendingHead < len(r.pending) {
		argumentID := r.pending[r.pendingHead]
		a := &r.arguments[argumentID]
		if a.State == domain.ArgumentCreated {
			if now < a.FinalizationTime {
				break
			}
			a.State = domain.ArgumentFinal
			finalized = append(finalized, argumentID)
		}
		r.pendingHead++
	}

	if len(finalized) > 0 || r.pendingHead != startHead {
		done := finalized
		tx.undo = append(tx.undo, func() {
			r.pendingHead = startHead
			for _, argumentID := range done {
				r.arguments[argumentID].State = domain.ArgumentCreated
			}
		})
	}
	return finalized, nil
}

func (tx *Tx) LeafArgumentIDs(id uint64) ([]uint64, error) {
	r, err := tx.record(id)
	if err != nil {
		return nil, err
	}
	return r.leaves.Sorted(), nil
}

func (tx *Tx) DisputedArgumentIDs(id uint64) ([]uint64, error) {
	r, err := tx.record(id)
	if err != nil {
		return nil, err
	}
	return r.disputed.Sorted(), nil
}

func (tx *Tx) Share(id, argumentID uint64, participant common.Address) (domain.UserShare, error) {
	r, err := tx.record(id)
	if err != nil {
		return domain.UserShare{}, err
	}
	if _, err := tx.argument(r, argumentID); err != nil {
		return domain.UserShare{}, err
	}
	return r.shares[shareKey{argumentID, participant}], nil
}

func (tx *Tx) PutShare(id, argumentID uint64, participant common.Address, s domain.UserShare) error {
	tx.mustWrite()
	r, err := tx.record(id)
	if err != nil {
		return err
	}
	key := shareKey{argumentID, participant}
	prev, existed := r.shares[key]
	r.shares[key] = s
	tx.undo = append(tx.undo, func() {
		if existed {
			r.shares[key] = prev
		} else {
			delete(r.shares, key)
		}
	})
	return nil
}

func (tx *Tx) Dispute(id, argumentID uint64) (domain.Dispute, bool, error) {
	r, err := tx.record(id)
	if err != nil {
		return domain.Dispute{}, false, err
	}
	d, ok := r.disputes[argumentID]
	return d, ok, nil
}

func (tx *Tx) PutDispute(d domain.Dispute) error {
	tx.mustWrite()
	r, err := tx.record(d.DebateID)
	if err != nil {
		return err
	}
	prev, existed := r.disputes[d.ArgumentID]
	r.disputes[d.ArgumentID] = d
	tx.undo = append(tx.undo, func() {
		if existed {
			r.disputes[d.ArgumentID] = prev
		} else {
			delete(r.disputes, d.ArgumentID)
		}
	})
	return nil
}

func (tx *Tx) addLeaf(r *debateRecord, argumentID uint64) {
	if r.leaves.Add(argumentID) {
		tx.undo = append(tx.undo, func() { r.leaves.Remove(argumentID) })
	}
}

func (tx *Tx) removeLeaf(r *debateRecord, argumentID uint64) {
	if r.leaves.Remove(argumentID) {
		tx.undo = append(tx.undo, func() { r.leaves.Add(argumentID) })
	}
}

func (tx *Tx) addDisputed(r *debateRecord, argumentID uint64) {
	if r.disputed.Add(argumentID) {
		tx.undo = append(tx.undo, func() { r.disputed.Remove(argumentID) })
	}
}

func (tx *Tx) removeDisputed(r *debateRecord, argumentID uint64) {
	if r.disputed.Remove(argumentID) {
		tx.undo = append(tx.undo, func() { r.disputed.Add(argumentID) })
	}
}
