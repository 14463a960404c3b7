package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	journalAppendTimeout = 5 * time.Second
	identityTimeout      = 5 * time.Second
)

// Capabilities are the external collaborators ArborVote is initialized with.
type Capabilities struct {
	Identity   domain.IdentityOracle
	Token      domain.StakeToken
	Arbitrator domain.Arbitrator
	// Escrow is the account dispute deposits are held in.
	Escrow common.Address
}

type capabilitySet struct {
	mu   sync.RWMutex
	caps *Capabilities
}

func (c *capabilitySet) set(caps Capabilities) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.caps != nil {
		return domain.ErrAlreadyInitialized
	}
	c.caps = &caps
	return nil
}

func (c *capabilitySet) get() (*Capabilities, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.caps == nil {
		return nil, domain.ErrNotInitialized
	}
	return c.caps, nil
}

// Deps are the collaborators shared by every ArborVote service.
type Deps struct {
	Ledger  *store.Ledger
	Clock   domain.Clock
	Journal domain.JournalStore // optional
	Params  domain.Params
	Logger  *zap.Logger
	// IdentityTimeout bounds each identity oracle query. Zero means 5s.
	IdentityTimeout time.Duration
}

type core struct {
	ledger  *store.Ledger
	clock   domain.Clock
	journal domain.JournalStore
	params  domain.Params
	caps    *capabilitySet
	logger  *zap.Logger

	identityTimeout time.Duration
}

// ArborVote groups the debate services around one ledger.
type ArborVote struct {
	Phases    *PhaseService
	Members   *MembershipService
	Arguments *ArgumentService
	Disputes  *DisputeService
	Markets   *MarketService
	Tally     *TallyService

	core *core
}

func NewArborVote(d Deps) (*ArborVote, error) {
	if err := d.Params.Validate(); err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := d.IdentityTimeout
	if timeout <= 0 {
		timeout = identityTimeout
	}
	c := &core{
		ledger:          d.Ledger,
		clock:           d.Clock,
		journal:         d.Journal,
		params:          d.Params,
		caps:            &capabilitySet{},
		logger:          logger,
		identityTimeout: timeout,
	}
	return &ArborVote{
		Phases:    &PhaseService{c},
		Members:   &MembershipService{c},
		Arguments: &ArgumentService{c},
		Disputes:  &DisputeService{c},
		Markets:   &MarketService{c},
		Tally:     &TallyService{c},
		core:      c,
	}, nil
}

// Initialize binds the external capabilities. It succeeds exactly once.
func (a *ArborVote) Initialize(caps Capabilities) error {
	switch {
	case caps.Identity == nil:
		return fmt.Errorf("%w: identity oracle missing", domain.ErrNotInitialized)
	case caps.Token == nil:
		return fmt.Errorf("%w: stake token missing", domain.ErrNotInitialized)
	case caps.Arbitrator == nil:
		return fmt.Errorf("%w: arbitrator missing", domain.ErrNotInitialized)
	}
	if err := a.core.caps.set(caps); err != nil {
		return err
	}
	a.core.logger.Info("arborvote initialized",
		zap.String("arbitrator", caps.Arbitrator.Address().Hex()),
		zap.String("escrow", caps.Escrow.Hex()))
	return nil
}

func (a *ArborVote) Initialized() bool {
	_, err := a.core.caps.get()
	return err == nil
}

func (a *ArborVote) Params() domain.Params {
	return a.core.params
}

// RuleOnDispute lets ArborVote be attached directly to an arbitrator.
func (a *ArborVote) RuleOnDispute(ctx context.Context, caller common.Address, debateID, argumentID uint64, upheld bool) error {
	return a.Disputes.RuleOnDispute(ctx, caller, debateID, argumentID, upheld)
}

// Journal lists committed operations in sequence order.
func (a *ArborVote) Journal(ctx context.Context, afterSeq uint64, limit int) ([]domain.JournalEntry, error) {
	if a.core.journal == nil {
		return []domain.JournalEntry{}, nil
	}
	return a.core.journal.List(ctx, afterSeq, limit)
}

func (c *core) participant(tx *store.Tx, debateID uint64, caller common.Address) (domain.Member, error) {
	m, _, err := tx.Member(debateID, caller)
	if err != nil {
		return domain.Member{}, err
	}
	if m.Role != domain.RoleParticipant {
		return domain.Member{}, &domain.RoleMismatchError{Required: domain.RoleParticipant, Actual: m.Role}
	}
	m.Address = caller
	return m, nil
}

// record appends a journal entry once the running operation commits.
func (c *core) record(tx *store.Tx, op string, debateID uint64, caller common.Address, at uint64, payload any) {
	if c.journal == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("failed to encode journal payload", zap.String("op", op), zap.Error(err))
		raw = nil
	}
	entry := &domain.JournalEntry{
		ID:       uuid.New(),
		Seq:      tx.NextSequence(),
		Op:       op,
		DebateID: debateID,
		Caller:   caller,
		At:       at,
		Payload:  raw,
	}
	tx.OnCommit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), journalAppendTimeout)
		defer cancel()
		if err := c.journal.Append(ctx, entry); err != nil {
			c.logger.Error("failed to append journal entry",
				zap.String("op", op),
				zap.Uint64("debate_id", debateID),
				zap.Error(err))
		}
	})
}

// Journal operation names.
const (
	OpCreateDebate  = "create_debate"
	OpAdvancePhase  = "advance_phase"
	OpJoin          = "join"
	OpAddArgument   = "add_argument"
	OpChallenge     = "challenge"
	OpRuleOnDispute = "rule_on_dispute"
	OpBuy           = "buy"
	OpSell          = "sell"
	OpTally         = "tally"
)
