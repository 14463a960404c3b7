// Package arbitration provides an in-process arbitrator. It records the
// disputes ArborVote raises and delivers rulings back to it.
package arbitration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrDisputeNotFound = errors.New("arbitration: dispute not found")
	ErrAlreadyRuled    = errors.New("arbitration: dispute already ruled")
	ErrNoReceiver      = errors.New("arbitration: no ruling receiver attached")
)

// RulingReceiver is the ArborVote side of a ruling.
type RulingReceiver interface {
	RuleOnDispute(ctx context.Context, caller common.Address, debateID, argumentID uint64, upheld bool) error
}

type Case struct {
	ID      uint64                `json:"id"`
	Request domain.DisputeRequest `json:"request"`
	Ruled   bool                  `json:"ruled"`
	Upheld  bool                  `json:"upheld"`
}

// Court hands out sequential dispute ids. With an immediate ruling set it
// rules inside CreateDispute, calling back into the receiver with the
// context it was given.
type Court struct {
	address common.Address

	mu        sync.Mutex
	cases     []Case
	receiver  RulingReceiver
	immediate *bool
}

func NewCourt(address common.Address) *Court {
	return &Court{address: address}
}

func (c *Court) Address() common.Address {
	return c.address
}

func (c *Court) Attach(r RulingReceiver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receiver = r
}

// RuleImmediately makes every new dispute be ruled upheld or rejected while
// CreateDispute is still running.
func (c *Court) RuleImmediately(upheld bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.immediate = &upheld
}

func (c *Court) CreateDispute(ctx context.Context, req domain.DisputeRequest) (uint64, error) {
	c.mu.Lock()
	id := uint64(len(c.cases))
	c.cases = append(c.cases, Case{ID: id, Request: req})
	immediate := c.immediate
	c.mu.Unlock()

	if immediate != nil {
		if err := c.Rule(ctx, id, *immediate); err != nil {
			c.mu.Lock()
			c.cases = c.cases[:id]
			c.mu.Unlock()
			return 0, err
		}
	}
	return id, nil
}

// Rule delivers a ruling for dispute id to the attached receiver.
func (c *Court) Rule(ctx context.Context, id uint64, upheld bool) error {
	c.mu.Lock()
	if id >= uint64(len(c.cases)) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrDisputeNotFound, id)
	}
	cs := c.cases[id]
	receiver := c.receiver
	c.mu.Unlock()

	if cs.Ruled {
		return fmt.Errorf("%w: %d", ErrAlreadyRuled, id)
	}
	if receiver == nil {
		return ErrNoReceiver
	}
	if err := receiver.RuleOnDispute(ctx, c.address, cs.Request.DebateID, cs.Request.ArgumentID, upheld); err != nil {
		return fmt.Errorf("arbitration: deliver ruling %d: %w", id, err)
	}

	c.mu.Lock()
	c.cases[id].Ruled = true
	c.cases[id].Upheld = upheld
	c.mu.Unlock()
	return nil
}

func (c *Court) Case(id uint64) (Case, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id >= uint64(len(c.cases)) {
		return Case{}, false
	}
	return c.cases[id], true
}

// Pending returns the cases still waiting for a ruling.
func (c *Court) Pending() []Case {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Case
	for _, cs := range c.cases {
		if !cs.Ruled {
			out = append(out, cs)
		}
	}
	return out
}
