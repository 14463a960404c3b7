package store

import (
	"context"
	"fmt"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS journal_entries (
	seq          BIGINT PRIMARY KEY,
	id           UUID NOT NULL UNIQUE,
	op           TEXT NOT NULL,
	debate_id    BIGINT NOT NULL,
	caller       TEXT NOT NULL,
	logical_time BIGINT NOT NULL,
	payload      JSONB,
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PGJournalStore keeps the operation journal in PostgreSQL.
type PGJournalStore struct {
	db *pgxpool.Pool
}

func NewPGJournalStore(db *pgxpool.Pool) *PGJournalStore {
	return &PGJournalStore{db: db}
}

// EnsureSchema creates the journal table if it does not exist yet.
func (s *PGJournalStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, journalSchema); err != nil {
		return fmt.Errorf("journal: create schema: %w", err)
	}
	return nil
}

// Append stores e under the sequence number the ledger assigned it at
// commit, so rows are ordered by commit rather than by insert.
func (s *PGJournalStore) Append(ctx context.Context, e *domain.JournalEntry) error {
	if e.Seq == 0 {
		return fmt.Errorf("journal: append %s: missing sequence", e.Op)
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO journal_entries (seq, id, op, debate_id, caller, logical_time, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		int64(e.Seq), e.ID, e.Op, int64(e.DebateID), e.Caller.Hex(), int64(e.At), []byte(e.Payload),
	)
	if err != nil {
		return fmt.Errorf("journal: append %s: %w", e.Op, err)
	}
	return nil
}

// LastSeq returns the highest stored sequence number, zero when empty.
func (s *PGJournalStore) LastSeq(ctx context.Context) (uint64, error) {
	var seq int64
	if err := s.db.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM journal_entries`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("journal: last seq: %w", err)
	}
	return uint64(seq), nil
}

// List returns entries after afterSeq in order. A limit of zero or less
// returns all of them.
func (s *PGJournalStore) List(ctx context.Context, afterSeq uint64, limit int) ([]domain.JournalEntry, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.db.Query(ctx,
		`SELECT seq, id, op, debate_id, caller, logical_time, payload
		 FROM journal_entries WHERE seq > $1
		 ORDER BY seq ASC
		 LIMIT $2`,
		int64(afterSeq), lim,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	entries := []domain.JournalEntry{}
	for rows.Next() {
		var (
			e                 domain.JournalEntry
			seq, debateID, at int64
			caller            string
			payload           []byte
		)
		if err := rows.Scan(&seq, &e.ID, &e.Op, &debateID, &caller, &at, &payload); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.DebateID = uint64(debateID)
		e.At = uint64(at)
		e.Caller = common.HexToAddress(caller)
		e.Payload = payload
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
