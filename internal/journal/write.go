package journal

import (
	"context"
	"fmt"
)

// CreateRun inserts a run header.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, app, tick_rate, start_tick, seed, initial_state, initial_digest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.App,
		int64(run.TickRate),
		int64(run.StartTick),
		int64(run.Seed),
		string(run.InitialState),
		run.InitialDigest,
		run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// WriteInput records one injected event.
// Duplicate (run, tick, seq) writes are silently ignored.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteInput(ctx context.Context, in Input) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inputs (run_id, tick, seq, kind, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		in.RunID,
		int64(in.Tick),
		in.Seq,
		in.Kind,
		string(in.Payload),
	)
	if err != nil {
		return fmt.Errorf("write input: %w", err)
	}
	return nil
}

// WriteCheckpoint records the digest after a committed tick.
// Duplicate (run, tick) writes are silently ignored.
func (s *Store) WriteCheckpoint(ctx context.Context, cp Checkpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, tick, digest, entity_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		cp.RunID,
		int64(cp.Tick),
		cp.Digest,
		cp.EntityCount,
	)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}
