package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run id is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// GetRun returns the header of a run.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, app, tick_rate, start_tick, seed, initial_state, initial_digest, created_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %q: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %q: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run, oldest first.
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, app, tick_rate, start_tick, seed, initial_state, initial_digest, created_at
		FROM runs
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadInputs returns a run's inputs ordered by (tick, seq).
func (s *Store) ReadInputs(ctx context.Context, runID string) ([]Input, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, tick, seq, kind, payload
		FROM inputs
		WHERE run_id = ?
		ORDER BY tick ASC, seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}
	defer rows.Close()

	inputs := []Input{}
	for rows.Next() {
		var in Input
		var tick int64
		var payload string
		if err := rows.Scan(&in.RunID, &tick, &in.Seq, &in.Kind, &payload); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		in.Tick = uint64(tick)
		in.Payload = []byte(payload)
		inputs = append(inputs, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inputs: %w", err)
	}
	return inputs, nil
}

// ReadCheckpoints returns a run's checkpoints ordered by tick.
func (s *Store) ReadCheckpoints(ctx context.Context, runID string) ([]Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, tick, digest, entity_count
		FROM checkpoints
		WHERE run_id = ?
		ORDER BY tick ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := []Checkpoint{}
	for rows.Next() {
		var cp Checkpoint
		var tick int64
		if err := rows.Scan(&cp.RunID, &tick, &cp.Digest, &cp.EntityCount); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp.Tick = uint64(tick)
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return checkpoints, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var tickRate, startTick, seed, createdAt int64
	var state string
	err := row.Scan(
		&run.ID,
		&run.App,
		&tickRate,
		&startTick,
		&seed,
		&state,
		&run.InitialDigest,
		&createdAt,
	)
	if err != nil {
		return Run{}, err
	}
	run.TickRate = uint64(tickRate)
	run.StartTick = uint64(startTick)
	run.Seed = uint64(seed)
	run.InitialState = []byte(state)
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	return run, nil
}
