package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/lockstep/internal/event"
	"github.com/roach88/lockstep/internal/table"
)

// InputSource supplies a batch of events once per frame (keyboard,
// network, scripted replays). It must not block beyond a bounded receive.
type InputSource[Id comparable, Entity, Payload, Broadcast any] interface {
	PollInput(ctx context.Context, frame Frame, world table.View[Id, Entity]) ([]event.Event[Id, Entity, Payload, Broadcast], error)
}

// BroadcastSink receives the frame's drained broadcasts in emission order.
type BroadcastSink[Broadcast any] interface {
	HandleBroadcasts(ctx context.Context, frame Frame, broadcasts []Broadcast) error
}

// Presenter receives the presentation descriptor and current table once
// per frame. Returning closed=true ends the run.
type Presenter[Id comparable, Entity any] interface {
	Present(ctx context.Context, frame Frame, world table.View[Id, Entity]) (closed bool, err error)
}

// TimeSource supplies wall-clock readings for frame deltas.
type TimeSource interface {
	Now() time.Time
}

// SystemTime reads the real monotonic clock.
type SystemTime struct{}

// Now returns the current time with a monotonic reading.
func (SystemTime) Now() time.Time {
	return time.Now()
}

// MailboxInput drains a Mailbox of events as an InputSource.
type MailboxInput[Id comparable, Entity, Payload, Broadcast any] struct {
	Mailbox *Mailbox[event.Event[Id, Entity, Payload, Broadcast]]
}

// PollInput returns every queued event without blocking.
func (m MailboxInput[Id, Entity, Payload, Broadcast]) PollInput(context.Context, Frame, table.View[Id, Entity]) ([]event.Event[Id, Entity, Payload, Broadcast], error) {
	return m.Mailbox.Drain(), nil
}

// StopReason explains why Run returned.
type StopReason string

const (
	StopHalted    StopReason = "halted"
	StopClosed    StopReason = "closed"
	StopMaxFrames StopReason = "max_frames"
	StopCancelled StopReason = "cancelled"
	StopFailed    StopReason = "failed"
)

// RunStats summarises a Run.
type RunStats struct {
	Frames int
	Ticks  int
	Reason StopReason
}

// Runner drives the outer frame loop: measure wall time, collect input,
// advance the scheduler, hand broadcasts and the table to collaborators.
type Runner[Id comparable, Entity, Payload, Broadcast any] struct {
	Scheduler *Scheduler[Id, Entity, Payload, Broadcast]

	// Input is optional.
	Input InputSource[Id, Entity, Payload, Broadcast]
	// Sinks receive every frame's broadcasts, in order. Optional.
	Sinks []BroadcastSink[Broadcast]
	// Presenter is optional.
	Presenter Presenter[Id, Entity]
	// Time defaults to SystemTime.
	Time TimeSource
	// FrameInterval, when positive, paces frames by sleeping out the rest
	// of each interval.
	FrameInterval time.Duration
	// MaxFrames, when positive, stops the run after that many frames.
	MaxFrames int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Run loops until the scheduler halts, the presenter closes, MaxFrames is
// reached, ctx is cancelled or a collaborator fails. Collaborator errors
// are returned wrapped in a COLLABORATOR_FAILED RuntimeError and are not
// retried.
func (r *Runner[Id, Entity, Payload, Broadcast]) Run(ctx context.Context) (RunStats, error) {
	if r.Scheduler == nil {
		return RunStats{Reason: StopFailed}, &RuntimeError{Code: ErrCodeInvalidConfig, Message: "runner has no scheduler"}
	}
	clock := r.Time
	if clock == nil {
		clock = SystemTime{}
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sched := r.Scheduler
	stats := RunStats{}
	frame := sched.Presentation()
	last := clock.Now()

	logger.Info("runner starting",
		"tick_rate", sched.Config().TickRate,
		"frame_interval", r.FrameInterval,
	)

	for {
		if r.MaxFrames > 0 && stats.Frames >= r.MaxFrames {
			stats.Reason = StopMaxFrames
			break
		}
		if err := ctx.Err(); err != nil {
			stats.Reason = StopCancelled
			logger.Info("runner stopping: context cancelled", "tick", sched.TickNumber())
			return stats, err
		}

		frameStart := clock.Now()
		dt := frameStart.Sub(last)
		last = frameStart

		var inputs []event.Event[Id, Entity, Payload, Broadcast]
		if r.Input != nil {
			polled, err := r.Input.PollInput(ctx, frame, sched.Entities())
			if err != nil {
				stats.Reason = StopFailed
				return stats, NewCollaboratorError("input", sched.TickNumber(), err)
			}
			inputs = polled
		}

		res, err := sched.Frame(dt, inputs)
		stats.Frames++
		stats.Ticks += res.Ticks
		frame = res.Frame
		if err != nil {
			stats.Reason = StopFailed
			return stats, err
		}

		for _, sink := range r.Sinks {
			if err := sink.HandleBroadcasts(ctx, frame, res.Broadcasts); err != nil {
				stats.Reason = StopFailed
				return stats, NewCollaboratorError("broadcast sink", frame.Tick, err)
			}
		}

		if r.Presenter != nil {
			closed, err := r.Presenter.Present(ctx, frame, sched.Entities())
			if err != nil {
				stats.Reason = StopFailed
				return stats, NewCollaboratorError("presenter", frame.Tick, err)
			}
			if closed {
				stats.Reason = StopClosed
				break
			}
		}

		if res.Halted {
			stats.Reason = StopHalted
			break
		}

		if r.FrameInterval > 0 {
			if err := sleepUntil(ctx, clock, frameStart.Add(r.FrameInterval)); err != nil {
				stats.Reason = StopCancelled
				return stats, err
			}
		}
	}

	logger.Info("runner stopped",
		"reason", string(stats.Reason),
		"frames", stats.Frames,
		"ticks", stats.Ticks,
		"tick", sched.TickNumber(),
	)
	return stats, nil
}

// sleepUntil waits until deadline or ctx is done.
func sleepUntil(ctx context.Context, clock TimeSource, deadline time.Time) error {
	wait := deadline.Sub(clock.Now())
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
