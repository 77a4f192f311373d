// Package audio plays astro sound broadcasts through beep.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/roach88/lockstep/internal/astro"
	"github.com/roach88/lockstep/internal/engine"
)

// DefaultSampleRate is the speaker sample rate.
const DefaultSampleRate = beep.SampleRate(44100)

// DefaultBuffer bounds the sounds queued for the worker.
const DefaultBuffer = 32

// Player plays a finite streamer without blocking for its duration.
type Player interface {
	Play(s beep.Streamer)
}

// Speaker plays through the system audio device.
type Speaker struct{}

// OpenSpeaker initializes the audio device at rate with a 100ms buffer.
func OpenSpeaker(rate beep.SampleRate) (Speaker, error) {
	if err := speaker.Init(rate, rate.N(100*time.Millisecond)); err != nil {
		return Speaker{}, fmt.Errorf("init speaker: %w", err)
	}
	return Speaker{}, nil
}

// Play mixes s into the speaker output.
func (Speaker) Play(s beep.Streamer) {
	speaker.Play(s)
}

// Close releases the audio device.
func (Speaker) Close() {
	speaker.Close()
}

type note struct {
	freq float64
	dur  time.Duration
}

var tunes = map[astro.SoundKind][]note{
	astro.SoundFire:    {{880, 50 * time.Millisecond}},
	astro.SoundExplode: {{220, 80 * time.Millisecond}, {110, 120 * time.Millisecond}},
	astro.SoundDeath:   {{330, 100 * time.Millisecond}, {165, 100 * time.Millisecond}, {82, 200 * time.Millisecond}},
	astro.SoundLevel:   {{523, 80 * time.Millisecond}, {659, 80 * time.Millisecond}, {784, 120 * time.Millisecond}},
}

// Streamer renders kind as a sequence of sine tones at half volume.
func Streamer(kind astro.SoundKind, rate beep.SampleRate) (beep.Streamer, error) {
	notes, ok := tunes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown sound %q", kind)
	}

	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		tone, err := generators.SineTone(rate, n.freq)
		if err != nil {
			return nil, fmt.Errorf("sound %q: %w", kind, err)
		}
		parts = append(parts, beep.Take(rate.N(n.dur), tone))
	}
	return &effects.Volume{Streamer: beep.Seq(parts...), Base: 2, Volume: -1}, nil
}

// SinkOptions configures a Sink.
type SinkOptions struct {
	// Rate defaults to DefaultSampleRate.
	Rate beep.SampleRate
	// Buffer defaults to DefaultBuffer.
	Buffer int
	Logger *slog.Logger
}

// Sink is an engine.BroadcastSink for astro sounds.
//
// HandleBroadcasts only enqueues; a worker goroutine renders and plays.
// When the queue is full the sound is dropped.
type Sink struct {
	player Player
	rate   beep.SampleRate
	logger *slog.Logger

	mu      sync.Mutex
	queue   chan astro.SoundKind
	closed  bool
	dropped int
	done    chan struct{}
}

var _ engine.BroadcastSink[astro.Sound] = (*Sink)(nil)

// NewSink starts a sink playing on player. Call Close to stop the worker.
func NewSink(player Player, opts SinkOptions) *Sink {
	if opts.Rate == 0 {
		opts.Rate = DefaultSampleRate
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Sink{
		player: player,
		rate:   opts.Rate,
		logger: opts.Logger,
		queue:  make(chan astro.SoundKind, opts.Buffer),
		done:   make(chan struct{}),
	}
	go s.work()
	return s
}

func (s *Sink) work() {
	defer close(s.done)
	for kind := range s.queue {
		st, err := Streamer(kind, s.rate)
		if err != nil {
			s.logger.Warn("sound skipped", "kind", kind, "error", err)
			continue
		}
		s.player.Play(st)
	}
}

// HandleBroadcasts queues sounds for playback. It never blocks.
func (s *Sink) HandleBroadcasts(_ context.Context, frame engine.Frame, sounds []astro.Sound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	for _, snd := range sounds {
		select {
		case s.queue <- snd.Kind:
		default:
			s.dropped++
			s.logger.Debug("sound dropped",
				"tick", frame.Tick,
				"kind", snd.Kind,
			)
		}
	}
	return nil
}

// Dropped counts sounds lost to a full queue.
func (s *Sink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops accepting sounds and waits for queued ones to be handed to
// the player.
func (s *Sink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}
