//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package guardrail

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Event records one unsafe verdict for the audit trail. The evaluated
// text itself is never recorded, only its length.
type Event struct {
	Time         time.Time `json:"time"`
	Direction    Direction `json:"direction"`
	Category     Category  `json:"category"`
	Reason       string    `json:"reason"`
	MatchedTerms []string  `json:"matched_terms"`
	TextLength   int       `json:"text_length"`
}

// Sink receives audit events. Record must not block: the evaluator calls
// it inline on every unsafe verdict.
type Sink interface {
	Record(Event)
}

// NopSink discards all events.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(Event) {}

// LogSink writes events through slog at warn level.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink backed by logger. A nil logger falls back to
// slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Record implements Sink.
func (s *LogSink) Record(ev Event) {
	s.logger.Warn("guardrail violation",
		"direction", ev.Direction,
		"category", ev.Category,
		"reason", ev.Reason,
		"matched_terms", ev.MatchedTerms,
		"text_length", ev.TextLength,
	)
}

// FileSinkConfig controls the rotating audit log file.
type FileSinkConfig struct {
	// Path is the audit log file path.
	Path string

	// MaxSizeMB is the size at which the file rotates. Defaults to 10.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept. Defaults to 5.
	MaxBackups int

	// MaxAgeDays is the age limit for rotated files. Defaults to 30.
	MaxAgeDays int

	// BufferSize is the event queue length. Defaults to 256.
	BufferSize int

	// Logger receives write errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// FileSink appends events as JSON lines to a size-rotated file. Events
// are queued to a background writer; when the queue is full they are
// dropped rather than blocking the evaluator. Record stays safe to call
// after Close.
type FileSink struct {
	logger    *slog.Logger
	events    chan Event
	quit      chan struct{}
	done      chan struct{}
	out       *lumberjack.Logger
	dropped   atomic.Int64
	closeOnce sync.Once
}

// NewFileSink opens a rotating audit log and starts its writer.
func NewFileSink(cfg FileSinkConfig) *FileSink {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 30
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}

	s := &FileSink{
		logger: cfg.Logger,
		events: make(chan Event, cfg.BufferSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		out: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		},
	}
	go s.run()
	return s
}

// Record implements Sink. It never blocks; events beyond the buffer are
// dropped and counted.
func (s *FileSink) Record(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to a full buffer.
func (s *FileSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close drains the queue, flushes the file, and stops the writer.
func (s *FileSink) Close() error {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
	if n := s.dropped.Load(); n > 0 {
		s.logger.Warn("audit events dropped", "count", n)
	}
	return s.out.Close()
}

func (s *FileSink) run() {
	defer close(s.done)
	enc := json.NewEncoder(s.out)
	write := func(ev Event) {
		if err := enc.Encode(ev); err != nil {
			s.logger.Error("audit write failed", "error", err)
		}
	}
	for {
		select {
		case ev := <-s.events:
			write(ev)
		case <-s.quit:
			for {
				select {
				case ev := <-s.events:
					write(ev)
				default:
					return
				}
			}
		}
	}
}

// MultiSink fans events out to several sinks.
type MultiSink []Sink

// Record implements Sink.
func (m MultiSink) Record(ev Event) {
	for _, s := range m {
		s.Record(ev)
	}
}
