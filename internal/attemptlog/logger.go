package attemptlog

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMemoryCapacity  = 100
	DefaultDurableCapacity = 500
)

// Logger keeps the most recent attempts in memory (newest first) and mirrors
// every attempt to a durable Store. Store failures are logged and dropped.
type Logger struct {
	mu     sync.RWMutex
	recent []Entry

	// serializes the read-modify-write cycle on the store
	storeMu sync.Mutex
	store   Store

	memoryCap  int
	durableCap int
	now        func() time.Time
	log        *zap.Logger
}

type Option func(*Logger)

func WithMemoryCapacity(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.memoryCap = n
		}
	}
}

func WithDurableCapacity(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.durableCap = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns a Logger writing through to store. A nil store keeps the log in
// memory only.
func New(store Store, log *zap.Logger, opts ...Option) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Logger{
		store:      store,
		memoryCap:  DefaultMemoryCapacity,
		durableCap: DefaultDurableCapacity,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record stamps e with an ID and timestamp and stores it.
func (l *Logger) Record(ctx context.Context, e Entry) Entry {
	e.ID = uuid.NewString()
	e.Timestamp = l.now()
	if e.Status == "" {
		e.Status = StatusFailed
	}

	l.mu.Lock()
	l.recent = append([]Entry{e}, l.recent...)
	if len(l.recent) > l.memoryCap {
		l.recent = l.recent[:l.memoryCap]
	}
	l.mu.Unlock()

	l.persist(ctx, e)
	return e
}

func (l *Logger) persist(ctx context.Context, e Entry) {
	if l.store == nil {
		return
	}

	l.storeMu.Lock()
	defer l.storeMu.Unlock()

	if a, ok := l.store.(Appender); ok {
		if err := a.Append(ctx, e, l.durableCap); err != nil {
			l.logStoreError(err, e.ID)
		}
		return
	}

	entries, err := l.store.Load(ctx)
	switch {
	case errors.Is(err, ErrCorruptLog):
		l.logStoreError(err, e.ID)
		entries = nil
	case err != nil:
		// Das bestehende Dokument bleibt unangetastet, nur dieser Eintrag fehlt dort.
		l.log.Error("Fehler beim Lesen des E-Mail-Protokolls:", zap.Error(err), zap.String("entry_id", e.ID))
		return
	}

	if err := l.store.Save(ctx, AppendCapped(entries, e, l.durableCap)); err != nil {
		l.log.Error("Fehler beim Schreiben des E-Mail-Protokolls:", zap.Error(err), zap.String("entry_id", e.ID))
	}
}

func (l *Logger) logStoreError(err error, entryID string) {
	if errors.Is(err, ErrCorruptLog) {
		l.log.Warn("E-Mail-Protokoll beschädigt, wird neu begonnen:", zap.Error(err), zap.String("entry_id", entryID))
		return
	}
	l.log.Error("Fehler beim Schreiben des E-Mail-Protokolls:", zap.Error(err), zap.String("entry_id", entryID))
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all
// entries held in memory.
func (l *Logger) Recent(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	copy(out, l.recent[:n])
	return out
}

// Stats aggregates the in-memory entries.
func (l *Logger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var s Stats
	s.Total = len(l.recent)
	for _, e := range l.recent {
		if e.Status == StatusSuccess {
			s.Success++
		} else {
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = math.Round(float64(s.Success)*1000/float64(s.Total)) / 10
		last := l.recent[0].Timestamp
		s.LastAttempt = &last
	}
	return s
}

// Restore seeds the in-memory list from the newest durable entries.
func (l *Logger) Restore(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	l.storeMu.Lock()
	entries, err := l.store.Load(ctx)
	l.storeMu.Unlock()
	if err != nil {
		return err
	}

	if len(entries) > l.memoryCap {
		entries = entries[len(entries)-l.memoryCap:]
	}
	recent := make([]Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		recent = append(recent, entries[i])
	}

	l.mu.Lock()
	l.recent = recent
	l.mu.Unlock()

	l.log.Info("E-Mail-Protokoll wiederhergestellt:", zap.Int("count", len(recent)))
	return nil
}
