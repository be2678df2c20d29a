// Package foodlog holds the day's food entries, archived day snapshots,
// and their round-trip through a key-value store.
package foodlog

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pbaille/nutriai/internal/domain"
	"go.uber.org/zap"
)

// DefaultKey is the store key holding the whole serialized log
const DefaultKey = "nutriai"

// ErrNotFound is returned by a Store when the key has never been written
var ErrNotFound = errors.New("key not found")

// Store is a key-value byte store
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// Clock provides the current calendar day
type Clock interface {
	Today() civil.Date
}

// SystemClock reads the wall clock in local time
type SystemClock struct{}

// Today returns the local calendar day
func (SystemClock) Today() civil.Date {
	return DayOf(time.Now())
}

// FixedClock always returns the same day
type FixedClock civil.Date

// Today returns the fixed day
func (c FixedClock) Today() civil.Date {
	return civil.Date(c)
}

// DayOf truncates t to its calendar day in t's location
func DayOf(t time.Time) civil.Date {
	return civil.DateOf(t)
}

// FoodLog is the open daily log plus archived history. It is not safe for
// concurrent use.
type FoodLog struct {
	store   Store
	key     string
	logger  *zap.Logger
	daily   []domain.FoodEntry
	history map[civil.Date][]domain.FoodEntry
}

// Option configures a FoodLog
type Option func(*FoodLog)

// WithKey sets the store key
func WithKey(key string) Option {
	return func(l *FoodLog) { l.key = key }
}

// WithLogger sets the logger used for load and persist failures
func WithLogger(logger *zap.Logger) Option {
	return func(l *FoodLog) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates an empty FoodLog backed by store
func New(store Store, opts ...Option) *FoodLog {
	l := &FoodLog{
		store:   store,
		key:     DefaultKey,
		logger:  zap.NewNop(),
		daily:   []domain.FoodEntry{},
		history: make(map[civil.Date][]domain.FoodEntry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open creates a FoodLog and loads it from store. A store that has never
// been written yields an empty log.
func Open(store Store, opts ...Option) (*FoodLog, error) {
	l := New(store, opts...)
	if err := l.Load(); err != nil && !errors.Is(err, ErrNotFound) {
		return l, err
	}
	return l, nil
}

// Add appends an entry to the open day. It does not persist.
func (l *FoodLog) Add(entry domain.FoodEntry) {
	l.daily = append(l.daily, entry)
}

// Total sums the open day's entries
func (l *FoodLog) Total() domain.Totals {
	return domain.Sum(l.daily)
}

// ArchiveDay stores the open day under day, replacing any earlier snapshot
// for that day, empties the open day, and persists. The in-memory change
// is kept even when persisting fails.
func (l *FoodLog) ArchiveDay(day civil.Date) error {
	l.history[day] = l.daily
	l.daily = []domain.FoodEntry{}
	l.logger.Debug("Archived day",
		zap.String("day", day.String()),
		zap.Int("entries", len(l.history[day])))
	return l.Persist()
}

// ArchiveToday archives the open day under the clock's current day
func (l *FoodLog) ArchiveToday(clock Clock) error {
	return l.ArchiveDay(clock.Today())
}

// Load replaces the log with the snapshot in the store
func (l *FoodLog) Load() error {
	data, err := l.store.Get(l.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			l.logger.Warn("Failed to read food log", zap.String("key", l.key), zap.Error(err))
		}
		return fmt.Errorf("load %s: %w", l.key, err)
	}
	return l.LoadBytes(data)
}

// LoadBytes replaces the log with a decoded snapshot. On error the log is
// left unchanged.
func (l *FoodLog) LoadBytes(data []byte) error {
	s, err := Decode(data)
	if err != nil {
		l.logger.Warn("Ignoring unreadable food log", zap.Error(err))
		return err
	}
	l.daily = s.Daily
	l.history = s.History
	return nil
}

// Snapshot encodes the full log
func (l *FoodLog) Snapshot() ([]byte, error) {
	return Encode(State{Daily: l.daily, History: l.history})
}

// Persist writes the full log to the store. Nothing is written if
// encoding fails.
func (l *FoodLog) Persist() error {
	data, err := l.Snapshot()
	if err != nil {
		l.logger.Warn("Skipping food log write", zap.Error(err))
		return err
	}
	if err := l.store.Set(l.key, data); err != nil {
		l.logger.Warn("Failed to write food log", zap.String("key", l.key), zap.Error(err))
		return fmt.Errorf("persist %s: %w", l.key, err)
	}
	return nil
}

// Daily returns a copy of the open day's entries in insertion order
func (l *FoodLog) Daily() []domain.FoodEntry {
	return cloneEntries(l.daily)
}

// History returns a copy of all archived days
func (l *FoodLog) History() map[civil.Date][]domain.FoodEntry {
	out := make(map[civil.Date][]domain.FoodEntry, len(l.history))
	for day, entries := range l.history {
		out[day] = cloneEntries(entries)
	}
	return out
}

// Archived returns the snapshot stored for day
func (l *FoodLog) Archived(day civil.Date) ([]domain.FoodEntry, bool) {
	entries, ok := l.history[day]
	if !ok {
		return nil, false
	}
	return cloneEntries(entries), true
}

// Days lists archived days, oldest first
func (l *FoodLog) Days() []civil.Date {
	days := make([]civil.Date, 0, len(l.history))
	for day := range l.history {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
