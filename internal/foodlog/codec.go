package foodlog

import (
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/pbaille/nutriai/internal/domain"
)

// FormatVersion is written into every encoded snapshot
const FormatVersion = 1

var (
	// ErrMalformed is returned when stored bytes cannot be decoded
	ErrMalformed = errors.New("malformed food log")
	// ErrUnsupportedVersion is returned for snapshots written by another format version
	ErrUnsupportedVersion = errors.New("unsupported food log version")
)

// State is the persisted content of a FoodLog
type State struct {
	Daily   []domain.FoodEntry
	History map[civil.Date][]domain.FoodEntry
}

type snapshot struct {
	Version int                               `json:"version"`
	Daily   []domain.FoodEntry                `json:"daily"`
	History map[civil.Date][]domain.FoodEntry `json:"history"`
}

// Encode serializes a state. History keys are written as YYYY-MM-DD in
// ascending order, so equal states produce equal bytes.
func Encode(s State) ([]byte, error) {
	snap := snapshot{
		Version: FormatVersion,
		Daily:   cloneEntries(s.Daily),
		History: make(map[civil.Date][]domain.FoodEntry, len(s.History)),
	}
	for day, entries := range s.History {
		if !day.IsValid() {
			return nil, fmt.Errorf("encode history: invalid day %v", day)
		}
		snap.History[day] = cloneEntries(entries)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode food log: %w", err)
	}
	return data, nil
}

// Decode parses bytes produced by Encode
func Decode(data []byte) (State, error) {
	if len(data) == 0 {
		return State{}, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if snap.Version != FormatVersion {
		return State{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}

	s := State{
		Daily:   cloneEntries(snap.Daily),
		History: make(map[civil.Date][]domain.FoodEntry, len(snap.History)),
	}
	for day, entries := range snap.History {
		s.History[day] = cloneEntries(entries)
	}
	return s, nil
}

func cloneEntries(entries []domain.FoodEntry) []domain.FoodEntry {
	out := make([]domain.FoodEntry, len(entries))
	copy(out, entries)
	return out
}
