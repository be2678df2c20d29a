package foodlog

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/pbaille/nutriai/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data   map[string][]byte
	setErr error
	getErr error
	sets   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (f *fakeStore) Get(key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) Set(key string, value []byte) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

var (
	egg  = domain.FoodEntry{ID: "egg-1", Name: "Egg", Grams: 50, Calories: 70, Protein: 6, Fat: 5, Carb: 1}
	rice = domain.FoodEntry{ID: "rice-1", Name: "Rice", Grams: 150, Calories: 200, Protein: 4, Fat: 0, Carb: 45}
	day1 = civil.Date{Year: 2024, Month: 1, Day: 1}
	day2 = civil.Date{Year: 2024, Month: 1, Day: 2}
)

func TestEggAndRiceScenario(t *testing.T) {
	s := newFakeStore()
	l := New(s)

	l.Add(egg)
	l.Add(rice)
	assert.Equal(t, domain.Totals{Calories: 270, Protein: 10, Fat: 5, Carb: 46}, l.Total())

	require.NoError(t, l.ArchiveDay(day1))
	assert.Empty(t, l.Daily())

	got, ok := l.Archived(day1)
	require.True(t, ok)
	assert.Equal(t, []domain.FoodEntry{egg, rice}, got)
	assert.Equal(t, 1, s.sets)

	reloaded := New(s)
	require.NoError(t, reloaded.Load())
	if diff := cmp.Diff(l.History(), reloaded.History()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, reloaded.Daily())
}

func TestTotal(t *testing.T) {
	l := New(newFakeStore())
	assert.Equal(t, domain.Totals{}, l.Total())

	var want domain.Totals
	for i := 0; i < 10; i++ {
		e := domain.NewFoodEntry("x", 10, i, i*2, i*3, i*4)
		l.Add(e)
		want.Calories += i
		want.Protein += i * 2
		want.Fat += i * 3
		want.Carb += i * 4
	}
	assert.Equal(t, want, l.Total())
}

func TestArchiveDay(t *testing.T) {
	t.Run("empty daily archives an empty day", func(t *testing.T) {
		l := New(newFakeStore())
		require.NoError(t, l.ArchiveDay(day1))
		got, ok := l.Archived(day1)
		assert.True(t, ok)
		assert.Empty(t, got)
		assert.Empty(t, l.Daily())
	})

	t.Run("second archive of the same day overwrites", func(t *testing.T) {
		l := New(newFakeStore())
		l.Add(egg)
		require.NoError(t, l.ArchiveDay(day1))
		l.Add(rice)
		require.NoError(t, l.ArchiveDay(day1))

		got, _ := l.Archived(day1)
		assert.Equal(t, []domain.FoodEntry{rice}, got)
		assert.Len(t, l.History(), 1)
	})

	t.Run("days are listed oldest first", func(t *testing.T) {
		l := New(newFakeStore())
		require.NoError(t, l.ArchiveDay(day2))
		require.NoError(t, l.ArchiveDay(day1))
		assert.Equal(t, []civil.Date{day1, day2}, l.Days())
	})

	t.Run("persist failure is reported and state kept", func(t *testing.T) {
		s := newFakeStore()
		s.setErr = errors.New("disk full")
		l := New(s)
		l.Add(egg)

		err := l.ArchiveDay(day1)
		require.Error(t, err)
		assert.ErrorIs(t, err, s.setErr)
		assert.Empty(t, l.Daily())
		_, ok := l.Archived(day1)
		assert.True(t, ok)
	})

	t.Run("archive today uses the clock", func(t *testing.T) {
		l := New(newFakeStore())
		l.Add(egg)
		require.NoError(t, l.ArchiveToday(FixedClock(day2)))
		assert.Equal(t, []civil.Date{day2}, l.Days())
	})
}

func TestLoadFailureLeavesStateUnchanged(t *testing.T) {
	inputs := map[string][]byte{
		"nil":         nil,
		"empty":       {},
		"garbage":     []byte("not json"),
		"json null":   []byte("null"),
		"no version":  []byte(`{"daily":[]}`),
		"bad day key": []byte(`{"version":1,"daily":[],"history":{"yesterday":[]}}`),
	}

	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			l := New(newFakeStore())
			l.Add(egg)
			require.NoError(t, l.ArchiveDay(day1))
			l.Add(rice)

			before := l.History()
			require.Error(t, l.LoadBytes(data))
			assert.Equal(t, []domain.FoodEntry{rice}, l.Daily())
			assert.Equal(t, before, l.History())
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("absent key", func(t *testing.T) {
		l := New(newFakeStore())
		l.Add(egg)
		err := l.Load()
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, []domain.FoodEntry{egg}, l.Daily())
	})

	t.Run("store error", func(t *testing.T) {
		s := newFakeStore()
		s.getErr = errors.New("io")
		l := New(s)
		assert.ErrorIs(t, l.Load(), s.getErr)
	})

	t.Run("replaces state wholesale", func(t *testing.T) {
		s := newFakeStore()
		src := New(s, WithKey("custom"))
		src.Add(rice)
		require.NoError(t, src.Persist())
		saved := s.data["custom"]

		l := New(s, WithKey("custom"))
		l.Add(egg)
		require.NoError(t, l.ArchiveDay(day2))
		l.Add(egg)

		require.NoError(t, l.LoadBytes(saved))
		assert.Equal(t, []domain.FoodEntry{rice}, l.Daily())
		assert.Empty(t, l.History())
	})
}

func TestOpen(t *testing.T) {
	s := newFakeStore()
	l, err := Open(s)
	require.NoError(t, err)
	assert.Empty(t, l.Daily())

	l.Add(egg)
	require.NoError(t, l.Persist())

	l, err = Open(s)
	require.NoError(t, err)
	assert.Equal(t, []domain.FoodEntry{egg}, l.Daily())

	s.data[DefaultKey] = []byte("{")
	_, err = Open(s)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestAccessorsReturnCopies(t *testing.T) {
	l := New(newFakeStore())
	l.Add(egg)
	require.NoError(t, l.ArchiveDay(day1))
	l.Add(rice)

	d := l.Daily()
	d[0].Name = "changed"
	assert.Equal(t, "Rice", l.Daily()[0].Name)

	h := l.History()
	h[day1][0].Name = "changed"
	delete(h, day1)
	got, ok := l.Archived(day1)
	require.True(t, ok)
	assert.Equal(t, "Egg", got[0].Name)
}
