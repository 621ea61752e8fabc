package vdesk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countFocused(desktops []VirtualDesktop) int {
	n := 0
	for _, d := range desktops {
		if d.Focused {
			n++
		}
	}
	return n
}

func TestStoreCreateDestroy(t *testing.T) {
	s := NewStore(SortNumber)

	diff := s.Apply(Event{Kind: EventCreated, ID: 1, Name: "main"})
	assert.Equal(t, []int{1}, diff.Added)
	assert.Equal(t, 1, s.Len())

	d, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "main", d.Name)

	diff = s.Apply(Event{Kind: EventDestroyed, ID: 1})
	assert.Equal(t, []int{1}, diff.Removed)
	assert.Equal(t, 0, s.Len())
}

func TestStoreDuplicateCreateIsIdempotent(t *testing.T) {
	s := NewStore(SortNumber)

	s.Apply(Event{Kind: EventCreated, ID: 1, Name: "main"})
	diff := s.Apply(Event{Kind: EventCreated, ID: 1, Name: "main"})
	assert.True(t, diff.Empty())
	assert.Equal(t, 1, s.Len())

	// Name drift on a duplicate create is treated as a rename.
	diff = s.Apply(Event{Kind: EventCreated, ID: 1, Name: "work"})
	assert.Equal(t, []int{1}, diff.Changed)
	d, _ := s.Get(1)
	assert.Equal(t, "work", d.Name)
}

func TestStoreDestroyUnknownIsNoop(t *testing.T) {
	s := NewStore(SortNumber)
	diff := s.Apply(Event{Kind: EventDestroyed, ID: 42})
	assert.True(t, diff.Empty())
}

func TestStoreCreateWithoutNameUsesID(t *testing.T) {
	s := NewStore(SortNumber)
	s.Apply(Event{Kind: EventCreated, ID: 7, Name: ""})
	d, ok := s.Get(7)
	require.True(t, ok)
	assert.Equal(t, "7", d.Name)
}

func TestStoreFocusExclusivity(t *testing.T) {
	s := NewStore(SortNumber)
	s.Apply(Event{Kind: EventCreated, ID: 1, Name: "a"})
	s.Apply(Event{Kind: EventCreated, ID: 2, Name: "b"})
	s.Apply(Event{Kind: EventCreated, ID: 3, Name: "c"})

	s.Apply(Event{Kind: EventFocused, ID: 2})
	assert.Equal(t, 1, countFocused(s.Snapshot()))

	diff := s.Apply(Event{Kind: EventFocused, ID: 3})
	assert.ElementsMatch(t, []int{2, 3}, diff.Changed)

	snap := s.Snapshot()
	assert.Equal(t, 1, countFocused(snap))
	for _, d := range snap {
		assert.Equal(t, d.ID == 3, d.Focused)
	}
}

func TestStoreFocusBeforeCreateIsBuffered(t *testing.T) {
	s := NewStore(SortNumber)
	s.Apply(Event{Kind: EventCreated, ID: 1, Name: "a"})
	s.Apply(Event{Kind: EventFocused, ID: 1})

	// Focus for a desktop we have not seen yet.
	diff := s.Apply(Event{Kind: EventFocused, ID: 5})
	assert.True(t, diff.Empty())

	// The buffered intent lands when the create arrives.
	diff = s.Apply(Event{Kind: EventCreated, ID: 5, Name: "late"})
	assert.Equal(t, []int{5}, diff.Added)
	assert.ElementsMatch(t, []int{1, 5}, diff.Changed)

	d, _ := s.Get(5)
	assert.True(t, d.Focused)
	d, _ = s.Get(1)
	assert.False(t, d.Focused)
}

func TestStorePendingFocusClearedByReplace(t *testing.T) {
	s := NewStore(SortNumber)
	s.Apply(Event{Kind: EventFocused, ID: 9})

	s.Replace([]VirtualDesktop{
		{ID: 1, Name: "a", Focused: true},
	})

	// The stale intent must not land when id 9 appears later.
	s.Apply(Event{Kind: EventCreated, ID: 9, Name: "late"})
	d, _ := s.Get(9)
	assert.False(t, d.Focused)
	d, _ = s.Get(1)
	assert.True(t, d.Focused)
}

func TestStoreWindowCountDrivesPopulated(t *testing.T) {
	s := NewStore(SortNumber)
	s.Apply(Event{Kind: EventCreated, ID: 1, Name: "a"})

	s.Apply(Event{Kind: EventWindows, ID: 1, Count: 2})
	d, _ := s.Get(1)
	assert.True(t, d.Populated)
	assert.Equal(t, 2, d.WindowCount)

	s.Apply(Event{Kind: EventWindows, ID: 1, Count: 0})
	d, _ = s.Get(1)
	assert.False(t, d.Populated)

	// No-change update produces an empty diff.
	diff := s.Apply(Event{Kind: EventWindows, ID: 1, Count: 0})
	assert.True(t, diff.Empty())
}

func TestStoreReplaceComputesDiff(t *testing.T) {
	s := NewStore(SortNumber)
	s.Apply(Event{Kind: EventCreated, ID: 1, Name: "a"})
	s.Apply(Event{Kind: EventCreated, ID: 2, Name: "b"})
	s.Apply(Event{Kind: EventFocused, ID: 1})

	diff := s.Replace([]VirtualDesktop{
		{ID: 1, Name: "a", Focused: true},
		{ID: 3, Name: "c", Populated: true, WindowCount: 1},
	})

	assert.Equal(t, []int{3}, diff.Added)
	assert.Equal(t, []int{2}, diff.Removed)
	assert.Empty(t, diff.Changed)
	assert.Equal(t, 2, s.Len())
}

func TestStoreReplaceSanitizesMultiFocus(t *testing.T) {
	s := NewStore(SortNumber)
	s.Replace([]VirtualDesktop{
		{ID: 1, Name: "a", Focused: true},
		{ID: 2, Name: "b", Focused: true},
	})

	snap := s.Snapshot()
	assert.Equal(t, 1, countFocused(snap))
	assert.True(t, snap[0].Focused)
	assert.Equal(t, 1, snap[0].ID)
}

func TestStoreResyncEqualsReplay(t *testing.T) {
	// Applying the event stream and replacing with the resulting full state
	// must converge to the same table.
	events := []Event{
		{Kind: EventCreated, ID: 1, Name: "main"},
		{Kind: EventCreated, ID: 2, Name: "web"},
		{Kind: EventWindows, ID: 1, Count: 3},
		{Kind: EventFocused, ID: 2},
		{Kind: EventRenamed, ID: 2, Name: "browse"},
	}

	replayed := NewStore(SortNumber)
	for _, ev := range events {
		replayed.Apply(ev)
	}

	resynced := NewStore(SortNumber)
	resynced.Replace(replayed.Snapshot())

	assert.Equal(t, replayed.Snapshot(), resynced.Snapshot())
}

func TestSnapshotFocusFallback(t *testing.T) {
	s := NewStore(SortNumber)
	s.Apply(Event{Kind: EventCreated, ID: 3, Name: "c"})
	s.Apply(Event{Kind: EventCreated, ID: 1, Name: "a"})

	// No focus event seen yet: lowest id is marked in the snapshot only.
	snap := s.Snapshot()
	assert.Equal(t, 1, countFocused(snap))
	assert.True(t, snap[0].Focused)
	assert.Equal(t, 1, snap[0].ID)

	// The table itself still reports no focus.
	d, _ := s.Get(1)
	assert.False(t, d.Focused)
}

func TestSnapshotFocusFallbackPrefersLastFocused(t *testing.T) {
	s := NewStore(SortNumber)
	s.Apply(Event{Kind: EventCreated, ID: 1, Name: "a"})
	s.Apply(Event{Kind: EventCreated, ID: 2, Name: "b"})
	s.Apply(Event{Kind: EventFocused, ID: 2})

	// Simulate the compositor transiently reporting no focus.
	s.Replace([]VirtualDesktop{
		{ID: 1, Name: "a"},
		{ID: 2, Name: "b"},
	})

	snap := s.Snapshot()
	assert.Equal(t, 1, countFocused(snap))
	for _, d := range snap {
		assert.Equal(t, d.ID == 2, d.Focused)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore(SortNumber)
	s.Apply(Event{Kind: EventCreated, ID: 1, Name: "a"})

	snap := s.Snapshot()
	snap[0].Name = "mutated"
	snap[0].Workspaces = append(snap[0].Workspaces, 99)

	d, _ := s.Get(1)
	assert.Equal(t, "a", d.Name)
	assert.Empty(t, d.Workspaces)
}

func TestSortPolicies(t *testing.T) {
	s := NewStore(SortNumber)
	s.Replace([]VirtualDesktop{
		{ID: 2, Name: "alpha"},
		{ID: 1, Name: "zulu"},
		{ID: 3, Name: "mike", Focused: true},
	})

	ids := func(desktops []VirtualDesktop) []int {
		out := make([]int, len(desktops))
		for i, d := range desktops {
			out[i] = d.ID
		}
		return out
	}

	assert.Equal(t, []int{1, 2, 3}, ids(s.Snapshot()))

	s.SetSortPolicy(SortName)
	assert.Equal(t, []int{2, 3, 1}, ids(s.Snapshot()))

	s.SetSortPolicy(SortFocusedFirst)
	assert.Equal(t, []int{3, 1, 2}, ids(s.Snapshot()))
}

func TestParseSortPolicy(t *testing.T) {
	p, err := ParseSortPolicy("focused-first")
	assert.NoError(t, err)
	assert.Equal(t, SortFocusedFirst, p)

	p, err = ParseSortPolicy("")
	assert.NoError(t, err)
	assert.Equal(t, SortNumber, p)

	_, err = ParseSortPolicy("alphabetical")
	assert.Error(t, err)
}
