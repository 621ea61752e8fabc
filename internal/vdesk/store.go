package vdesk

import (
	"sort"
	"strconv"
	"sync"
)

// Store is the in-memory desktop table. It is thread-safe for readers; the
// engine's IO goroutine is the only writer. Reads always observe a fully
// applied table, never a partially applied one: the lock is held only
// across the in-memory mutation, never across I/O.
type Store struct {
	mu       sync.RWMutex
	desktops map[int]*VirtualDesktop
	seq      uint64
	policy   SortPolicy

	// pendingFocus buffers a focus event that arrived before the matching
	// create (out-of-order delivery across a reconnect gap). It is applied
	// on the next create for that id and cleared by a full Replace, whose
	// authoritative state includes focus. -1 means none.
	pendingFocus int

	// lastFocused is the most recently focused id, kept so snapshots can
	// synthesize a deterministic focused desktop when the compositor
	// transiently reports none. -1 means none.
	lastFocused int
}

// NewStore creates an empty store with the given snapshot sort policy.
func NewStore(policy SortPolicy) *Store {
	return &Store{
		desktops:     make(map[int]*VirtualDesktop),
		policy:       policy,
		pendingFocus: -1,
		lastFocused:  -1,
	}
}

// Apply reconciles one decoded event into the table and returns the ids it
// touched. Duplicate creates are idempotent, destroys of unknown ids are
// no-ops, and focus for an unknown id is buffered rather than dropped.
func (s *Store) Apply(ev Event) Diff {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case EventCreated:
		return s.applyCreated(ev)
	case EventDestroyed:
		return s.applyDestroyed(ev)
	case EventRenamed:
		return s.applyRenamed(ev)
	case EventFocused:
		return s.applyFocused(ev)
	case EventWindows:
		return s.applyWindows(ev)
	default:
		// Unrecognized events are logged upstream; the table ignores them.
		return Diff{}
	}
}

func (s *Store) applyCreated(ev Event) Diff {
	if existing, ok := s.desktops[ev.ID]; ok {
		// Idempotent duplicate create: at most a name refresh.
		if ev.Name != "" && existing.Name != ev.Name {
			existing.Name = ev.Name
			return Diff{Changed: []int{ev.ID}}
		}
		return Diff{}
	}

	name := ev.Name
	if name == "" {
		name = defaultName(ev.ID)
	}
	s.seq++
	s.desktops[ev.ID] = &VirtualDesktop{
		ID:       ev.ID,
		Name:     name,
		Sequence: s.seq,
	}
	diff := Diff{Added: []int{ev.ID}}

	// A focus intent buffered before this create lands now.
	if s.pendingFocus == ev.ID {
		s.pendingFocus = -1
		focusDiff := s.focusLocked(ev.ID)
		diff.Changed = append(diff.Changed, focusDiff.Changed...)
	}
	return diff
}

func (s *Store) applyDestroyed(ev Event) Diff {
	if _, ok := s.desktops[ev.ID]; !ok {
		// The compositor may emit a destroy for an id missed during a
		// reconnect gap; not an error.
		return Diff{}
	}
	delete(s.desktops, ev.ID)
	return Diff{Removed: []int{ev.ID}}
}

func (s *Store) applyRenamed(ev Event) Diff {
	d, ok := s.desktops[ev.ID]
	if !ok || d.Name == ev.Name {
		return Diff{}
	}
	d.Name = ev.Name
	return Diff{Changed: []int{ev.ID}}
}

func (s *Store) applyFocused(ev Event) Diff {
	if _, ok := s.desktops[ev.ID]; !ok {
		s.pendingFocus = ev.ID
		return Diff{}
	}
	s.pendingFocus = -1
	return s.focusLocked(ev.ID)
}

func (s *Store) applyWindows(ev Event) Diff {
	d, ok := s.desktops[ev.ID]
	if !ok {
		return Diff{}
	}
	populated := ev.Count > 0 || len(d.Workspaces) > 0
	if d.WindowCount == ev.Count && d.Populated == populated {
		return Diff{}
	}
	d.WindowCount = ev.Count
	d.Populated = populated
	return Diff{Changed: []int{ev.ID}}
}

// focusLocked moves focus to id, clearing every other entry. Caller holds
// the write lock and has verified the id exists.
func (s *Store) focusLocked(id int) Diff {
	var changed []int
	for _, d := range s.desktops {
		if d.Focused && d.ID != id {
			d.Focused = false
			changed = append(changed, d.ID)
		}
	}
	target := s.desktops[id]
	if !target.Focused {
		target.Focused = true
		changed = append(changed, id)
	}
	s.lastFocused = id
	return Diff{Changed: changed}
}

// Replace swaps the entire table for the authoritative full state, used on
// reconnect. Any pending focus intent is discarded: the new state carries
// focus itself. Returns the diff against the previous table.
func (s *Store) Replace(desktops []VirtualDesktop) Diff {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[int]*VirtualDesktop, len(desktops))
	focusSeen := false
	for i := range desktops {
		d := desktops[i]
		if d.Name == "" {
			d.Name = defaultName(d.ID)
		}
		// Sanitize a malformed payload reporting several focused desktops.
		if d.Focused {
			if focusSeen {
				d.Focused = false
			} else {
				focusSeen = true
				s.lastFocused = d.ID
			}
		}
		d.Workspaces = append([]int(nil), d.Workspaces...)
		if prev, ok := s.desktops[d.ID]; ok {
			d.Sequence = prev.Sequence
		} else {
			s.seq++
			d.Sequence = s.seq
		}
		next[d.ID] = &d
	}

	var diff Diff
	for id := range s.desktops {
		if _, ok := next[id]; !ok {
			diff.Removed = append(diff.Removed, id)
		}
	}
	for id, d := range next {
		prev, ok := s.desktops[id]
		if !ok {
			diff.Added = append(diff.Added, id)
			continue
		}
		if !equalDesktop(prev, d) {
			diff.Changed = append(diff.Changed, id)
		}
	}

	s.desktops = next
	s.pendingFocus = -1
	sort.Ints(diff.Added)
	sort.Ints(diff.Removed)
	sort.Ints(diff.Changed)
	return diff
}

// Snapshot returns an immutable, consistent copy of the table, ordered by
// the active sort policy. When the table transiently reports no focused
// desktop, the copy marks a deterministic fallback (the most recently
// focused id still present, else the lowest id); the stored table itself is
// left reporting the compositor's truth.
func (s *Store) Snapshot() []VirtualDesktop {
	s.mu.RLock()
	result := make([]VirtualDesktop, 0, len(s.desktops))
	focused := false
	for _, d := range s.desktops {
		c := *d
		c.Workspaces = append([]int(nil), d.Workspaces...)
		result = append(result, c)
		focused = focused || d.Focused
	}
	lastFocused := s.lastFocused
	policy := s.policy
	s.mu.RUnlock()

	if !focused && len(result) > 0 {
		idx := 0
		for i := range result {
			if result[i].ID == lastFocused {
				idx = i
				break
			}
			if result[i].ID < result[idx].ID {
				idx = i
			}
		}
		result[idx].Focused = true
	}

	sortDesktops(result, policy)
	return result
}

// Get returns a copy of one desktop, if present.
func (s *Store) Get(id int) (VirtualDesktop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.desktops[id]
	if !ok {
		return VirtualDesktop{}, false
	}
	c := *d
	c.Workspaces = append([]int(nil), d.Workspaces...)
	return c, true
}

// Len returns the number of desktops in the table.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.desktops)
}

// SetSortPolicy switches the snapshot ordering. Applied at snapshot time,
// not at storage time, so it is safe to change live.
func (s *Store) SetSortPolicy(policy SortPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = policy
}

// Clear empties the table, used on engine shutdown.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.desktops = make(map[int]*VirtualDesktop)
	s.pendingFocus = -1
	s.lastFocused = -1
}

func sortDesktops(desktops []VirtualDesktop, policy SortPolicy) {
	sort.Slice(desktops, func(i, j int) bool {
		a, b := desktops[i], desktops[j]
		switch policy {
		case SortName:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case SortFocusedFirst:
			if a.Focused != b.Focused {
				return a.Focused
			}
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Sequence < b.Sequence
	})
}

func equalDesktop(a, b *VirtualDesktop) bool {
	if a.ID != b.ID || a.Name != b.Name || a.Focused != b.Focused ||
		a.Populated != b.Populated || a.WindowCount != b.WindowCount ||
		len(a.Workspaces) != len(b.Workspaces) {
		return false
	}
	for i := range a.Workspaces {
		if a.Workspaces[i] != b.Workspaces[i] {
			return false
		}
	}
	return true
}

func defaultName(id int) string {
	// The compositor defaults a desktop's label to its stringified id.
	return strconv.Itoa(id)
}
