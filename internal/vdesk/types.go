// Package vdesk provides the canonical virtual-desktop table for waybar-vd.
// The Store is the single shared mutable resource between the IO loop and
// consumers; it is written by exactly one goroutine and read through
// immutable snapshots.
package vdesk

import (
	"fmt"
)

// VirtualDesktop is one compositor-level desktop group spanning all monitors.
type VirtualDesktop struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Focused     bool   `json:"focused"`
	Populated   bool   `json:"populated"`
	WindowCount int    `json:"windows"`
	Workspaces  []int  `json:"workspaces"`

	// Sequence records creation order within this process. It is only used
	// as a final sort tie-break and is not part of the wire state.
	Sequence uint64 `json:"-"`
}

// EventKind tags a decoded compositor event.
type EventKind string

const (
	EventCreated      EventKind = "created"
	EventDestroyed    EventKind = "destroyed"
	EventRenamed      EventKind = "renamed"
	EventFocused      EventKind = "focused"
	EventWindows      EventKind = "windows"
	EventUnrecognized EventKind = "unrecognized"
)

// Event is a decoded compositor event. Unrecognized is a first-class,
// non-error variant: unknown or malformed lines land here with Raw set so
// protocol evolution never breaks the reconcile loop.
type Event struct {
	Kind  EventKind
	ID    int
	Name  string
	Count int
	Raw   string
}

// Diff enumerates the desktop ids affected by one applied event or
// replacement. It only drives consumer-side updates; store correctness never
// depends on it being consumed.
type Diff struct {
	Added   []int `json:"added,omitempty"`
	Removed []int `json:"removed,omitempty"`
	Changed []int `json:"changed,omitempty"`
}

// Empty reports whether the diff carries no changes.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// SortPolicy selects the externally visible snapshot order.
type SortPolicy string

const (
	SortNumber       SortPolicy = "number"
	SortName         SortPolicy = "name"
	SortFocusedFirst SortPolicy = "focused-first"
)

// ParseSortPolicy validates a configured sort_by value.
func ParseSortPolicy(s string) (SortPolicy, error) {
	switch SortPolicy(s) {
	case SortNumber, SortName, SortFocusedFirst:
		return SortPolicy(s), nil
	case "":
		return SortNumber, nil
	default:
		return "", fmt.Errorf("unknown sort policy %q (want number, name, or focused-first)", s)
	}
}
