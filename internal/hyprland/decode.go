package hyprland

import (
	"strconv"
	"strings"

	"github.com/givani30/waybar-vd/internal/vdesk"
)

// Event tags emitted by the virtual-desktops plugin on the event socket.
// Lines look like "vdeskcreated>>3,Work".
const (
	tagSeparator   = ">>"
	tagCreated     = "vdeskcreated"
	tagDestroyed   = "vdeskdestroyed"
	tagRenamed     = "vdeskrenamed"
	tagFocused     = "vdeskfocused"
	tagFocusedAlt  = "vdesk" // umbrella focus event, payload is the active id
	tagWindowCount = "vdeskwindows"
)

// Decode converts one raw protocol line into a typed event. It is total:
// unknown tags, wrong arity, and unparsable ids all classify the line as
// Unrecognized rather than erroring, so protocol evolution can never break
// the reconcile loop.
func Decode(line string) vdesk.Event {
	tag, payload, found := strings.Cut(line, tagSeparator)
	if !found {
		return unrecognized(line)
	}

	switch tag {
	case tagCreated:
		id, name, ok := idAndString(payload)
		if !ok {
			return unrecognized(line)
		}
		return vdesk.Event{Kind: vdesk.EventCreated, ID: id, Name: name}

	case tagDestroyed:
		id, ok := parseID(payload)
		if !ok {
			return unrecognized(line)
		}
		return vdesk.Event{Kind: vdesk.EventDestroyed, ID: id}

	case tagRenamed:
		id, name, ok := idAndString(payload)
		if !ok {
			return unrecognized(line)
		}
		return vdesk.Event{Kind: vdesk.EventRenamed, ID: id, Name: name}

	case tagFocused, tagFocusedAlt:
		id, ok := parseID(payload)
		if !ok {
			return unrecognized(line)
		}
		return vdesk.Event{Kind: vdesk.EventFocused, ID: id}

	case tagWindowCount:
		id, count, ok := idAndCount(payload)
		if !ok {
			return unrecognized(line)
		}
		return vdesk.Event{Kind: vdesk.EventWindows, ID: id, Count: count}

	default:
		return unrecognized(line)
	}
}

func unrecognized(line string) vdesk.Event {
	return vdesk.Event{Kind: vdesk.EventUnrecognized, Raw: line}
}

// parseID parses a desktop id. Ids are unsigned on the wire; a negative or
// non-numeric value classifies the whole line as unrecognized.
func parseID(field string) (int, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(field), 10, 31)
	if err != nil {
		return 0, false
	}
	return int(id), true
}

// idAndString splits "id,rest" where rest may itself contain commas
// (desktop names are free-form).
func idAndString(payload string) (int, string, bool) {
	idField, rest, found := strings.Cut(payload, ",")
	if !found {
		return 0, "", false
	}
	id, ok := parseID(idField)
	if !ok {
		return 0, "", false
	}
	return id, rest, true
}

// idAndCount splits "id,count" with exactly two numeric fields.
func idAndCount(payload string) (int, int, bool) {
	fields := strings.Split(payload, ",")
	if len(fields) != 2 {
		return 0, 0, false
	}
	id, ok := parseID(fields[0])
	if !ok {
		return 0, 0, false
	}
	count, ok := parseID(fields[1])
	if !ok {
		return 0, 0, false
	}
	return id, count, true
}
