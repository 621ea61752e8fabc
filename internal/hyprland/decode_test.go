package hyprland

import (
	"testing"

	"github.com/givani30/waybar-vd/internal/vdesk"
	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		line string
		want vdesk.Event
	}{
		{
			name: "created",
			line: "vdeskcreated>>3,Work",
			want: vdesk.Event{Kind: vdesk.EventCreated, ID: 3, Name: "Work"},
		},
		{
			name: "created with comma in name",
			line: "vdeskcreated>>4,mail, chat",
			want: vdesk.Event{Kind: vdesk.EventCreated, ID: 4, Name: "mail, chat"},
		},
		{
			name: "destroyed",
			line: "vdeskdestroyed>>3",
			want: vdesk.Event{Kind: vdesk.EventDestroyed, ID: 3},
		},
		{
			name: "renamed",
			line: "vdeskrenamed>>2,Music",
			want: vdesk.Event{Kind: vdesk.EventRenamed, ID: 2, Name: "Music"},
		},
		{
			name: "focused",
			line: "vdeskfocused>>5",
			want: vdesk.Event{Kind: vdesk.EventFocused, ID: 5},
		},
		{
			name: "umbrella focus",
			line: "vdesk>>2",
			want: vdesk.Event{Kind: vdesk.EventFocused, ID: 2},
		},
		{
			name: "window count",
			line: "vdeskwindows>>1,4",
			want: vdesk.Event{Kind: vdesk.EventWindows, ID: 1, Count: 4},
		},
		{
			name: "unknown tag",
			line: "workspace>>3",
			want: vdesk.Event{Kind: vdesk.EventUnrecognized, Raw: "workspace>>3"},
		},
		{
			name: "no separator",
			line: "vdeskfocused",
			want: vdesk.Event{Kind: vdesk.EventUnrecognized, Raw: "vdeskfocused"},
		},
		{
			name: "negative id",
			line: "vdeskfocused>>-1",
			want: vdesk.Event{Kind: vdesk.EventUnrecognized, Raw: "vdeskfocused>>-1"},
		},
		{
			name: "non-numeric id",
			line: "vdeskdestroyed>>abc",
			want: vdesk.Event{Kind: vdesk.EventUnrecognized, Raw: "vdeskdestroyed>>abc"},
		},
		{
			name: "created missing name field",
			line: "vdeskcreated>>7",
			want: vdesk.Event{Kind: vdesk.EventUnrecognized, Raw: "vdeskcreated>>7"},
		},
		{
			name: "window count wrong arity",
			line: "vdeskwindows>>1,2,3",
			want: vdesk.Event{Kind: vdesk.EventUnrecognized, Raw: "vdeskwindows>>1,2,3"},
		},
		{
			name: "empty line",
			line: "",
			want: vdesk.Event{Kind: vdesk.EventUnrecognized, Raw: ""},
		},
		{
			name: "empty created name keeps event",
			line: "vdeskcreated>>9,",
			want: vdesk.Event{Kind: vdesk.EventCreated, ID: 9, Name: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.line))
		})
	}
}

func TestParseState(t *testing.T) {
	reply := `[
		{"id": 1, "name": "main", "focused": true, "populated": true, "windows": 3, "workspaces": [1, 2]},
		{"id": 2, "name": "web", "focused": false, "populated": false, "windows": 0, "workspaces": []}
	]`

	desktops, err := ParseState(reply)
	assert.NoError(t, err)
	assert.Len(t, desktops, 2)
	assert.Equal(t, "main", desktops[0].Name)
	assert.True(t, desktops[0].Focused)
	assert.Equal(t, 3, desktops[0].WindowCount)
	assert.Equal(t, []int{1, 2}, desktops[0].Workspaces)
}

func TestParseStateRejectsMalformed(t *testing.T) {
	_, err := ParseState("")
	assert.Error(t, err)

	_, err = ParseState("not json")
	assert.Error(t, err)

	_, err = ParseState(`[{"id": -2, "name": "x"}]`)
	assert.Error(t, err)
}

func TestParseDesk(t *testing.T) {
	desktop, err := ParseDesk(`{"id": 4, "name": "mail", "windows": 1}`)
	assert.NoError(t, err)
	assert.Equal(t, 4, desktop.ID)
	assert.Equal(t, "mail", desktop.Name)
	assert.Equal(t, 1, desktop.WindowCount)
}
