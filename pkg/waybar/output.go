// Package waybar renders desktop snapshots into the JSON line protocol
// consumed by Waybar custom modules.
package waybar

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/givani30/waybar-vd/internal/engine"
	"github.com/givani30/waybar-vd/internal/vdesk"
	"github.com/moby/patternmatcher"
)

// Output is one Waybar module update. Marshaled as a single line on stdout.
type Output struct {
	Text    string   `json:"text"`
	Tooltip string   `json:"tooltip,omitempty"`
	Class   []string `json:"class,omitempty"`
}

// Options controls rendering. Values arrive pre-validated from config.
type Options struct {
	// Format is the per-desktop template. Placeholders: {name}, {icon},
	// {id}, {window_count}.
	Format string
	// Separator joins rendered desktops in the text field.
	Separator string
	// ShowEmpty includes desktops with no windows.
	ShowEmpty bool
	// ShowWindowCount appends " (N)" when the format has no
	// {window_count} placeholder and the desktop is populated.
	ShowWindowCount bool
	// FormatIcons maps a desktop key to an icon. Keys are matched against
	// the desktop id, then the exact name, then as a glob pattern on the
	// name. The "default" key is the fallback.
	FormatIcons map[string]string
}

// iconRule is one pre-compiled FormatIcons entry.
type iconRule struct {
	key     string
	icon    string
	matcher *patternmatcher.PatternMatcher
}

// Renderer turns snapshots into Waybar output lines.
type Renderer struct {
	opts  Options
	rules []iconRule
}

// NewRenderer compiles the icon table. Glob keys that fail to compile fall
// back to exact matching.
func NewRenderer(opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = "{name}"
	}
	if opts.Separator == "" {
		opts.Separator = " "
	}

	r := &Renderer{opts: opts}

	// Deterministic rule order regardless of map iteration.
	keys := make([]string, 0, len(opts.FormatIcons))
	for key := range opts.FormatIcons {
		if key == "default" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		rule := iconRule{key: key, icon: opts.FormatIcons[key]}
		if strings.ContainsAny(key, "*?[") {
			if pm, err := patternmatcher.New([]string{key}); err == nil {
				rule.matcher = pm
			}
		}
		r.rules = append(r.rules, rule)
	}
	return r
}

// Render produces the module output for one update.
func (r *Renderer) Render(update engine.Update) Output {
	switch update.Status.State {
	case engine.StateConnected:
		return r.renderDesktops(update.Desktops)
	case engine.StateFailed:
		return Output{
			Text:    "",
			Tooltip: "Compositor connection failed: " + update.Status.Reason,
			Class:   []string{"disconnected", "failed"},
		}
	default:
		return Output{
			Text:    "",
			Tooltip: "Connecting to compositor...",
			Class:   []string{"disconnected"},
		}
	}
}

func (r *Renderer) renderDesktops(desktops []vdesk.VirtualDesktop) Output {
	var parts []string
	var tooltips []string
	classes := map[string]struct{}{}

	for _, d := range desktops {
		if !r.opts.ShowEmpty && !d.Populated && !d.Focused {
			continue
		}

		parts = append(parts, r.renderOne(d))
		tooltips = append(tooltips, tooltipLine(d))

		if d.Focused {
			classes["focused"] = struct{}{}
		}
		if d.Populated {
			classes["populated"] = struct{}{}
		}
	}

	out := Output{
		Text:    strings.Join(parts, r.opts.Separator),
		Tooltip: strings.Join(tooltips, "\n"),
	}
	for class := range classes {
		out.Class = append(out.Class, class)
	}
	sort.Strings(out.Class)
	return out
}

// renderOne expands the format template for a single desktop.
func (r *Renderer) renderOne(d vdesk.VirtualDesktop) string {
	text := r.opts.Format
	text = strings.ReplaceAll(text, "{name}", d.Name)
	text = strings.ReplaceAll(text, "{id}", strconv.Itoa(d.ID))
	text = strings.ReplaceAll(text, "{icon}", r.icon(d))

	hadCount := strings.Contains(text, "{window_count}")
	text = strings.ReplaceAll(text, "{window_count}", strconv.Itoa(d.WindowCount))

	if r.opts.ShowWindowCount && !hadCount && d.WindowCount > 0 {
		text += fmt.Sprintf(" (%d)", d.WindowCount)
	}
	return text
}

// icon resolves the icon for a desktop: id key first, then exact name, then
// glob patterns in sorted key order, then the "default" entry.
func (r *Renderer) icon(d vdesk.VirtualDesktop) string {
	if icon, ok := r.opts.FormatIcons[strconv.Itoa(d.ID)]; ok {
		return icon
	}
	if icon, ok := r.opts.FormatIcons[d.Name]; ok {
		return icon
	}
	for _, rule := range r.rules {
		if rule.matcher == nil {
			continue
		}
		if matched, err := rule.matcher.MatchesOrParentMatches(d.Name); err == nil && matched {
			return rule.icon
		}
	}
	return r.opts.FormatIcons["default"]
}

func tooltipLine(d vdesk.VirtualDesktop) string {
	line := fmt.Sprintf("Virtual Desktop %d: %s (%d windows)", d.ID, d.Name, d.WindowCount)
	if d.Focused {
		line += " - focused"
	}
	return line
}

// Encode marshals the output as one JSON line, the framing Waybar expects
// from a custom module with return-type json.
func (o Output) Encode() ([]byte, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
