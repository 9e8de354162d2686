package core

import (
	"strings"

	"pkt.systems/jellyj/schema"
)

// Identity classifies panes as the companion.
type Identity struct {
	PaneName      string
	LaunchCommand string
}

// LeadingToken returns the executable token of a command line.
func LeadingToken(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Matches reports whether pane is the companion. Command matching is loose
// because hosts may report the command wrapped in a shell invocation.
func (id Identity) Matches(pane schema.Pane) bool {
	if !pane.Usable() {
		return false
	}
	if pane.Title == id.PaneName {
		return true
	}
	if pane.TerminalCommand == "" || id.LaunchCommand == "" {
		return false
	}
	if strings.Contains(pane.TerminalCommand, id.LaunchCommand) {
		return true
	}
	token := LeadingToken(id.LaunchCommand)
	return token != "" && strings.Contains(pane.TerminalCommand, token)
}

// Canonical picks the pane to keep among companion candidates and returns the
// remaining ones as extras. Rules are tried in order; the first candidate wins
// when none match.
func Canonical(candidates []schema.PlacedPane, rules []schema.TieBreak, tracked *schema.PaneID, currentTab schema.TabPosition) (schema.PlacedPane, []schema.PlacedPane, bool) {
	if len(candidates) == 0 {
		return schema.PlacedPane{}, nil, false
	}
	keep := -1
	for _, rule := range rules {
		keep = indexWhere(candidates, func(p schema.PlacedPane) bool {
			switch rule {
			case schema.TieBreakTracked:
				return tracked != nil && p.Pane.ID == *tracked
			case schema.TieBreakCurrentTab:
				return p.Tab == currentTab
			case schema.TieBreakFocused:
				return p.Pane.IsFocused
			}
			return false
		})
		if keep >= 0 {
			break
		}
	}
	if keep < 0 {
		keep = 0
	}
	extras := make([]schema.PlacedPane, 0, len(candidates)-1)
	for i, candidate := range candidates {
		if i != keep {
			extras = append(extras, candidate)
		}
	}
	return candidates[keep], extras, true
}

func indexWhere(list []schema.PlacedPane, pred func(schema.PlacedPane) bool) int {
	for i, item := range list {
		if pred(item) {
			return i
		}
	}
	return -1
}
