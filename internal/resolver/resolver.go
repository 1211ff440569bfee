// Package resolver maps chat sender labels onto known combatants.
package resolver

import (
	"strings"
	"unicode"

	"github.com/dmhelper/extension/pkg/core"
)

// RealmSeparator splits a display name from its cross-realm suffix.
const RealmSeparator = "@"

// CleanSender strips leading glyphs and markup (anything that is not a letter)
// and surrounding whitespace from a raw sender label.
func CleanSender(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeftFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	return strings.TrimSpace(s)
}

// BaseName returns the part of a display name before the realm separator.
func BaseName(displayName string) string {
	base, _, _ := strings.Cut(displayName, RealmSeparator)
	return strings.TrimSpace(base)
}

// ResolveMember finds the first roster member whose base name prefixes the
// cleaned sender label, ignoring case.
func ResolveMember(sender string, roster []core.RosterMember) (core.RosterMember, bool) {
	cleaned := strings.ToLower(CleanSender(sender))
	if cleaned == "" {
		return core.RosterMember{}, false
	}

	for _, m := range roster {
		base := strings.ToLower(BaseName(m.Name))
		if base == "" {
			continue
		}
		if strings.HasPrefix(cleaned, base) {
			return m, true
		}
	}
	return core.RosterMember{}, false
}

// Listener returns the ad-hoc combatant currently listening on the say channel.
func Listener(adHoc []core.AdHocCombatant) (core.AdHocCombatant, bool) {
	for _, c := range adHoc {
		if c.Listening {
			return c, true
		}
	}
	return core.AdHocCombatant{}, false
}

// Resolve picks the combatant a chat message belongs to. Say-channel rolls go
// to the listening ad-hoc combatant; party rolls are matched by name.
func Resolve(channel core.ChatChannel, sender string, roster []core.RosterMember, adHoc []core.AdHocCombatant) (core.CombatantID, string, bool) {
	switch channel {
	case core.ChannelSay:
		c, ok := Listener(adHoc)
		return c.ID, c.Name, ok
	case core.ChannelParty:
		m, ok := ResolveMember(sender, roster)
		return m.ID, m.Name, ok
	default:
		return 0, "", false
	}
}
