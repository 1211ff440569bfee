package parser

import (
	"regexp"
	"strconv"

	"github.com/dmhelper/extension/pkg/core"
)

var (
	partyRollPattern = regexp.MustCompile(`Random!.*?(\d+)$`)
	sayRollPattern   = regexp.MustCompile(`Random! You roll a (\d+) \(out of \d+\)`)
)

// ParseRoll extracts a roll announcement from a chat message.
// Text that is not an announcement returns ok=false; it is chat noise, not an error.
func ParseRoll(channel core.ChatChannel, message string) (int, bool) {
	var pattern *regexp.Regexp
	switch channel {
	case core.ChannelParty:
		pattern = partyRollPattern
	case core.ChannelSay:
		pattern = sayRollPattern
	default:
		return 0, false
	}

	m := pattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	roll, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return roll, true
}
