package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmhelper/extension/internal/util"
	"github.com/dmhelper/extension/pkg/core"
)

// ChatChannels maps the host's numeric chat types onto the channels the engine watches.
var ChatChannels = map[int]core.ChatChannel{
	10: core.ChannelSay,
	14: core.ChannelParty,
}

// ParseChannel accepts either a numeric host chat type or a channel name.
func ParseChannel(s string) core.ChatChannel {
	if code, err := parseIntFromFloat(s); err == nil {
		if ch, ok := ChatChannels[int(code)]; ok {
			return ch
		}
		return core.ChannelOther
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "party":
		return core.ChannelParty
	case "say":
		return core.ChannelSay
	}
	return core.ChannelOther
}

// ParseChatEvent parses chat event data and returns a core ChatEvent.
// Expected args: [channel, unix timestamp, sender, message].
// A zero or empty timestamp is replaced with the current time.
func (p *Parser) ParseChatEvent(data []string) (core.ChatEvent, error) {
	var chatEvent core.ChatEvent

	if len(data) < 4 {
		return chatEvent, fmt.Errorf("chat event: expected 4 args, got %d", len(data))
	}
	util.CleanArgs(data)

	chatEvent.Channel = ParseChannel(data[0])

	chatEvent.Time = p.now()
	if data[1] != "" {
		ts, err := parseIntFromFloat(data[1])
		if err != nil {
			return chatEvent, fmt.Errorf("error converting chat timestamp: %w", err)
		}
		if ts > 0 {
			chatEvent.Time = time.Unix(ts, 0)
		}
	}

	chatEvent.Sender = data[2]
	chatEvent.Message = data[3]

	return chatEvent, nil
}
