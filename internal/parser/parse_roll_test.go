package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmhelper/extension/pkg/core"
)

func TestParseRoll(t *testing.T) {
	tests := []struct {
		name    string
		channel core.ChatChannel
		message string
		want    int
		wantOK  bool
	}{
		{"party announcement", core.ChannelParty, "Random! Aurora Vance rolls a 17", 17, true},
		{"party lottery style", core.ChannelParty, "Random! (1-20) 20", 20, true},
		{"party trailing text", core.ChannelParty, "Random! rolls 17 nicely", 0, false},
		{"party plain chat", core.ChannelParty, "I rolled 17", 0, false},
		{"say announcement", core.ChannelSay, "Random! You roll a 4 (out of 20).", 4, true},
		{"say big max", core.ChannelSay, "Random! You roll a 999 (out of 999)", 999, true},
		{"say wrong shape", core.ChannelSay, "Random! Bram rolls 12", 0, false},
		{"party shape on say", core.ChannelSay, "Random! 12", 0, false},
		{"other channel", core.ChannelOther, "Random! You roll a 4 (out of 20)", 0, false},
		{"overflow", core.ChannelParty, "Random! 99999999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRoll(tt.channel, tt.message)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
