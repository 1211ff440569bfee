package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmhelper/extension/internal/dispatcher"
	"github.com/dmhelper/extension/pkg/hostapi"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    replLine
		wantErr bool
	}{
		{
			name: "raw command",
			line: ":ADVERSARY:ADD:|Ghoul|5|12",
			want: replLine{command: ":ADVERSARY:ADD:", args: []string{"Ghoul", "5", "12"}},
		},
		{
			name: "raw command without args",
			line: "  :RESOLVE:  ",
			want: replLine{command: ":RESOLVE:", args: []string{}},
		},
		{
			name: "party chat",
			line: "Bram Stoutheart: Random! Bram Stoutheart rolls a 15",
			want: replLine{command: ":CHAT:", args: []string{"Party", "0", "Bram Stoutheart", "Random! Bram Stoutheart rolls a 15"}},
		},
		{
			name: "say roll",
			line: "/say Random! You roll a 13 (out of 20).",
			want: replLine{command: ":CHAT:", args: []string{"Say", "0", "", "Random! You roll a 13 (out of 20)."}},
		},
		{name: "empty", line: "   ", wantErr: true},
		{name: "no sender", line: "just talking", wantErr: true},
		{name: "blank sender", line: " : hello", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunREPL(t *testing.T) {
	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	var calls []string
	d.Register(":STATUS:", func(dispatcher.Event) (any, error) {
		calls = append(calls, ":STATUS:")
		return "No phase selected", nil
	})
	d.Register(":CHAT:", func(e dispatcher.Event) (any, error) {
		calls = append(calls, e.Args[2])
		return nil, nil
	})

	prev := hostapi.GetDispatcher()
	hostapi.SetDispatcher(d)
	t.Cleanup(func() {
		d.Close()
		hostapi.SetDispatcher(prev)
	})

	in := strings.NewReader(":STATUS:\n\nBram: hi\nnonsense\nquit\n:STATUS:\n")
	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), in, &out))

	assert.Equal(t, []string{":STATUS:", "Bram"}, calls)
	assert.Contains(t, out.String(), `["ok",":STATUS:","No phase selected"]`)
	assert.Contains(t, out.String(), `["ok",":CHAT:"]`)
	assert.Contains(t, out.String(), `expected "sender: message"`)
}

func TestRunREPL_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runREPL(ctx, strings.NewReader(":STATUS:\n"), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}
