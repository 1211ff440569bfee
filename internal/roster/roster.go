// Package roster supplies the real party members the resolver matches chat
// senders against.
package roster

import (
	"context"
	"fmt"
	"slices"

	"github.com/dmhelper/extension/internal/config"
	"github.com/dmhelper/extension/pkg/core"
)

// Provider reports the current party.
type Provider interface {
	Members(ctx context.Context) ([]core.RosterMember, error)
}

// Fetcher is the subset of the API client used by the HTTP provider.
type Fetcher interface {
	Roster(ctx context.Context) ([]core.RosterMember, error)
}

// Static serves a fixed member list.
type Static struct {
	members []core.RosterMember
}

// NewStatic copies members into a static provider.
func NewStatic(members ...core.RosterMember) *Static {
	return &Static{members: slices.Clone(members)}
}

// FromConfig builds a static provider from configured members.
func FromConfig(members []config.RosterMemberConfig) *Static {
	out := make([]core.RosterMember, 0, len(members))
	for _, m := range members {
		out = append(out, core.RosterMember{ID: core.CombatantID(m.ID), Name: m.Name})
	}
	return &Static{members: out}
}

// Members returns a copy of the configured list.
func (s *Static) Members(context.Context) ([]core.RosterMember, error) {
	return slices.Clone(s.members), nil
}

// HTTP fetches the roster from the companion web service.
type HTTP struct {
	client Fetcher
}

// NewHTTP wraps an API client.
func NewHTTP(client Fetcher) *HTTP {
	return &HTTP{client: client}
}

// Members asks the web service for the current party. Members whose ID
// falls into the ad-hoc range are rejected.
func (h *HTTP) Members(ctx context.Context) ([]core.RosterMember, error) {
	members, err := h.client.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	return slices.DeleteFunc(members, func(m core.RosterMember) bool {
		return m.ID.IsAdHoc()
	}), nil
}

// New selects a provider by source name: "static" or "http".
func New(cfg config.RosterConfig, client Fetcher) (Provider, error) {
	switch cfg.Source {
	case "", "static":
		return FromConfig(cfg.Members), nil
	case "http":
		if client == nil {
			return nil, fmt.Errorf("roster source http needs an API client")
		}
		return NewHTTP(client), nil
	default:
		return nil, fmt.Errorf("unknown roster source: %s", cfg.Source)
	}
}
