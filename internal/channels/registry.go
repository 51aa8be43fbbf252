// Package channels contains the channel adapter implementations and the
// registry resolving an escalation's channel to its adapter.
package channels

import (
	"fmt"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

// Registry maps channel names to adapters, resolved once at startup so the
// delivery path never branches on channel type.
type Registry struct {
	adapters map[string]secondary.ChannelAdapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...secondary.ChannelAdapter) *Registry {
	m := make(map[string]secondary.ChannelAdapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

// Resolve returns the adapter for a channel.
func (r *Registry) Resolve(channel string) (secondary.ChannelAdapter, error) {
	adapter, ok := r.adapters[channel]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for channel %q", channel)
	}
	return adapter, nil
}

// Known reports whether a channel has a registered adapter.
func (r *Registry) Known(channel string) bool {
	_, ok := r.adapters[channel]
	return ok
}
