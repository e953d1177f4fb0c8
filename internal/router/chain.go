package router

import (
	"fmt"

	"github.com/capitalize-ai/conversation-router/internal/model"
)

// ValidateChain checks the configured fallback topology at startup: every
// declared next hop must exist and not outrank its channel, and walking
// from any channel must reach a terminal channel (one with no fallback)
// without revisiting a node.
func ValidateChain(configs map[model.ChannelType]model.ChannelConfig) error {
	for channelType, cfg := range configs {
		if cfg.FallbackChannel == "" {
			continue
		}
		next, ok := configs[cfg.FallbackChannel]
		if !ok {
			return fmt.Errorf("channel %q declares unknown fallback %q", channelType, cfg.FallbackChannel)
		}
		if next.Priority < cfg.Priority {
			return fmt.Errorf("channel %q falls back to higher-priority channel %q", channelType, cfg.FallbackChannel)
		}
	}

	for start := range configs {
		visited := map[model.ChannelType]bool{start: true}
		current := start
		for {
			next := configs[current].FallbackChannel
			if next == "" {
				break
			}
			if visited[next] {
				return fmt.Errorf("fallback cycle detected starting at %q (revisits %q)", start, next)
			}
			visited[next] = true
			current = next
		}
	}

	return nil
}

// fallbackChain returns the ordered hops after the given channel.
func fallbackChain(configs map[model.ChannelType]model.ChannelConfig, from model.ChannelType) []model.ChannelType {
	var chain []model.ChannelType
	current := from
	for {
		next := configs[current].FallbackChannel
		if next == "" {
			break
		}
		chain = append(chain, next)
		current = next
	}
	return chain
}
