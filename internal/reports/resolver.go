package reports

import (
	"context"
	"errors"
	"fmt"

	"scuttle/internal/statsapi"
)

var (
	// ErrNotConfigured means the guild never chose a channel for automatic messages
	ErrNotConfigured = errors.New("guild channel not configured")
	// ErrTransient means the channel could not be looked up right now
	ErrTransient = errors.New("guild channel lookup failed")
)

type ChannelApi interface {
	GetGuildChannel(ctx context.Context, guildId string) (string, error)
}

// ChannelResolver finds the channel a guild receives automatic messages in
type ChannelResolver struct {
	api ChannelApi
}

func NewChannelResolver(api ChannelApi) *ChannelResolver {
	return &ChannelResolver{api: api}
}

func (resolver *ChannelResolver) Resolve(ctx context.Context, guildId string) (string, error) {

	channelId, err := resolver.api.GetGuildChannel(ctx, guildId)
	switch {
	case errors.Is(err, statsapi.ErrNotFound):
		return "", fmt.Errorf("guild %s: %w", guildId, ErrNotConfigured)
	case err != nil:
		return "", fmt.Errorf("guild %s: %w: %w", guildId, ErrTransient, err)
	case channelId == "":
		return "", fmt.Errorf("guild %s has an empty channel: %w", guildId, ErrNotConfigured)
	}
	return channelId, nil
}
