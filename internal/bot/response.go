package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Response is the answer to an interaction. It is either sent right away
// or as a follow up of a deferred reply
type Response struct {
	embeds    []*discordgo.MessageEmbed
	ephemeral bool
}

func (response Response) flags() discordgo.MessageFlags {
	if response.ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// Acknowledge the interaction so that discord shows "thinking" while the stats API answers
func deferReply(ctx context.Context, discord *discordgo.Session, interaction *discordgo.Interaction) error {
	err := discord.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("defer reply: %w", err)
	}
	return nil
}

func (response Response) Reply(ctx context.Context, discord *discordgo.Session, interaction *discordgo.Interaction) error {
	err := discord.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: response.embeds, Flags: response.flags()},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

func (response Response) FollowUp(ctx context.Context, discord *discordgo.Session, interaction *discordgo.Interaction) error {
	_, err := discord.FollowupMessageCreate(interaction, true, &discordgo.WebhookParams{
		Embeds: response.embeds,
		Flags:  response.flags(),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("follow up: %w", err)
	}
	return nil
}

// Send all the embeds to a channel as one message
func sendEmbeds(ctx context.Context, discord *discordgo.Session, channelId string, embeds []*discordgo.MessageEmbed) error {
	if _, err := discord.ChannelMessageSendEmbeds(channelId, embeds, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send embeds to channel %s: %w", channelId, err)
	}
	return nil
}
