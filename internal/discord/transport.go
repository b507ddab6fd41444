// Package discord runs the game over a Discord gateway connection: chat
// commands in, reaction and message prompts for allocation sessions, embeds
// for results.
package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Transport is the part of *discordgo.Session the bot uses.
type Transport interface {
	AddHandler(handler interface{}) func()
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

var _ Transport = (*discordgo.Session)(nil)

const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsDirectMessageReactions |
	discordgo.IntentsMessageContent

// Connect opens a gateway session for a bot token.
func Connect(token string) (*discordgo.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	s, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = Intents
	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("discord gateway: %w", err)
	}
	return s, nil
}
