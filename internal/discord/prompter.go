package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"naturedex/internal/prompt"

	"github.com/bwmarrin/discordgo"
)

var _ prompt.Prompter = (*Prompter)(nil)

// Prompter asks questions in a channel. Choices are answered by reacting
// to the prompt message (or typing the tag), values by sending a message.
// Handlers live only for the duration of one request.
type Prompter struct {
	t   Transport
	log *slog.Logger
}

func NewPrompter(t Transport, logger *slog.Logger) *Prompter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prompter{t: t, log: logger}
}

func (p *Prompter) RequestChoice(ctx context.Context, req prompt.ChoiceRequest) (string, error) {
	f := req.Filter
	if f.ChannelID == "" {
		return "", errors.New("discord prompts need a channel")
	}
	content := mention(f.OwnerID) + " " + req.Prompt
	if l := legend(f.Tags); l != "" {
		content += "\n" + l
	}
	msg, err := p.t.ChannelMessageSendComplex(f.ChannelID, &discordgo.MessageSend{Content: content})
	if err != nil {
		return "", fmt.Errorf("send choice prompt: %w", err)
	}

	answers := make(chan string, 1)
	removeReaction := p.t.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if r.MessageReaction == nil || r.MessageID != msg.ID {
			return
		}
		tag, ok := tagForEmoji(r.Emoji.Name)
		if !ok || !f.Match(prompt.Event{OwnerID: r.UserID, ChannelID: r.ChannelID, Value: tag}) {
			return
		}
		offer(answers, tag)
	})
	defer removeReaction()
	removeText := p.t.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Message == nil || m.Author == nil {
			return
		}
		tag, ok := f.Canonical(m.Content)
		if !ok || !f.Match(prompt.Event{OwnerID: m.Author.ID, ChannelID: m.ChannelID, Value: tag}) {
			return
		}
		offer(answers, tag)
	})
	defer removeText()

	for _, tag := range f.Tags {
		emoji, ok := emojiForTag(tag)
		if !ok {
			continue
		}
		if err := p.t.MessageReactionAdd(f.ChannelID, msg.ID, emoji); err != nil {
			p.log.Warn("add reaction failed", "channel_id", f.ChannelID, "emoji", emoji, "err", err)
		}
	}
	return wait(ctx, answers)
}

func (p *Prompter) RequestValue(ctx context.Context, req prompt.ValueRequest) (string, error) {
	f := req.Filter
	if f.ChannelID == "" {
		return "", errors.New("discord prompts need a channel")
	}
	answers := make(chan string, 1)
	remove := p.t.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Message == nil || m.Author == nil {
			return
		}
		value := strings.TrimSpace(m.Content)
		if !f.Match(prompt.Event{OwnerID: m.Author.ID, ChannelID: m.ChannelID, Value: value}) {
			return
		}
		offer(answers, value)
	})
	defer remove()

	if _, err := p.t.ChannelMessageSendComplex(f.ChannelID, &discordgo.MessageSend{
		Content: mention(f.OwnerID) + " " + req.Prompt,
	}); err != nil {
		return "", fmt.Errorf("send value prompt: %w", err)
	}
	return wait(ctx, answers)
}

func (p *Prompter) Notify(_ context.Context, channelID string, n prompt.Notice) error {
	if channelID == "" {
		return nil
	}
	_, err := p.t.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embedFor(n)},
	})
	return err
}

// offer keeps the first answer and drops the rest.
func offer(ch chan<- string, v string) {
	select {
	case ch <- v:
	default:
	}
}

func wait(ctx context.Context, answers <-chan string) (string, error) {
	select {
	case v := <-answers:
		return v, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", prompt.ErrTimedOut
		}
		return "", ctx.Err()
	}
}
