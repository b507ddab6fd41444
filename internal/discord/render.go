package discord

import (
	"fmt"
	"strings"

	"naturedex/internal/prompt"

	"github.com/bwmarrin/discordgo"
)

// Reaction emojis offered for each choice tag.
var emojiTags = []struct {
	Emoji string
	Tag   string
}{
	{"⚔️", "ATK"},
	{"🔮", "SpATK"},
	{"🛡️", "DEF"},
	{"🔒", "SpDEF"},
	{"⚡", "SPE"},
	{"❤️", "HP"},
	{"✨", "EP"},
}

// Discord sometimes drops the emoji presentation selector on reaction events.
func bareEmoji(s string) string {
	return strings.ReplaceAll(s, "\ufe0f", "")
}

func tagForEmoji(name string) (string, bool) {
	name = bareEmoji(name)
	for _, e := range emojiTags {
		if bareEmoji(e.Emoji) == name {
			return e.Tag, true
		}
	}
	return "", false
}

func emojiForTag(tag string) (string, bool) {
	for _, e := range emojiTags {
		if e.Tag == tag {
			return e.Emoji, true
		}
	}
	return "", false
}

func legend(tags []string) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		if e, ok := emojiForTag(t); ok {
			parts = append(parts, e+" "+t)
		}
	}
	return strings.Join(parts, "   ")
}

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

func colorFor(l prompt.Level) int {
	switch l {
	case prompt.LevelSuccess:
		return 0x57F287
	case prompt.LevelWarn:
		return 0xFEE75C
	case prompt.LevelError:
		return 0xED4245
	default:
		return 0x5865F2
	}
}

func embedFor(n prompt.Notice) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Text,
		Color:       colorFor(n.Level),
	}
	for _, f := range n.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: true})
	}
	return e
}
