// Package prompt describes the interactive capability the game layer consumes:
// ask one owner for a bounded choice or a typed value, and post notices.
// Chat and terminal adapters implement Prompter.
package prompt

import (
	"context"
	"errors"
	"strings"
)

var ErrTimedOut = errors.New("prompt timed out")

type Prompter interface {
	RequestChoice(ctx context.Context, req ChoiceRequest) (string, error)
	RequestValue(ctx context.Context, req ValueRequest) (string, error)
	Notify(ctx context.Context, channelID string, n Notice) error
}

type ChoiceRequest struct {
	Filter Filter
	Prompt string
}

type ValueRequest struct {
	Filter Filter
	Prompt string
}

// Event is one inbound reaction or message, reduced to what filtering needs.
type Event struct {
	OwnerID   string
	ChannelID string
	Value     string
}

// Filter decides whether an inbound event answers an outstanding request.
// An empty ChannelID matches any channel; reactions are already scoped to
// the prompt message by the adapter.
type Filter struct {
	OwnerID   string
	ChannelID string
	Tags      []string
	Numeric   bool
}

func (f Filter) Match(ev Event) bool {
	if f.OwnerID == "" || ev.OwnerID != f.OwnerID {
		return false
	}
	if f.ChannelID != "" && ev.ChannelID != f.ChannelID {
		return false
	}
	value := strings.TrimSpace(ev.Value)
	if len(f.Tags) > 0 && !f.Allows(value) {
		return false
	}
	if f.Numeric && !isDigits(value) {
		return false
	}
	return true
}

func (f Filter) Allows(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Canonical maps a case-insensitive spelling of an allowed tag to the tag
// itself.
func (f Filter) Canonical(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, t := range f.Tags {
		if strings.EqualFold(t, raw) {
			return t, true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Notice is a renderer-neutral message: adapters turn it into an embed or a
// terminal block.
type Notice struct {
	Level  Level   `json:"level"`
	Title  string  `json:"title,omitempty"`
	Text   string  `json:"text,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

func Info(text string) Notice    { return Notice{Level: LevelInfo, Text: text} }
func Success(text string) Notice { return Notice{Level: LevelSuccess, Text: text} }
func Warn(text string) Notice    { return Notice{Level: LevelWarn, Text: text} }
func Error(text string) Notice   { return Notice{Level: LevelError, Text: text} }
