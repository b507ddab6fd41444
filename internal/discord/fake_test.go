package discord

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

type sentMessage struct {
	channelID string
	id        string
	data      *discordgo.MessageSend
}

type fakeTransport struct {
	mu        sync.Mutex
	nextID    int
	handlers  map[int]interface{}
	sent      []sentMessage
	reactions []string
	activity  chan string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[int]interface{}), activity: make(chan string, 64)}
}

func (f *fakeTransport) AddHandler(handler interface{}) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.handlers[id] = handler
	return func() {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
	}
}

func (f *fakeTransport) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	f.nextID++
	id := fmt.Sprintf("m%d", f.nextID)
	f.sent = append(f.sent, sentMessage{channelID: channelID, id: id, data: data})
	f.mu.Unlock()
	f.activity <- "send"
	return &discordgo.Message{ID: id, ChannelID: channelID, Content: data.Content}, nil
}

func (f *fakeTransport) MessageReactionAdd(_, _, emoji string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	f.reactions = append(f.reactions, emoji)
	f.mu.Unlock()
	f.activity <- "react"
	return nil
}

func (f *fakeTransport) handlerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *fakeTransport) lastSent() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeTransport) snapshot() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interface{}, 0, len(f.handlers))
	for _, h := range f.handlers {
		out = append(out, h)
	}
	return out
}

func (f *fakeTransport) message(userID, channelID, content string) {
	ev := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "in",
		ChannelID: channelID,
		Content:   content,
		Author:    &discordgo.User{ID: userID},
	}}
	for _, h := range f.snapshot() {
		if fn, ok := h.(func(*discordgo.Session, *discordgo.MessageCreate)); ok {
			fn(nil, ev)
		}
	}
}

func (f *fakeTransport) react(userID, channelID, messageID, emoji string) {
	ev := &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		UserID:    userID,
		MessageID: messageID,
		ChannelID: channelID,
		Emoji:     discordgo.Emoji{Name: emoji},
	}}
	for _, h := range f.snapshot() {
		if fn, ok := h.(func(*discordgo.Session, *discordgo.MessageReactionAdd)); ok {
			fn(nil, ev)
		}
	}
}

// expect waits for the next n transport calls of the given kind.
func (f *fakeTransport) expect(t *testing.T, kind string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case got := <-f.activity:
			if got != kind {
				t.Fatalf("expected %s, got %s", kind, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s %d/%d", kind, i+1, n)
		}
	}
}
