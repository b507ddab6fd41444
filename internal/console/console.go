// Package console plays the game in a terminal: prompts are printed, answers
// are typed, notices are rendered as colored blocks.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"naturedex/internal/prompt"
	"naturedex/internal/stat"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// ChannelID is the channel every console request and notice uses.
const ChannelID = "console"

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)

	box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("6")).
		Padding(0, 1)
	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	label = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var _ prompt.Prompter = (*Prompter)(nil)

type line struct {
	text string
	err  error
}

// Prompter reads answers for a single local player. Input is read by one
// background goroutine so a pending prompt can still time out.
type Prompter struct {
	in    io.Reader
	out   io.Writer
	owner string

	once  sync.Once
	lines chan line
	mu    sync.Mutex
}

func New(in io.Reader, out io.Writer, owner string) *Prompter {
	return &Prompter{in: in, out: out, owner: owner, lines: make(chan line)}
}

func (p *Prompter) Owner() string { return p.owner }

func (p *Prompter) start() {
	p.once.Do(func() {
		go func() {
			defer close(p.lines)
			sc := bufio.NewScanner(p.in)
			for sc.Scan() {
				p.lines <- line{text: sc.Text()}
			}
			if err := sc.Err(); err != nil {
				p.lines <- line{err: err}
			}
		}()
	})
}

// ReadLine returns the next typed line, io.EOF once input is closed, or
// prompt.ErrTimedOut when ctx runs out first.
func (p *Prompter) ReadLine(ctx context.Context) (string, error) {
	p.start()
	select {
	case l, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(l.text), l.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", prompt.ErrTimedOut
		}
		return "", ctx.Err()
	}
}

func (p *Prompter) RequestChoice(ctx context.Context, req prompt.ChoiceRequest) (string, error) {
	f := req.Filter
	p.printf(accent, "%s\n", req.Prompt)
	p.printf(neutral, "Options: %s\n", strings.Join(f.Tags, " / "))
	for {
		p.printf(neutral, "> ")
		raw, err := p.ReadLine(ctx)
		if err != nil {
			return "", err
		}
		tag, ok := f.Canonical(raw)
		if !ok {
			if s, parsed := stat.Parse(raw); parsed && f.Allows(string(s)) {
				tag, ok = string(s), true
			}
		}
		if ok && f.Match(prompt.Event{OwnerID: p.owner, ChannelID: f.ChannelID, Value: tag}) {
			return tag, nil
		}
		p.printf(warn, "Pick one of: %s\n", strings.Join(f.Tags, ", "))
	}
}

func (p *Prompter) RequestValue(ctx context.Context, req prompt.ValueRequest) (string, error) {
	f := req.Filter
	p.printf(accent, "%s\n", req.Prompt)
	for {
		p.printf(neutral, "> ")
		raw, err := p.ReadLine(ctx)
		if err != nil {
			return "", err
		}
		if f.Match(prompt.Event{OwnerID: p.owner, ChannelID: f.ChannelID, Value: raw}) {
			return raw, nil
		}
		p.printf(warn, "Enter a whole number.\n")
	}
}

func (p *Prompter) Notify(_ context.Context, _ string, n prompt.Notice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Render(p.out, n)
}

func (p *Prompter) printf(c *color.Color, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = c.Fprintf(p.out, format, args...)
}

// Render writes a notice. Notices with fields are drawn as a box.
func Render(w io.Writer, n prompt.Notice) error {
	if len(n.Fields) == 0 {
		text := n.Text
		if n.Title != "" {
			text = n.Title + ": " + text
		}
		_, err := levelColor(n.Level).Fprintln(w, text)
		return err
	}

	var b strings.Builder
	if n.Title != "" {
		b.WriteString(title.Render(n.Title) + "\n")
	}
	if n.Text != "" {
		b.WriteString(n.Text + "\n")
	}
	width := 0
	for _, f := range n.Fields {
		width = max(width, len(f.Name))
	}
	for i, f := range n.Fields {
		value := strings.ReplaceAll(f.Value, "\n", " | ")
		b.WriteString(label.Render(fmt.Sprintf("%-*s", width, f.Name)) + "  " + value)
		if i < len(n.Fields)-1 {
			b.WriteString("\n")
		}
	}
	_, err := fmt.Fprintln(w, box.Render(b.String()))
	return err
}

func levelColor(l prompt.Level) *color.Color {
	switch l {
	case prompt.LevelSuccess:
		return success
	case prompt.LevelWarn:
		return warn
	case prompt.LevelError:
		return danger
	default:
		return neutral
	}
}
