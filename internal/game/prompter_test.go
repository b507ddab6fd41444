package game_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"naturedex/internal/prompt"
)

type step struct {
	kind    string
	value   string
	timeout bool
	err     error
	entered chan struct{}
	release chan struct{}
}

func choice(v string) step { return step{kind: "choice", value: v} }
func value(v string) step  { return step{kind: "value", value: v} }
func timeoutOn(kind string) step {
	return step{kind: kind, timeout: true}
}

// scriptPrompter answers requests from a fixed script and records what was
// asked.
type scriptPrompter struct {
	mu      sync.Mutex
	steps   []step
	kinds   []string
	filters []prompt.Filter
	notices []prompt.Notice
}

func newScript(steps ...step) *scriptPrompter {
	return &scriptPrompter{steps: steps}
}

func (p *scriptPrompter) RequestChoice(ctx context.Context, req prompt.ChoiceRequest) (string, error) {
	return p.next(ctx, "choice", req.Filter)
}

func (p *scriptPrompter) RequestValue(ctx context.Context, req prompt.ValueRequest) (string, error) {
	return p.next(ctx, "value", req.Filter)
}

func (p *scriptPrompter) Notify(_ context.Context, _ string, n prompt.Notice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, n)
	return nil
}

func (p *scriptPrompter) next(ctx context.Context, kind string, f prompt.Filter) (string, error) {
	p.mu.Lock()
	p.kinds = append(p.kinds, kind)
	p.filters = append(p.filters, f)
	if len(p.steps) == 0 {
		p.mu.Unlock()
		return "", errors.New("script exhausted")
	}
	s := p.steps[0]
	p.steps = p.steps[1:]
	p.mu.Unlock()

	if s.kind != kind {
		return "", fmt.Errorf("script wanted a %s request, got %s", s.kind, kind)
	}
	if s.entered != nil {
		close(s.entered)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return "", prompt.ErrTimedOut
		}
	}
	if s.timeout {
		<-ctx.Done()
		return "", prompt.ErrTimedOut
	}
	if s.err != nil {
		return "", s.err
	}
	return s.value, nil
}

func (p *scriptPrompter) requestKinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.kinds...)
}

func (p *scriptPrompter) noticeLevels() []prompt.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]prompt.Level, 0, len(p.notices))
	for _, n := range p.notices {
		out = append(out, n.Level)
	}
	return out
}
