package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"naturedex/internal/prompt"
	"naturedex/internal/stat"

	"github.com/google/uuid"
)

const DefaultPromptTimeout = 60 * time.Second

type SessionRequest struct {
	OwnerID   string
	ChannelID string
	Budget    int
	Timeout   time.Duration
}

type PickRequest struct {
	OwnerID   string
	ChannelID string
	Options   []string
	Prompt    string
	Timeout   time.Duration
}

// Controller drives an Allocation through a Prompter. It never touches the
// store: a nil error from Run means the returned block is ready to commit.
type Controller struct {
	prompter prompt.Prompter
	log      *slog.Logger
}

func NewController(p prompt.Prompter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{prompter: p, log: logger}
}

func (c *Controller) Run(ctx context.Context, req SessionRequest) (stat.Block, error) {
	log := c.log.With("session_id", uuid.NewString(), "owner_id", req.OwnerID, "budget", req.Budget)
	alloc := NewAllocation(req.Budget)
	choice := prompt.Filter{OwnerID: req.OwnerID, ChannelID: req.ChannelID, Tags: stat.Tags()}
	amount := prompt.Filter{OwnerID: req.OwnerID, ChannelID: req.ChannelID, Numeric: true}

	log.Info("allocation session started")
	for !alloc.Done() {
		switch alloc.Phase() {
		case PhaseAwaitingChoice:
			tag, err := c.ask(ctx, req.Timeout, func(ctx context.Context) (string, error) {
				return c.prompter.RequestChoice(ctx, prompt.ChoiceRequest{
					Filter: choice,
					Prompt: fmt.Sprintf("Pick a stat to distribute your stat points. You have %d points left.", alloc.Remaining()),
				})
			})
			if err != nil {
				return nil, c.abort(ctx, alloc, req.ChannelID, log, err)
			}
			s, ok := stat.Parse(tag)
			if !ok {
				s = stat.Stat(tag)
			}
			if err := alloc.Choose(s); err != nil {
				log.Debug("ignored stat choice", "tag", tag)
			}
		case PhaseAwaitingAmount:
			raw, err := c.ask(ctx, req.Timeout, func(ctx context.Context) (string, error) {
				return c.prompter.RequestValue(ctx, prompt.ValueRequest{
					Filter: amount,
					Prompt: fmt.Sprintf("How many points do you want to allocate to %s? (Remaining points: %d)", alloc.Chosen(), alloc.Remaining()),
				})
			})
			if err != nil {
				return nil, c.abort(ctx, alloc, req.ChannelID, log, err)
			}
			v, perr := strconv.Atoi(strings.TrimSpace(raw))
			if perr != nil {
				v = -1
			}
			if err := alloc.Assign(v); err != nil {
				c.notify(ctx, req.ChannelID, prompt.Warn(fmt.Sprintf("Invalid number of points. You can allocate between 0 and %d points.", alloc.Remaining())), log)
			}
		}
	}

	deltas := alloc.Deltas()
	log.Info("allocation session committed", "consumed", alloc.Consumed())
	return deltas, nil
}

// Pick asks for a single bounded choice. Unknown answers are ignored until
// one of the options arrives or the request times out.
func (c *Controller) Pick(ctx context.Context, req PickRequest) (string, error) {
	log := c.log.With("session_id", uuid.NewString(), "owner_id", req.OwnerID)
	filter := prompt.Filter{OwnerID: req.OwnerID, ChannelID: req.ChannelID, Tags: req.Options}
	for {
		raw, err := c.ask(ctx, req.Timeout, func(ctx context.Context) (string, error) {
			return c.prompter.RequestChoice(ctx, prompt.ChoiceRequest{Filter: filter, Prompt: req.Prompt})
		})
		if err != nil {
			if errors.Is(err, ErrSessionTimedOut) {
				c.notify(ctx, req.ChannelID, prompt.Warn("Selection timed out. Please start again."), log)
			}
			return "", err
		}
		if tag, ok := filter.Canonical(raw); ok {
			return tag, nil
		}
		log.Debug("ignored choice", "tag", raw)
	}
}

func (c *Controller) ask(ctx context.Context, timeout time.Duration, fn func(context.Context) (string, error)) (string, error) {
	if timeout <= 0 {
		timeout = DefaultPromptTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	v, err := fn(reqCtx)
	if err == nil {
		return v, nil
	}
	if errors.Is(err, prompt.ErrTimedOut) || errors.Is(err, context.DeadlineExceeded) {
		return "", ErrSessionTimedOut
	}
	return "", err
}

func (c *Controller) abort(ctx context.Context, alloc *Allocation, channelID string, log *slog.Logger, cause error) error {
	alloc.Abort()
	if errors.Is(cause, ErrSessionTimedOut) {
		log.Info("allocation session timed out", "remaining", alloc.Remaining())
		c.notify(ctx, channelID, prompt.Warn("Stat allocation timed out. Please start again."), log)
		return ErrSessionTimedOut
	}
	log.Warn("allocation session aborted", "err", cause)
	c.notify(ctx, channelID, prompt.Error("Stat allocation cancelled. Nothing was saved."), log)
	return fmt.Errorf("allocation aborted: %w", cause)
}

// notify is best effort and runs even after ctx was cancelled.
func (c *Controller) notify(ctx context.Context, channelID string, n prompt.Notice, log *slog.Logger) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := c.prompter.Notify(nctx, channelID, n); err != nil {
		log.Warn("notify failed", "err", err)
	}
}
