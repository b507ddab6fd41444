package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"naturedex/internal/game"
	"naturedex/internal/nature"
	"naturedex/internal/prompt"
	"naturedex/internal/stat"

	"github.com/bwmarrin/discordgo"
)

// Bot routes prefixed chat commands to the game service. Every command runs
// on its own goroutine so a pending prompt never stalls other players.
type Bot struct {
	t      Transport
	game   *game.Service
	notify prompt.Prompter
	prefix string
	log    *slog.Logger
	wg     sync.WaitGroup
}

func NewBot(t Transport, svc *game.Service, notifier prompt.Prompter, prefix string, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = "!"
	}
	return &Bot{t: t, game: svc, notify: notifier, prefix: prefix, log: logger}
}

// Start subscribes to chat messages. The returned func unsubscribes and
// waits for running commands to finish.
func (b *Bot) Start(ctx context.Context) func() {
	remove := b.t.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.handle(ctx, m)
	})
	return func() {
		remove()
		b.wg.Wait()
	}
}

// Run serves commands until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	stop := b.Start(ctx)
	<-ctx.Done()
	stop()
	return nil
}

type command struct {
	name      string
	args      []string
	ownerID   string
	channelID string
}

func (b *Bot) parse(m *discordgo.MessageCreate) (command, bool) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return command{}, false
	}
	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, b.prefix) {
		return command{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, b.prefix))
	if len(fields) == 0 {
		return command{}, false
	}
	return command{
		name:      strings.ToLower(fields[0]),
		args:      fields[1:],
		ownerID:   m.Author.ID,
		channelID: m.ChannelID,
	}, true
}

func (b *Bot) handle(ctx context.Context, m *discordgo.MessageCreate) {
	cmd, ok := b.parse(m)
	if !ok {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.Error("command panicked", "command", cmd.name, "owner_id", cmd.ownerID, "panic", r)
			}
		}()
		b.dispatch(ctx, cmd)
	}()
}

func (b *Bot) dispatch(ctx context.Context, cmd command) {
	log := b.log.With("command", cmd.name, "owner_id", cmd.ownerID, "channel_id", cmd.channelID)
	log.Debug("command received")

	var err error
	switch cmd.name {
	case "register":
		err = b.register(ctx, cmd)
	case "stats", "sheet":
		err = b.stats(ctx, cmd)
	case "distribute_stats", "distribute":
		_, err = b.game.Distribute(ctx, cmd.ownerID, cmd.channelID)
	case "levelup":
		err = b.levelUp(ctx, cmd)
	case "boost":
		_, _, err = b.game.Boost(ctx, cmd.ownerID, cmd.channelID)
	case "delete":
		err = b.delete(ctx, cmd)
	case "natures":
		b.reply(ctx, cmd, naturesNotice(b.game.Natures()))
	case "help":
		b.reply(ctx, cmd, b.helpNotice())
	default:
		return
	}
	if err != nil {
		b.replyError(ctx, cmd, log, err)
	}
}

func (b *Bot) register(ctx context.Context, cmd command) error {
	if len(cmd.args) != 3 {
		b.reply(ctx, cmd, prompt.Warn(fmt.Sprintf("Usage: %sregister <name> <profession> <nature>", b.prefix)))
		return nil
	}
	_, err := b.game.Register(ctx, game.RegisterInput{
		OwnerID:    cmd.ownerID,
		ChannelID:  cmd.channelID,
		Name:       cmd.args[0],
		Profession: cmd.args[1],
		Nature:     cmd.args[2],
	})
	return err
}

func (b *Bot) stats(ctx context.Context, cmd command) error {
	sheet, err := b.game.View(ctx, cmd.ownerID)
	if err != nil {
		return err
	}
	b.reply(ctx, cmd, sheet.Notice())
	return nil
}

func (b *Bot) levelUp(ctx context.Context, cmd command) error {
	c, err := b.game.LevelUp(ctx, cmd.ownerID)
	if err != nil {
		return err
	}
	b.reply(ctx, cmd, prompt.Success(fmt.Sprintf(
		"Level up! %s is now level %d and has %d stat points to distribute.", c.Name, c.Level, c.StatPoints,
	)))
	return nil
}

func (b *Bot) delete(ctx context.Context, cmd command) error {
	ok, err := b.game.Delete(ctx, cmd.ownerID)
	if err != nil {
		return err
	}
	if !ok {
		b.reply(ctx, cmd, prompt.Warn("You don't have a character to delete."))
		return nil
	}
	b.reply(ctx, cmd, prompt.Success("Your character has been deleted."))
	return nil
}

func (b *Bot) reply(ctx context.Context, cmd command, n prompt.Notice) {
	if err := b.notify.Notify(ctx, cmd.channelID, n); err != nil {
		b.log.Warn("reply failed", "command", cmd.name, "channel_id", cmd.channelID, "err", err)
	}
}

func (b *Bot) replyError(ctx context.Context, cmd command, log *slog.Logger, err error) {
	var text string
	switch {
	case errors.Is(err, game.ErrSessionTimedOut), errors.Is(err, context.Canceled):
		// the session already told the player
		return
	case errors.Is(err, game.ErrNotRegistered):
		text = fmt.Sprintf("You don't have a character yet. Use %sregister <name> <profession> <nature> first.", b.prefix)
	case errors.Is(err, game.ErrAlreadyRegistered):
		text = "You already have a registered character."
	case errors.Is(err, game.ErrUnknownNature):
		text = fmt.Sprintf("%s. Use %snatures to see the list.", sentence(err.Error()), b.prefix)
	case errors.Is(err, game.ErrInvalidCharacter):
		text = fmt.Sprintf("Name and profession are required. Usage: %sregister <name> <profession> <nature>", b.prefix)
	case errors.Is(err, game.ErrMaxLevelReached):
		text = sentence(err.Error()) + "."
	case errors.Is(err, game.ErrNoPointsToDistribute):
		text = "You have no stat points to distribute."
	case errors.Is(err, game.ErrOwnerBusy):
		text = "You already have a command in progress. Finish it first."
	case errors.Is(err, game.ErrStorageUnavailable):
		log.Error("storage unavailable", "err", err)
		text = "The character database is unavailable right now. Please try again later."
	default:
		log.Error("command failed", "err", err)
		text = "Something went wrong. Please try again."
	}
	b.reply(ctx, cmd, prompt.Error(text))
}

func (b *Bot) helpNotice() prompt.Notice {
	p := b.prefix
	return prompt.Notice{
		Level: prompt.LevelInfo,
		Title: "Commands",
		Fields: []prompt.Field{
			{Name: p + "register <name> <profession> <nature>", Value: fmt.Sprintf("Create your character and spend %d starting points.", game.RegistrationBudget)},
			{Name: p + "stats", Value: "Show your character sheet."},
			{Name: p + "levelup", Value: "Gain a level and one stat point."},
			{Name: p + "distribute_stats", Value: "Spend your unspent stat points."},
			{Name: p + "boost", Value: fmt.Sprintf("Raise HP or EP by %d.", game.BoostAmount)},
			{Name: p + "natures", Value: "List the natures and their modifiers."},
			{Name: p + "delete", Value: "Delete your character."},
		},
	}
}

func naturesNotice(t *nature.Table) prompt.Notice {
	n := prompt.Notice{Level: prompt.LevelInfo, Title: "Natures"}
	for _, name := range t.Names() {
		nat, err := t.Lookup(name)
		if err != nil {
			continue
		}
		n.Fields = append(n.Fields, prompt.Field{Name: name, Value: nat.Category + "\n" + modifierText(nat.Modifier)})
	}
	return n
}

func modifierText(mod stat.Block) string {
	var parts []string
	for _, s := range stat.All {
		if d := mod.Get(s); d != 0 {
			parts = append(parts, fmt.Sprintf("%+d %s", d, s))
		}
	}
	if len(parts) == 0 {
		return "Neutral"
	}
	return strings.Join(parts, ", ")
}

func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
