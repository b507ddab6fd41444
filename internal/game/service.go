package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"naturedex/internal/lock"
	"naturedex/internal/nature"
	"naturedex/internal/prompt"
)

var errNoPrompter = errors.New("no interactive prompter configured")

type Service struct {
	store   Store
	natures *nature.Table
	prompts prompt.Prompter
	session *Controller
	locks   Locker
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
}

// NewService wires the progression rules. A nil prompter limits the service
// to the non-interactive operations; a nil locker keeps owner slots in
// process memory.
func NewService(store Store, natures *nature.Table, prompter prompt.Prompter, locks Locker, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if prompter == nil {
		prompter = noPrompter{}
	}
	if locks == nil {
		locks = lock.NewLocal()
	}
	def := DefaultConfig()
	if cfg.MaxLevel <= 0 {
		cfg.MaxLevel = def.MaxLevel
	}
	if cfg.RegisterTimeout <= 0 {
		cfg.RegisterTimeout = def.RegisterTimeout
	}
	if cfg.DistributeTimeout <= 0 {
		cfg.DistributeTimeout = def.DistributeTimeout
	}
	if cfg.BoostTimeout <= 0 {
		cfg.BoostTimeout = def.BoostTimeout
	}
	return &Service{
		store:   store,
		natures: natures,
		prompts: prompter,
		session: NewController(prompter, logger),
		locks:   locks,
		cfg:     cfg,
		log:     logger,
		now:     time.Now,
	}
}

func (s *Service) Natures() *nature.Table { return s.natures }
func (s *Service) Config() Config         { return s.cfg }

func (s *Service) Register(ctx context.Context, in RegisterInput) (Character, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Profession = strings.TrimSpace(in.Profession)

	var out Character
	var n nature.Nature
	err := s.withOwner(ctx, in.OwnerID, func() error {
		// An existing character wins over any input problem.
		_, err := s.store.Get(ctx, in.OwnerID)
		if err == nil {
			return ErrAlreadyRegistered
		}
		if !errors.Is(err, ErrCharacterNotFound) {
			return storageErr(err)
		}
		if err := validateCharacterText(in.Name, in.Profession); err != nil {
			return err
		}
		n, err = s.natures.Lookup(in.Nature)
		if err != nil {
			if suggestion, ok := s.natures.Suggest(in.Nature); ok {
				return fmt.Errorf("%w (did you mean %s?)", err, suggestion)
			}
			return err
		}

		deltas, err := s.session.Run(ctx, SessionRequest{
			OwnerID:   in.OwnerID,
			ChannelID: in.ChannelID,
			Budget:    RegistrationBudget,
			Timeout:   s.cfg.RegisterTimeout,
		})
		if err != nil {
			return err
		}

		now := s.now().UTC()
		c := Character{
			OwnerID:    in.OwnerID,
			Name:       in.Name,
			Profession: in.Profession,
			Nature:     n.Name,
			Level:      StartingLevel,
			StatPoints: 0,
			Stats:      deltas,
			HP:         s.cfg.StartingHP,
			EP:         s.cfg.StartingEP,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.store.Insert(ctx, c); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				return ErrAlreadyRegistered
			}
			return storageErr(err)
		}
		out = c
		return nil
	})
	if err != nil {
		return Character{}, err
	}

	s.log.Info("character registered", "owner_id", out.OwnerID, "nature", out.Nature)
	s.notify(ctx, in.ChannelID, prompt.Success(fmt.Sprintf(
		"Character %s registered successfully with profession %s and nature %s, associated with %s.",
		out.Name, out.Profession, n.Name, n.Category,
	)))
	return out, nil
}

// LevelUp raises the level by one and grants one stat point. Unspent points
// accumulate across level-ups.
func (s *Service) LevelUp(ctx context.Context, ownerID string) (Character, error) {
	var out Character
	err := s.withOwner(ctx, ownerID, func() error {
		c, err := s.load(ctx, ownerID)
		if err != nil {
			return err
		}
		if c.Level >= s.cfg.MaxLevel {
			return fmt.Errorf("%w of %d", ErrMaxLevelReached, s.cfg.MaxLevel)
		}
		fields := Fields{FieldLevel: 1, FieldStatPoints: 1}
		if err := s.store.Increment(ctx, ownerID, fields); err != nil {
			return mutationErr(err)
		}
		c.Increment(fields)
		c.UpdatedAt = s.now().UTC()
		out = c
		return nil
	})
	if err != nil {
		return Character{}, err
	}
	s.log.Info("character leveled up", "owner_id", ownerID, "level", out.Level, "stat_points", out.StatPoints)
	return out, nil
}

func (s *Service) Distribute(ctx context.Context, ownerID, channelID string) (Character, error) {
	var out Character
	err := s.withOwner(ctx, ownerID, func() error {
		c, err := s.load(ctx, ownerID)
		if err != nil {
			return err
		}
		if c.StatPoints <= 0 {
			return ErrNoPointsToDistribute
		}

		deltas, err := s.session.Run(ctx, SessionRequest{
			OwnerID:   ownerID,
			ChannelID: channelID,
			Budget:    c.StatPoints,
			Timeout:   s.cfg.DistributeTimeout,
		})
		if err != nil {
			return err
		}

		fields := Commit(deltas)
		if err := s.store.Increment(ctx, ownerID, fields); err != nil {
			return mutationErr(err)
		}
		c.Increment(fields)
		c.UpdatedAt = s.now().UTC()
		out = c
		return nil
	})
	if err != nil {
		return Character{}, err
	}
	s.log.Info("stat points distributed", "owner_id", ownerID, "stat_points", out.StatPoints)
	s.notify(ctx, channelID, prompt.Success("Stat distribution completed successfully."))
	return out, nil
}

// Boost asks the owner to pick HP or EP and raises it by BoostAmount.
func (s *Service) Boost(ctx context.Context, ownerID, channelID string) (Character, Resource, error) {
	var out Character
	var res Resource
	err := s.withOwner(ctx, ownerID, func() error {
		c, err := s.load(ctx, ownerID)
		if err != nil {
			return err
		}
		tag, err := s.session.Pick(ctx, PickRequest{
			OwnerID:   ownerID,
			ChannelID: channelID,
			Options:   []string{string(ResourceHP), string(ResourceEP)},
			Prompt:    fmt.Sprintf("Choose a resource to boost by %d: HP or EP.", BoostAmount),
			Timeout:   s.cfg.BoostTimeout,
		})
		if err != nil {
			return err
		}
		res = Resource(tag)
		out, err = s.boost(ctx, c, res)
		return err
	})
	if err != nil {
		return Character{}, "", err
	}
	s.notify(ctx, channelID, prompt.Success(fmt.Sprintf("%s boosted by %d (now %d).", res, BoostAmount, out.Field(res.Field()))))
	return out, res, nil
}

func (s *Service) BoostResource(ctx context.Context, ownerID string, res Resource) (Character, error) {
	if res != ResourceHP && res != ResourceEP {
		return Character{}, fmt.Errorf("%w: %q", ErrInvalidResource, res)
	}
	var out Character
	err := s.withOwner(ctx, ownerID, func() error {
		c, err := s.load(ctx, ownerID)
		if err != nil {
			return err
		}
		out, err = s.boost(ctx, c, res)
		return err
	})
	return out, err
}

func (s *Service) boost(ctx context.Context, c Character, res Resource) (Character, error) {
	fields := Fields{res.Field(): BoostAmount}
	if err := s.store.Increment(ctx, c.OwnerID, fields); err != nil {
		return Character{}, mutationErr(err)
	}
	c.Increment(fields)
	c.UpdatedAt = s.now().UTC()
	s.log.Info("resource boosted", "owner_id", c.OwnerID, "resource", res, "value", c.Field(res.Field()))
	return c, nil
}

// View returns the stored character with nature modifiers applied for
// display. Stored stats are never modified by the nature.
func (s *Service) View(ctx context.Context, ownerID string) (Sheet, error) {
	c, err := s.load(ctx, ownerID)
	if err != nil {
		return Sheet{}, err
	}
	n, err := s.natures.Lookup(c.Nature)
	if err != nil {
		s.log.Warn("stored character has unknown nature", "owner_id", ownerID, "nature", c.Nature)
		n = nature.Nature{Name: c.Nature}
	}
	return NewSheet(c, n), nil
}

func (s *Service) Delete(ctx context.Context, ownerID string) (bool, error) {
	var existed bool
	err := s.withOwner(ctx, ownerID, func() error {
		ok, err := s.store.Delete(ctx, ownerID)
		if err != nil {
			return storageErr(err)
		}
		existed = ok
		return nil
	})
	if err != nil {
		return false, err
	}
	if existed {
		s.log.Info("character deleted", "owner_id", ownerID)
	}
	return existed, nil
}

// SetLevel overwrites the level. Stat points are left alone.
func (s *Service) SetLevel(ctx context.Context, ownerID string, level int) (Character, error) {
	if level < 1 || level > s.cfg.MaxLevel {
		return Character{}, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidLevel, s.cfg.MaxLevel)
	}
	var out Character
	err := s.withOwner(ctx, ownerID, func() error {
		c, err := s.load(ctx, ownerID)
		if err != nil {
			return err
		}
		if err := s.store.ReplaceFields(ctx, ownerID, Fields{FieldLevel: level}); err != nil {
			return mutationErr(err)
		}
		c.Level = level
		c.UpdatedAt = s.now().UTC()
		out = c
		return nil
	})
	return out, err
}

func (s *Service) withOwner(ctx context.Context, ownerID string, fn func() error) error {
	if strings.TrimSpace(ownerID) == "" {
		return fmt.Errorf("owner id is required")
	}
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return ErrOwnerBusy
		}
		return fmt.Errorf("acquire owner slot: %w", err)
	}
	defer release()
	return fn()
}

func (s *Service) load(ctx context.Context, ownerID string) (Character, error) {
	c, err := s.store.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrCharacterNotFound) {
			return Character{}, ErrNotRegistered
		}
		return Character{}, storageErr(err)
	}
	return c, nil
}

func (s *Service) notify(ctx context.Context, channelID string, n prompt.Notice) {
	if channelID == "" {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.prompts.Notify(nctx, channelID, n); err != nil {
		s.log.Warn("notify failed", "channel_id", channelID, "err", err)
	}
}

func storageErr(err error) error {
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func mutationErr(err error) error {
	if errors.Is(err, ErrCharacterNotFound) {
		return ErrNotRegistered
	}
	return storageErr(err)
}

type noPrompter struct{}

func (noPrompter) RequestChoice(context.Context, prompt.ChoiceRequest) (string, error) {
	return "", errNoPrompter
}

func (noPrompter) RequestValue(context.Context, prompt.ValueRequest) (string, error) {
	return "", errNoPrompter
}

func (noPrompter) Notify(context.Context, string, prompt.Notice) error { return nil }
