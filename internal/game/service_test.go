package game_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"naturedex/internal/db"
	"naturedex/internal/game"
	"naturedex/internal/lock"
	"naturedex/internal/nature"
	"naturedex/internal/stat"
)

func testConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.RegisterTimeout = 50 * time.Millisecond
	cfg.DistributeTimeout = 50 * time.Millisecond
	cfg.BoostTimeout = 50 * time.Millisecond
	return cfg
}

func newTestService(t *testing.T, p *scriptPrompter, locks game.Locker) (*game.Service, *db.MemoryStore) {
	t.Helper()
	natures, err := nature.Default()
	if err != nil {
		t.Fatalf("natures: %v", err)
	}
	store := db.NewMemoryStore()
	return game.NewService(store, natures, p, locks, testConfig(), nil), store
}

func register(t *testing.T, svc *game.Service, owner, natureName string) game.Character {
	t.Helper()
	c, err := svc.Register(context.Background(), game.RegisterInput{
		OwnerID: owner, ChannelID: "c1", Name: "Ash", Profession: "Ranger", Nature: natureName,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return c
}

func TestRegisterAndViewAppliesNature(t *testing.T) {
	p := newScript(choice("ATK"), value("3"), choice("DEF"), value("2"))
	svc, _ := newTestService(t, p, nil)

	c := register(t, svc, "u1", "adamant")
	if c.Level != game.StartingLevel || c.StatPoints != 0 || c.HP != game.DefaultStartingHP || c.EP != game.DefaultStartingEP {
		t.Fatalf("unexpected new character %+v", c)
	}
	if c.Nature != "Adamant" {
		t.Fatalf("nature not canonicalized: %q", c.Nature)
	}

	sheet, err := svc.View(context.Background(), "u1")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if got := sheet.Line(stat.ATK).String(); got != "3 (Nature: +2 -> 5)" {
		t.Fatalf("ATK line %q", got)
	}
	if got := sheet.Line(stat.DEF); got.Effective != 1 || got.Modifier != -1 {
		t.Fatalf("DEF line %+v", got)
	}
	if got := sheet.Line(stat.SPE).String(); got != "0" {
		t.Fatalf("SPE line %q", got)
	}
	if sheet.Character.Stats[stat.ATK] != 3 {
		t.Fatalf("stored stats must stay unmodified, got %v", sheet.Character.Stats)
	}

	levels := p.noticeLevels()
	if len(levels) == 0 || !strings.Contains(p.notices[len(p.notices)-1].Text, "Physical Prowess & Strength") {
		t.Fatalf("expected registration notice with category, got %+v", p.notices)
	}
}

func TestRegisterTwiceLeavesCharacterUnchanged(t *testing.T) {
	p := newScript(choice("SPE"), value("5"))
	svc, store := newTestService(t, p, nil)
	register(t, svc, "u1", "Jolly")

	before := len(p.requestKinds())
	_, err := svc.Register(context.Background(), game.RegisterInput{OwnerID: "u1", Name: "Other", Profession: "Mage", Nature: "Calm"})
	if !errors.Is(err, game.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if len(p.requestKinds()) != before {
		t.Fatalf("second registration should not prompt")
	}
	got, _ := store.Get(context.Background(), "u1")
	if got.Name != "Ash" || got.Nature != "Jolly" || got.Stats[stat.SPE] != 5 {
		t.Fatalf("character changed: %+v", got)
	}
}

func TestRegisterExistingOwnerBeatsBadInput(t *testing.T) {
	p := newScript(choice("ATK"), value("5"))
	svc, _ := newTestService(t, p, nil)
	register(t, svc, "u1", "Hardy")
	before := len(p.requestKinds())

	tests := []game.RegisterInput{
		{OwnerID: "u1", Name: "Ash", Profession: "Ranger", Nature: "Bogus"},
		{OwnerID: "u1", Name: " ", Profession: "Ranger", Nature: "Hardy"},
		{OwnerID: "u1", Name: "", Profession: "", Nature: ""},
	}
	for _, in := range tests {
		_, err := svc.Register(context.Background(), in)
		if !errors.Is(err, game.ErrAlreadyRegistered) {
			t.Fatalf("input %+v: expected ErrAlreadyRegistered, got %v", in, err)
		}
		if errors.Is(err, game.ErrUnknownNature) || errors.Is(err, game.ErrInvalidCharacter) {
			t.Fatalf("input %+v: input error leaked through: %v", in, err)
		}
	}
	if len(p.requestKinds()) != before {
		t.Fatalf("rejected registrations should not prompt")
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc, store := newTestService(t, newScript(), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, game.RegisterInput{OwnerID: "u1", Name: "Ash", Profession: "Ranger", Nature: "Adamnt"})
	if !errors.Is(err, game.ErrUnknownNature) {
		t.Fatalf("expected ErrUnknownNature, got %v", err)
	}
	if !strings.Contains(err.Error(), "Adamant") {
		t.Fatalf("expected a suggestion, got %v", err)
	}

	_, err = svc.Register(ctx, game.RegisterInput{OwnerID: "u1", Name: " ", Profession: "Ranger", Nature: "Hardy"})
	if !errors.Is(err, game.ErrInvalidCharacter) {
		t.Fatalf("expected ErrInvalidCharacter, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestRegisterTimeoutStoresNothing(t *testing.T) {
	p := newScript(choice("ATK"), value("2"), timeoutOn("choice"))
	svc, store := newTestService(t, p, nil)

	_, err := svc.Register(context.Background(), game.RegisterInput{OwnerID: "u1", ChannelID: "c1", Name: "Ash", Profession: "Ranger", Nature: "Hardy"})
	if !errors.Is(err, game.ErrSessionTimedOut) {
		t.Fatalf("expected ErrSessionTimedOut, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("timed out registration must not persist")
	}
}

func TestLevelUpAccumulatesPoints(t *testing.T) {
	p := newScript(choice("ATK"), value("5"), choice("SPE"), value("2"))
	svc, _ := newTestService(t, p, nil)
	ctx := context.Background()
	register(t, svc, "u1", "Hardy")

	_, err := svc.Distribute(ctx, "u1", "c1")
	if !errors.Is(err, game.ErrNoPointsToDistribute) {
		t.Fatalf("expected ErrNoPointsToDistribute, got %v", err)
	}
	if got := len(p.requestKinds()); got != 2 {
		t.Fatalf("distribute with no points must not prompt, saw %d requests", got)
	}

	c, err := svc.LevelUp(ctx, "u1")
	if err != nil || c.Level != 6 || c.StatPoints != 1 {
		t.Fatalf("first level up got %+v, %v", c, err)
	}
	c, err = svc.LevelUp(ctx, "u1")
	if err != nil || c.Level != 7 || c.StatPoints != 2 {
		t.Fatalf("second level up got %+v, %v", c, err)
	}

	c, err = svc.Distribute(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if c.StatPoints != 0 || c.Stats[stat.SPE] != 2 || c.Stats[stat.ATK] != 5 {
		t.Fatalf("unexpected character after distribute %+v", c)
	}
	sheet, _ := svc.View(ctx, "u1")
	if sheet.Character.StatPoints != 0 || sheet.Character.Stats[stat.SPE] != 2 {
		t.Fatalf("store disagrees with returned character: %+v", sheet.Character)
	}
}

func TestDistributeTimeoutLeavesStoreUnchanged(t *testing.T) {
	p := newScript(choice("DEF"), value("5"), choice("ATK"), value("1"), timeoutOn("choice"))
	svc, store := newTestService(t, p, nil)
	ctx := context.Background()
	register(t, svc, "u1", "Hardy")
	for range 2 {
		if _, err := svc.LevelUp(ctx, "u1"); err != nil {
			t.Fatalf("level up: %v", err)
		}
	}

	_, err := svc.Distribute(ctx, "u1", "c1")
	if !errors.Is(err, game.ErrSessionTimedOut) {
		t.Fatalf("expected ErrSessionTimedOut, got %v", err)
	}
	got, _ := store.Get(ctx, "u1")
	if got.StatPoints != 2 || got.Stats[stat.ATK] != 0 {
		t.Fatalf("partial allocation leaked into store: %+v", got)
	}
}

func TestLevelUpStopsAtMax(t *testing.T) {
	p := newScript(choice("ATK"), value("5"))
	svc, _ := newTestService(t, p, nil)
	ctx := context.Background()
	register(t, svc, "u1", "Hardy")

	if _, err := svc.SetLevel(ctx, "u1", game.DefaultMaxLevel); err != nil {
		t.Fatalf("set level: %v", err)
	}
	_, err := svc.LevelUp(ctx, "u1")
	if !errors.Is(err, game.ErrMaxLevelReached) {
		t.Fatalf("expected ErrMaxLevelReached, got %v", err)
	}
	if _, err := svc.SetLevel(ctx, "u1", game.DefaultMaxLevel+1); !errors.Is(err, game.ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
	if _, err := svc.SetLevel(ctx, "u1", 0); !errors.Is(err, game.ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}

func TestBoost(t *testing.T) {
	p := newScript(choice("ATK"), value("5"), choice("mp"), choice("ep"))
	svc, store := newTestService(t, p, nil)
	ctx := context.Background()
	register(t, svc, "u1", "Hardy")

	c, res, err := svc.Boost(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("boost: %v", err)
	}
	if res != game.ResourceEP || c.EP != game.DefaultStartingEP+game.BoostAmount || c.HP != game.DefaultStartingHP {
		t.Fatalf("unexpected boost result %s %+v", res, c)
	}

	c, err = svc.BoostResource(ctx, "u1", game.ResourceHP)
	if err != nil || c.HP != game.DefaultStartingHP+game.BoostAmount {
		t.Fatalf("boost hp got %+v, %v", c, err)
	}
	got, _ := store.Get(ctx, "u1")
	if got.HP != 30 || got.EP != 20 {
		t.Fatalf("store not updated: %+v", got)
	}
	if _, err := svc.BoostResource(ctx, "u1", "MP"); !errors.Is(err, game.ErrInvalidResource) {
		t.Fatalf("expected ErrInvalidResource, got %v", err)
	}
}

func TestBoostTimeout(t *testing.T) {
	p := newScript(choice("ATK"), value("5"), timeoutOn("choice"))
	svc, store := newTestService(t, p, nil)
	ctx := context.Background()
	register(t, svc, "u1", "Hardy")

	if _, _, err := svc.Boost(ctx, "u1", "c1"); !errors.Is(err, game.ErrSessionTimedOut) {
		t.Fatalf("expected ErrSessionTimedOut, got %v", err)
	}
	got, _ := store.Get(ctx, "u1")
	if got.HP != game.DefaultStartingHP || got.EP != game.DefaultStartingEP {
		t.Fatalf("timed out boost changed resources: %+v", got)
	}
}

func TestUnregisteredOwner(t *testing.T) {
	svc, _ := newTestService(t, newScript(), nil)
	ctx := context.Background()

	if _, err := svc.LevelUp(ctx, "ghost"); !errors.Is(err, game.ErrNotRegistered) {
		t.Fatalf("level up: expected ErrNotRegistered, got %v", err)
	}
	if _, err := svc.Distribute(ctx, "ghost", "c1"); !errors.Is(err, game.ErrNotRegistered) {
		t.Fatalf("distribute: expected ErrNotRegistered, got %v", err)
	}
	if _, _, err := svc.Boost(ctx, "ghost", "c1"); !errors.Is(err, game.ErrNotRegistered) {
		t.Fatalf("boost: expected ErrNotRegistered, got %v", err)
	}
	if _, err := svc.View(ctx, "ghost"); !errors.Is(err, game.ErrNotRegistered) {
		t.Fatalf("view: expected ErrNotRegistered, got %v", err)
	}
	if ok, err := svc.Delete(ctx, "ghost"); err != nil || ok {
		t.Fatalf("delete: got %v, %v", ok, err)
	}
}

func TestDeleteThenRegisterAgain(t *testing.T) {
	p := newScript(choice("ATK"), value("5"), choice("DEF"), value("5"))
	svc, _ := newTestService(t, p, nil)
	ctx := context.Background()
	register(t, svc, "u1", "Hardy")

	ok, err := svc.Delete(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("delete got %v, %v", ok, err)
	}
	if _, err := svc.View(ctx, "u1"); !errors.Is(err, game.ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered after delete, got %v", err)
	}
	c := register(t, svc, "u1", "Bold")
	if c.Stats[stat.DEF] != 5 || c.Stats[stat.ATK] != 0 {
		t.Fatalf("re-registered character should start fresh: %+v", c)
	}
}

func TestOwnerSlotRejectsConcurrentCommand(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	p := newScript(
		choice("ATK"), value("5"),
		step{kind: "choice", value: "SPE", entered: entered, release: release},
		value("1"),
	)
	natures, err := nature.Default()
	if err != nil {
		t.Fatalf("natures: %v", err)
	}
	cfg := testConfig()
	cfg.DistributeTimeout = 5 * time.Second
	locks := lock.NewLocal()
	svc := game.NewService(db.NewMemoryStore(), natures, p, locks, cfg, nil)
	ctx := context.Background()
	register(t, svc, "u1", "Hardy")
	if _, err := svc.LevelUp(ctx, "u1"); err != nil {
		t.Fatalf("level up: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Distribute(ctx, "u1", "c1")
		done <- err
	}()
	<-entered

	if _, err := svc.LevelUp(ctx, "u1"); !errors.Is(err, game.ErrOwnerBusy) {
		t.Fatalf("expected ErrOwnerBusy while distributing, got %v", err)
	}
	if _, err := svc.Delete(ctx, "u1"); !errors.Is(err, game.ErrOwnerBusy) {
		t.Fatalf("expected ErrOwnerBusy for delete, got %v", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if locks.Held("u1") {
		t.Fatalf("slot should be released after the command finishes")
	}
}

type failingStore struct {
	game.Store
	err error
}

func (f failingStore) Get(context.Context, string) (game.Character, error) {
	return game.Character{}, f.err
}

func TestStorageFailureSurfaces(t *testing.T) {
	natures, err := nature.Default()
	if err != nil {
		t.Fatalf("natures: %v", err)
	}
	down := errors.New("connection refused")
	svc := game.NewService(failingStore{Store: db.NewMemoryStore(), err: down}, natures, newScript(), nil, testConfig(), nil)

	_, err = svc.LevelUp(context.Background(), "u1")
	if !errors.Is(err, game.ErrStorageUnavailable) || !errors.Is(err, down) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
	_, err = svc.Register(context.Background(), game.RegisterInput{OwnerID: "u1", Name: "Ash", Profession: "Ranger", Nature: "Hardy"})
	if !errors.Is(err, game.ErrStorageUnavailable) {
		t.Fatalf("expected storage error on register, got %v", err)
	}
}
