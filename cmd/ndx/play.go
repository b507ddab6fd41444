package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"strings"

	"naturedex/internal/config"
	"naturedex/internal/console"
	"naturedex/internal/db"
	"naturedex/internal/game"
	"naturedex/internal/nature"

	"github.com/spf13/cobra"
)

func newPlayCmd(owner *string) *cobra.Command {
	var storeKind, sqlitePath string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Manage your character in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ParseBotEnv()
			if err != nil {
				return err
			}
			flags := playFlags{
				store:      storeKind,
				storeSet:   cmd.Flags().Changed("store"),
				sqlitePath: sqlitePath,
				pathSet:    cmd.Flags().Changed("sqlite-path"),
			}
			cfg = flags.apply(cfg, os.Getenv("NATUREDEX_STORE"))
			if err := cfg.Validate(false); err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := db.Open(ctx, db.Options{Kind: cfg.Store, DatabaseURL: cfg.DatabaseURL, SQLitePath: cfg.SQLitePath})
			if err != nil {
				return err
			}
			defer store.Close()
			natures, err := nature.Default()
			if err != nil {
				return err
			}

			who := localOwner(*owner)
			p := console.New(os.Stdin, os.Stdout, who)
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			svc := game.NewService(store, natures, p, nil, cfg.Game(), logger)

			accent.Printf("Playing as %s (%s store). Type help for commands.\n", who, cfg.Store)
			for {
				fmt.Print("ndx> ")
				line, err := p.ReadLine(ctx)
				if err != nil {
					fmt.Println()
					if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				quit, err := playCommand(ctx, svc, who, strings.Fields(line))
				// The session already told the player it timed out.
				if err != nil && !errors.Is(err, game.ErrSessionTimedOut) {
					printError(describe(err))
				}
				if quit {
					return nil
				}
			}
		},
	}
	cmd.Flags().StringVar(&storeKind, "store", "", "character store: postgres, sqlite or memory")
	cmd.Flags().StringVar(&sqlitePath, "sqlite-path", "", "sqlite database file")
	return cmd
}

type playFlags struct {
	store      string
	storeSet   bool
	sqlitePath string
	pathSet    bool
}

// apply overrides the parsed environment with explicit flags. Without a
// flag or NATUREDEX_STORE, local play uses SQLite.
func (f playFlags) apply(cfg config.BotConfig, envStore string) config.BotConfig {
	switch {
	case f.storeSet:
		cfg.Store = strings.ToLower(strings.TrimSpace(f.store))
	case strings.TrimSpace(envStore) == "":
		cfg.Store = db.KindSQLite
	}
	if f.pathSet {
		cfg.SQLitePath = strings.TrimSpace(f.sqlitePath)
	}
	return cfg
}

func localOwner(flagOwner string) string {
	if o := strings.TrimSpace(flagOwner); o != "" {
		return o
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "local"
}

func playCommand(ctx context.Context, svc *game.Service, who string, fields []string) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true, nil
	case "help":
		printPlayHelp()
	case "natures":
		natures, err := natureList(svc.Natures())
		if err != nil {
			return false, err
		}
		renderNatures(natures)
	case "register":
		if len(fields) != 4 {
			printWarn("Usage: register <name> <profession> <nature>")
			return false, nil
		}
		_, err := svc.Register(ctx, game.RegisterInput{
			OwnerID:    who,
			ChannelID:  console.ChannelID,
			Name:       fields[1],
			Profession: fields[2],
			Nature:     fields[3],
		})
		return false, err
	case "stats", "sheet":
		sheet, err := svc.View(ctx, who)
		if err != nil {
			return false, err
		}
		return false, console.Render(os.Stdout, sheet.Notice())
	case "distribute", "distribute_stats":
		_, err := svc.Distribute(ctx, who, console.ChannelID)
		return false, err
	case "levelup":
		c, err := svc.LevelUp(ctx, who)
		if err != nil {
			return false, err
		}
		printSuccess(fmt.Sprintf("Level up! %s is now level %d and has %d stat points to distribute.", c.Name, c.Level, c.StatPoints))
	case "boost":
		_, _, err := svc.Boost(ctx, who, console.ChannelID)
		return false, err
	case "delete":
		ok, err := svc.Delete(ctx, who)
		if err != nil {
			return false, err
		}
		if !ok {
			printWarn("You don't have a character to delete.")
		} else {
			printSuccess("Your character has been deleted.")
		}
	default:
		printWarn("Unknown command. Type help for the list.")
	}
	return false, nil
}
