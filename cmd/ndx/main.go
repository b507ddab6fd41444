package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	cl "naturedex/internal/cli"
	"naturedex/internal/config"
	"naturedex/internal/console"
	"naturedex/internal/db"
	"naturedex/internal/game"
	"naturedex/internal/nature"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}

	cfg, err := config.LoadCLIFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	requestTimeout = cfg.Timeout
	apiBase := cfg.APIBaseURL
	owner := cfg.Owner

	root := &cobra.Command{
		Use:          "ndx",
		Short:        "Naturedex character tools",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "admin API base URL")

	root.AddCommand(
		newPlayCmd(&owner),
		newMigrateCmd(),
		newNaturesCmd(),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newSheetCmd(&apiBase, &owner),
		newLevelUpCmd(&apiBase, &owner),
		newBoostCmd(&apiBase, &owner),
		newSetLevelCmd(&apiBase, &owner),
		newDeleteCmd(&apiBase, &owner),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// requestTimeout bounds each admin API call and migration.
var requestTimeout = 30 * time.Second

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the characters table in the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadBotFromEnv(false)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			store, err := db.Open(ctx, db.Options{Kind: cfg.Store, DatabaseURL: cfg.DatabaseURL, SQLitePath: cfg.SQLitePath})
			if err != nil {
				return err
			}
			defer store.Close()
			printSuccess(fmt.Sprintf("Schema ready (%s).", cfg.Store))
			return nil
		},
	}
}

func newNaturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "natures",
		Short: "List every nature with its category and modifiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := nature.Default()
			if err != nil {
				return err
			}
			natures, err := natureList(table)
			if err != nil {
				return err
			}
			renderNatures(natures)
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	var token string
	var owner string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the admin API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				var err error
				token, err = promptSecret("Admin API token")
				if err != nil {
					return err
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			if _, err := newClient(apiBase).Natures(ctx, token); err != nil {
				return fmt.Errorf("token check failed: %w", err)
			}
			if err := cl.SaveSession(cl.Session{APIToken: token, Owner: strings.TrimSpace(owner)}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "admin API token (prompted when empty)")
	cmd.Flags().StringVar(&owner, "owner", "", "default owner id for admin commands")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored admin API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

// adminTarget resolves the token and owner for a remote admin command.
func adminTarget(args []string, owner *string) (cl.Session, string, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, "", fmt.Errorf("login required: %w", err)
	}
	target := strings.TrimSpace(*owner)
	if len(args) > 0 {
		target = strings.TrimSpace(args[0])
	}
	if target == "" {
		target = sess.Owner
	}
	if target == "" {
		return cl.Session{}, "", fmt.Errorf("owner id required: pass it as an argument or set NDX_OWNER")
	}
	return sess, target, nil
}

func newSheetCmd(apiBase, owner *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sheet [owner]",
		Short: "Show a character sheet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, target, err := adminTarget(args, owner)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			sheet, err := newClient(apiBase).Sheet(ctx, sess.APIToken, target)
			if err != nil {
				return err
			}
			return console.Render(os.Stdout, sheet.Notice())
		},
	}
}

func newLevelUpCmd(apiBase, owner *string) *cobra.Command {
	return &cobra.Command{
		Use:   "levelup [owner]",
		Short: "Level a character up by one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, target, err := adminTarget(args, owner)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			c, err := newClient(apiBase).LevelUp(ctx, sess.APIToken, target)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("%s is now level %d with %d stat points.", c.Name, c.Level, c.StatPoints))
			return nil
		},
	}
}

func newBoostCmd(apiBase, owner *string) *cobra.Command {
	return &cobra.Command{
		Use:   "boost <HP|EP> [owner]",
		Short: fmt.Sprintf("Raise HP or EP by %d", game.BoostAmount),
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := game.ParseResource(args[0])
			if err != nil {
				return err
			}
			sess, target, err := adminTarget(args[1:], owner)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			c, err := newClient(apiBase).Boost(ctx, sess.APIToken, target, res)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("%s boosted: HP %d, EP %d.", c.Name, c.HP, c.EP))
			return nil
		},
	}
}

func newSetLevelCmd(apiBase, owner *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-level <level> [owner]",
		Short: "Overwrite a character's level",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("level must be a whole number")
			}
			sess, target, err := adminTarget(args[1:], owner)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			c, err := newClient(apiBase).SetLevel(ctx, sess.APIToken, target, level)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("%s is now level %d.", c.Name, c.Level))
			return nil
		},
	}
}

func newDeleteCmd(apiBase, owner *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete [owner]",
		Short: "Delete a character",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, target, err := adminTarget(args, owner)
			if err != nil {
				return err
			}
			if !yes {
				answer, err := promptChoice(fmt.Sprintf("Delete the character of %s?", target), []string{"yes", "no"}, "no")
				if err != nil {
					return err
				}
				if answer != "yes" {
					printInfo("Nothing deleted.")
					return nil
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			if err := newClient(apiBase).Delete(ctx, sess.APIToken, target); err != nil {
				return err
			}
			printSuccess("Character deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
