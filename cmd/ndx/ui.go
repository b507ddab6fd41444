package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"naturedex/internal/game"
	"naturedex/internal/nature"
	"naturedex/internal/stat"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	for {
		fmt.Printf("%s: ", label)
		var text string
		if term.IsTerminal(fd) {
			raw, err := term.ReadPassword(fd)
			fmt.Println()
			if err != nil {
				return "", err
			}
			text = string(raw)
		} else {
			line, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}
			text = line
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func printPlayHelp() {
	accent.Println("Commands")
	fmt.Println("  register <name> <profession> <nature>  create your character")
	fmt.Println("  stats                                  show your sheet")
	fmt.Println("  levelup                                gain a level and a stat point")
	fmt.Println("  distribute                             spend unspent stat points")
	fmt.Printf("  boost                                  raise HP or EP by %d\n", game.BoostAmount)
	fmt.Println("  natures                                list natures")
	fmt.Println("  delete                                 delete your character")
	fmt.Println("  quit                                   leave")
}

func renderNatures(natures []nature.Nature) {
	accent.Println("\n== NATURES ==")
	fmt.Printf("%-8s %-30s %s\n", "NAME", "CATEGORY", "MODIFIERS")
	for _, n := range natures {
		fmt.Printf("%-8s %-30s %s\n", n.Name, n.Category, colorizeModifier(n.Modifier))
	}
	fmt.Println()
}

func natureList(table *nature.Table) ([]nature.Nature, error) {
	out := make([]nature.Nature, 0, nature.Count)
	for _, name := range table.Names() {
		n, err := table.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func colorizeModifier(mod stat.Block) string {
	var parts []string
	for _, s := range stat.All {
		d := mod.Get(s)
		switch {
		case d > 0:
			parts = append(parts, color.GreenString("%+d %s", d, s))
		case d < 0:
			parts = append(parts, color.RedString("%+d %s", d, s))
		}
	}
	if len(parts) == 0 {
		return "neutral"
	}
	return strings.Join(parts, ", ")
}

// describe turns a game error into a sentence for the terminal.
func describe(err error) string {
	switch {
	case errors.Is(err, game.ErrNotRegistered):
		return "You don't have a character yet. Use register <name> <profession> <nature> first."
	case errors.Is(err, game.ErrAlreadyRegistered):
		return "You already have a registered character."
	case errors.Is(err, game.ErrNoPointsToDistribute):
		return "You have no stat points to distribute."
	case errors.Is(err, game.ErrOwnerBusy):
		return "Another command for this character is still running."
	case errors.Is(err, game.ErrStorageUnavailable):
		return fmt.Sprintf("The character store is unavailable: %v", err)
	default:
		return err.Error()
	}
}
