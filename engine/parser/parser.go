// Package parser converts debug console lines into Commands.
// Intentionally dumb: a verb table with aliases and positional arguments.
package parser

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

// Command is one parsed console line. Only the fields the verb uses are
// set.
type Command struct {
	Verb string

	X, Y    float64 // click, rclick, move
	N       int     // tick count, key code, save slot
	HasN    bool
	Seconds float64 // run
	Name    string  // carry, scene, personage, chain, mark
	ID      int     // mark
	Up      bool    // key release
}

type verbDef struct {
	usage string
	parse func(c *Command, args []string) error
}

var verbs = map[string]verbDef{
	"tick":      {"tick [n]", parseOptionalInt(1)},
	"run":       {"run <seconds>", parseSeconds},
	"click":     {"click <x> <y>", parsePoint},
	"rclick":    {"rclick <x> <y>", parsePoint},
	"move":      {"move <x> <y>", parsePoint},
	"key":       {"key <code> [up]", parseKey},
	"carry":     {"carry [object]", parseOptionalName},
	"scene":     {"scene <name>", parseName},
	"personage": {"personage <name>", parseName},
	"chains":    {"chains", noArgs},
	"chain":     {"chain <name>", parseName},
	"counters":  {"counters", noArgs},
	"objects":   {"objects", noArgs},
	"mark":      {"mark <chain> <id>", parseMark},
	"/save":     {"/save [slot]", parseOptionalInt(0)},
	"/load":     {"/load [slot]", parseOptionalInt(0)},
	"/slots":    {"/slots", noArgs},
	"/restart":  {"/restart", noArgs},
	"/trace":    {"/trace", noArgs},
	"/help":     {"/help", noArgs},
	"/quit":     {"/quit", noArgs},
}

var verbAliases = map[string]string{
	"t":     "tick",
	"c":     "click",
	"rc":    "rclick",
	"m":     "move",
	"k":     "key",
	"p":     "personage",
	"ls":    "objects",
	"/s":    "/save",
	"/l":    "/load",
	"/q":    "/quit",
	"/exit": "/quit",
	"?":     "/help",
	"/h":    "/help",
}

// Parse converts a console line into a Command. An empty line yields a
// zero Command and no error.
func Parse(input string) (Command, error) {
	words := strings.Fields(strings.TrimSpace(input))
	if len(words) == 0 {
		return Command{}, nil
	}

	verb := strings.ToLower(words[0])
	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}
	sp, ok := verbs[verb]
	if !ok {
		return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, words[0])
	}

	c := Command{Verb: verb}
	if err := sp.parse(&c, words[1:]); err != nil {
		return Command{}, fmt.Errorf("%w: %s", ErrUsage, sp.usage)
	}
	return c, nil
}

// Help returns the usage line of every command, sorted.
func Help() []string {
	lines := make([]string, 0, len(verbs))
	for _, sp := range verbs {
		lines = append(lines, sp.usage)
	}
	sort.Strings(lines)
	return lines
}

func noArgs(_ *Command, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return nil
}

func parseOptionalInt(def int) func(*Command, []string) error {
	return func(c *Command, args []string) error {
		c.N = def
		switch len(args) {
		case 0:
			return nil
		case 1:
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return ErrUsage
			}
			c.N, c.HasN = n, true
			return nil
		}
		return ErrUsage
	}
}

func parseSeconds(c *Command, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	s, err := strconv.ParseFloat(args[0], 64)
	if err != nil || s <= 0 {
		return ErrUsage
	}
	c.Seconds = s
	return nil
}

func parsePoint(c *Command, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	x, err1 := strconv.ParseFloat(args[0], 64)
	y, err2 := strconv.ParseFloat(args[1], 64)
	if err1 != nil || err2 != nil {
		return ErrUsage
	}
	c.X, c.Y = x, y
	return nil
}

func parseKey(c *Command, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return ErrUsage
	}
	c.N, c.HasN = n, true
	if len(args) == 2 {
		if strings.ToLower(args[1]) != "up" {
			return ErrUsage
		}
		c.Up = true
	}
	return nil
}

func parseName(c *Command, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	c.Name = args[0]
	return nil
}

func parseOptionalName(c *Command, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	if len(args) == 1 {
		c.Name = args[0]
	}
	return nil
}

func parseMark(c *Command, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return ErrUsage
	}
	c.Name, c.ID = args[0], id
	return nil
}
