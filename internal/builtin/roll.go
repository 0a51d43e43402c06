package builtin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"guildpilot/internal/commands"
)

const (
	maxDice  = 10
	maxSides = 100
)

var (
	errInvalidDice  = errors.New("invalid dice notation")
	errTooManyDice  = errors.New("too many dice")
	errTooManySides = errors.New("too many sides")
	diceNotation    = regexp.MustCompile(`(?i)^(\d+)?d(\d+)$`)
	defaultDiceRoll = "1d6"
)

func parseDice(notation string) (int, int, error) {
	match := diceNotation.FindStringSubmatch(notation)
	if match == nil {
		return 0, 0, errInvalidDice
	}
	count := 1
	if match[1] != "" {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			return 0, 0, errInvalidDice
		}
		count = n
	}
	sides, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, 0, errInvalidDice
	}
	switch {
	case count < 1 || sides < 1:
		return 0, 0, errInvalidDice
	case count > maxDice:
		return 0, 0, errTooManyDice
	case sides > maxSides:
		return 0, 0, errTooManySides
	}
	return count, sides, nil
}

func (s *Set) roll() commands.Descriptor {
	return commands.Descriptor{
		Name:        "roll",
		Aliases:     []string{"dice"},
		Description: "Roll dice (e.g., !roll 2d6)",
		Usage:       "roll [NdM]",
		Category:    "Fun",
		Handler: func(ctx context.Context, inv *commands.Invocation) error {
			notation := defaultDiceRoll
			if len(inv.Args) > 0 {
				notation = inv.Args[0]
			}
			count, sides, err := parseDice(notation)
			switch {
			case errors.Is(err, errTooManyDice):
				return inv.Reply(ctx, "❌ You can only roll up to 10 dice at once!")
			case errors.Is(err, errTooManySides):
				return inv.Reply(ctx, "❌ Dice can only have up to 100 sides!")
			case err != nil:
				return inv.Reply(ctx, "❌ Invalid dice format! Use format like `1d6`, `2d20`, etc.")
			}

			rolls := make([]string, 0, count)
			total := 0
			for i := 0; i < count; i++ {
				value := s.intn(sides) + 1
				total += value
				rolls = append(rolls, strconv.Itoa(value))
			}
			return inv.Reply(ctx, fmt.Sprintf("🎲 **%s**\n**Rolls:** %s\n**Total:** %d",
				strings.ToUpper(notation), strings.Join(rolls, ", "), total))
		},
	}
}
