package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
)

const (
	playColumns   = 4
	playCardWidth = 18
)

// runPlay deals a game from the configured topics and plays it on the terminal
func runPlay(ctx context.Context, cmd *cli.Command) error {
	svc, err := initializeServices(cmd.String("topics-dir"))
	if err != nil {
		return err
	}

	topic := svc.topics.GetDefault()
	if id := cmd.String("topic"); id != "" {
		if topic, err = svc.topics.LoadTopic(id); err != nil {
			return err
		}
	}

	eng, err := engine.NewEngine(topic)
	if err != nil {
		return err
	}
	// No flip animation to wait for: matches are confirmed at once
	settings := svc.settings.RunnerSettings()
	settings.MatchDelay = 0
	runner := engine.NewRunner(eng, settings, nil)
	defer runner.Close()

	log.Debug().Str("topic", topic.ID).Msg("terminal game started")
	return playLoop(ctx, os.Stdin, os.Stdout, runner)
}

// playLoop reads one command per line from in and redraws the table on out
// after each one. Commands: a card id, "r" to deal again, "q" to quit, an
// empty line to refresh the clock.
func playLoop(ctx context.Context, in io.Reader, out io.Writer, runner *engine.Runner) error {
	fmt.Fprintf(out, "%s\n\n", runner.Topic().Name)
	renderTable(out, runner.State())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "q", "quit", "sair":
			return nil
		case "r", "restart", "reiniciar":
			renderTable(out, runner.Restart())
			continue
		case "":
			renderTable(out, runner.State())
			continue
		}

		id, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintf(out, "Comando inválido %q: digite o número de uma carta, r ou q\n", line)
			continue
		}

		result, state := runner.Select(id)
		if !result.Accepted {
			fmt.Fprintf(out, "Carta %d não pode ser virada\n", id)
		}
		renderTable(out, state)

		switch {
		case result.Completed:
			fmt.Fprintf(out, "Parabéns! Você completou o jogo em %d tentativas e %s.\n",
				state.Attempts, state.ElapsedDisplay)
			fmt.Fprintln(out, "Digite r para jogar novamente ou q para sair.")
		case result.Compared && result.Matched:
			fmt.Fprintln(out, "Par encontrado!")
		case result.Compared:
			fmt.Fprintln(out, "Não é um par.")
		}
	}
}

// renderTable draws the cards in a grid followed by the game counters
func renderTable(out io.Writer, state *engine.GameState) {
	for i, card := range state.Cards {
		fmt.Fprint(out, padCell(tableCell(card)))
		if (i+1)%playColumns == 0 || i == len(state.Cards)-1 {
			fmt.Fprintln(out)
		} else {
			fmt.Fprint(out, " ")
		}
	}
	fmt.Fprintf(out, "Tentativas: %d | Tempo: %s | Pares: %d/%d\n",
		state.Attempts, state.ElapsedDisplay, state.Matches, state.TotalPairs)
}

func tableCell(card engine.Card) string {
	if !card.FaceUp() {
		return fmt.Sprintf("[%2d] ?", card.ID)
	}
	mark := ""
	if card.IsMatched {
		mark = "✓"
	}
	return fmt.Sprintf("[%2d]%s %s", card.ID, mark, card.Content)
}

// padCell fits s into playCardWidth runes
func padCell(s string) string {
	n := utf8.RuneCountInString(s)
	if n > playCardWidth {
		runes := []rune(s)
		return string(runes[:playCardWidth-1]) + "…"
	}
	return s + strings.Repeat(" ", playCardWidth-n)
}
