// Command simulate plays many games with a perfect-memory bot and prints
// attempt statistics for a topic. The bot only looks at face-up cards, the
// way a player with flawless recall would.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/config"
	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
)

func main() {
	cmd := &cli.Command{
		Name:  "simulate",
		Usage: "play games with a perfect-memory bot and report attempts",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "games", Value: 1000, Usage: "number of games to play"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "seed for deals and bot choices"},
			&cli.StringFlag{Name: "topics-dir", Usage: "directory with extra topic files", Sources: cli.EnvVars("TOPICS_DIR")},
			&cli.StringFlag{Name: "topic", Value: engine.DefaultTopicID, Usage: "topic to deal"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			topics, err := config.NewManager(cmd.String("topics-dir"))
			if err != nil {
				return err
			}
			topic, err := topics.LoadTopic(cmd.String("topic"))
			if err != nil {
				return err
			}

			seed := uint64(cmd.Int("seed"))
			attempts, err := simulate(topic, int(cmd.Int("games")), seed)
			if err != nil {
				return err
			}
			printReport(os.Stdout, topic, summarize(attempts))
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}
}

// simulate plays the given number of deals of topic and returns the
// attempts each one took
func simulate(topic *engine.Topic, games int, seed uint64) ([]int, error) {
	eng, err := engine.NewEngine(topic, engine.WithRand(rand.New(rand.NewPCG(seed, seed+1))))
	if err != nil {
		return nil, err
	}
	botRand := rand.New(rand.NewPCG(seed+2, seed+3))

	attempts := make([]int, 0, games)
	for i := 0; i < games; i++ {
		if i > 0 {
			eng.Initialize()
		}
		n, err := playGame(eng, topic, botRand)
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i+1, err)
		}
		attempts = append(attempts, n)
	}
	return attempts, nil
}

// bot remembers the pair of every card it has seen face up
type bot struct {
	pairOf map[string]int // content -> pair index
	seen   map[int]int    // card id -> pair index
	rng    *rand.Rand
}

func newBot(topic *engine.Topic, rng *rand.Rand) *bot {
	b := &bot{
		pairOf: make(map[string]int, len(topic.Pairs)*2),
		seen:   make(map[int]int),
		rng:    rng,
	}
	for i, p := range topic.Pairs {
		b.pairOf[string(engine.Term)+":"+p.Term] = i
		b.pairOf[string(engine.Definition)+":"+p.Definition] = i
	}
	return b
}

// observe records every face-up card of view
func (b *bot) observe(view *engine.GameState) {
	for _, c := range view.Cards {
		if !c.FaceUp() {
			continue
		}
		if pair, ok := b.pairOf[string(c.Kind)+":"+c.Content]; ok {
			b.seen[c.ID] = pair
		}
	}
}

// knownPair returns two remembered, unmatched cards of the same pair
func (b *bot) knownPair(view *engine.GameState, exclude int) (int, int, bool) {
	byPair := make(map[int]int)
	for _, c := range view.Cards {
		if c.IsMatched || c.ID == exclude {
			continue
		}
		pair, ok := b.seen[c.ID]
		if !ok {
			continue
		}
		if other, dup := byPair[pair]; dup {
			return other, c.ID, true
		}
		byPair[pair] = c.ID
	}
	return 0, 0, false
}

// partner returns the remembered unmatched card completing id's pair
func (b *bot) partner(view *engine.GameState, id int) (int, bool) {
	pair, ok := b.seen[id]
	if !ok {
		return 0, false
	}
	for _, c := range view.Cards {
		if p, known := b.seen[c.ID]; known && p == pair && c.ID != id && !c.IsMatched {
			return c.ID, true
		}
	}
	return 0, false
}

// unseen picks a random card the bot has never seen, other than exclude
func (b *bot) unseen(view *engine.GameState, exclude int) (int, bool) {
	var ids []int
	for _, c := range view.Cards {
		if c.FaceUp() || c.ID == exclude {
			continue
		}
		if _, ok := b.seen[c.ID]; !ok {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return 0, false
	}
	return ids[b.rng.IntN(len(ids))], true
}

// playGame plays the current deal of eng to completion and returns the
// number of attempts it took
func playGame(eng *engine.GameEngine, topic *engine.Topic, rng *rand.Rand) (int, error) {
	b := newBot(topic, rng)
	limit := len(topic.Pairs) * 4

	selectCard := func(id int) {
		res := eng.SelectCard(id)
		if res.Match != nil {
			eng.ConfirmMatch(*res.Match)
		}
		b.observe(eng.GetState().PublicView())
	}

	for !eng.IsComplete() {
		if eng.GetAttempts() > limit {
			return 0, fmt.Errorf("no completion after %d attempts", limit)
		}
		view := eng.GetState().PublicView()

		if first, second, ok := b.knownPair(view, -1); ok {
			selectCard(first)
			selectCard(second)
			continue
		}

		first, ok := b.unseen(view, -1)
		if !ok {
			return 0, fmt.Errorf("no card left to try")
		}
		selectCard(first)

		view = eng.GetState().PublicView()
		second, ok := b.partner(view, first)
		if !ok {
			if second, ok = b.unseen(view, first); !ok {
				return 0, fmt.Errorf("no second card for %d", first)
			}
		}
		selectCard(second)
	}
	return eng.GetAttempts(), nil
}

// stats summarizes the attempts of many games
type stats struct {
	Games  int
	Min    int
	Max    int
	Mean   float64
	Median int
	Counts map[int]int // games per attempt count
}

func summarize(attempts []int) stats {
	s := stats{Games: len(attempts), Counts: make(map[int]int)}
	if len(attempts) == 0 {
		return s
	}

	sorted := slices.Clone(attempts)
	slices.Sort(sorted)
	s.Min, s.Max = sorted[0], sorted[len(sorted)-1]
	s.Median = sorted[len(sorted)/2]

	total := 0
	for _, n := range attempts {
		total += n
		s.Counts[n]++
	}
	s.Mean = float64(total) / float64(len(attempts))
	return s
}

func printReport(w io.Writer, topic *engine.Topic, s stats) {
	pairs := len(topic.Pairs)
	fmt.Fprintf(w, "\n=== %s (%d pairs) ===\n", topic.Name, pairs)
	fmt.Fprintf(w, "Games: %d\n", s.Games)
	if s.Games == 0 {
		return
	}
	fmt.Fprintf(w, "Attempts: min %d, median %d, mean %.2f, max %d\n", s.Min, s.Median, s.Mean, s.Max)
	fmt.Fprintf(w, "Perfect games (%d attempts): %d\n", pairs, s.Counts[pairs])

	keys := make([]int, 0, len(s.Counts))
	for k := range s.Counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fmt.Fprintln(w, "\nDistribution:")
	for _, k := range keys {
		bar := strings.Repeat("#", (s.Counts[k]*50+s.Games-1)/s.Games)
		fmt.Fprintf(w, "%4d | %-50s %d\n", k, bar, s.Counts[k])
	}
}
