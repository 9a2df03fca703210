// Package engine provides the core game logic for the DevOps memory game.
//
// The engine package implements the game mechanics including:
//   - Dealing a shuffled deck of term and definition cards from a Topic
//   - Card selection, pair comparison and attempt history
//   - Deferred match confirmation bound to the deal that produced it
//   - The game clock and completion detection
//   - Topic loading and validation
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState represents one dealt game, while Topic
// holds the pairs a deck is dealt from. GameEngine is single-threaded; Runner
// owns one engine, serializes actions on it, schedules match confirmations
// and drives the clock.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(engine.DefaultTopic())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	runner := engine.NewRunner(gameEngine, engine.DefaultSettings(), func(s *engine.GameState) {
//		render(s.PublicView())
//	})
//	defer runner.Close()
//
//	runner.Select(3)
//
// Game Rules:
//
// The player turns two cards per attempt. When both belong to the same pair
// they stay face up for good, after a short delay. Otherwise they remain
// visible until the next card is selected. The clock starts on the first
// selection and stops once every pair has been found.
package engine
