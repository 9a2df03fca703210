// Package session provides session management for the memory game.
//
// The session package implements:
//   - Thread-safe in-memory session storage and retrieval
//   - Unique session ID generation
//   - Forwarding of every game state change to a StateNotifier
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each service.Session owns an engine.Runner built with the manager's
// timing settings.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. Lookups are
// case-insensitive.
//
// Usage:
//
//	manager := session.NewManager(engine.DefaultSettings())
//	manager.SetNotifier(hub)
//
//	sess, err := manager.Create("", engine.DefaultTopic())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess.Runner.Select(4)
//
// Cleanup:
//
// Deleting or expiring a session closes its runner, which stops the game
// clock and drops pending match confirmations. Sessions live in memory only.
package session
