// Package mcp exposes the memory game to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, and the JSON answer is rendered as text. It holds no game state
// of its own, so the same rules and card masking apply to agents and browsers.
//
// MCP Tools:
//   - create_session, list_sessions, get_session, delete_session
//   - board: the table as a grid, face-down cards showing only their id
//   - select_card: turn a card, reports match and mismatch events
//   - restart_game: shuffle and deal again
//   - attempt_history: paginated attempts of the current game
//   - list_topics, game_instructions
//
// Usage:
//
//	// Stdio mode
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
