// Package websocket provides WebSocket transport for the memory game.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - State pushes on every game change, including clock ticks and
//     deferred match confirmations
//   - Card selection and restart commands from clients
//
// Architecture:
//
// A central Hub owns the client registry; only its Run goroutine touches it.
// Each connection has a read pump, which executes client commands, and a
// write pump. The Hub implements service.StateNotifier, so the session
// manager can hand it every snapshot without knowing about sockets.
//
// Message Protocol:
//
//   - Outgoing: {"session_id": "ab12", "event": "state_update", "game_state": {...}}
//   - Outgoing: {"session_id": "ab12", "event": "session_closed"} once the session is gone
//   - Incoming: {"action": "select", "card_id": 4} or {"action": "restart"}
//
// A select is answered to the sender with a select_result event; an invalid
// command with an error event. Pushed states are public views: face-down
// cards carry only their id.
//
// Usage:
//
//	hub := websocket.NewHub(gameService)
//	go hub.Run(ctx)
//	sessionMgr.SetNotifier(hub)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
