// Package api provides HTTP REST API handlers for the memory game.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session, body {"topic_id": "devops"} (optional)
//   - GET /api/sessions?sort=created|accessed&order=asc|desc&limit=n - List sessions
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game:
//   - GET /api/sessions/{id}/state - Current game, face-down cards masked
//   - POST /api/sessions/{id}/select - Select a card, body {"card_id": 3}
//   - POST /api/sessions/{id}/restart - Deal a new game
//   - GET /api/sessions/{id}/history?page=1&limit=20&order=desc - Attempt history
//   - GET /api/sessions/{id}/qr - PNG QR code of the session's play URL
//
// Topics:
//   - GET /api/topics - List topics
//   - GET /api/topics/{id} - Get a topic with its pairs
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - WebSocket push channel
//   - / - Static files
//
// Error Handling:
//
// Errors are returned as JSON. Unknown sessions and topics map to 404,
// malformed bodies and invalid topics to 400:
//
//	{"error": "session ab12: session not found"}
package api
