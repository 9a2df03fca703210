// Package service provides the business logic layer for the memory game.
//
// The service package implements:
//   - Multi-session game management
//   - Topic listing and loading
//   - Card selection with event reporting
//   - Paginated attempt history
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// TopicManager loads the topics decks are dealt from.
// StateNotifier receives every state change, including the ones produced by
// timers after a request has returned.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns an engine.Runner; the service never
// touches an engine directly. States returned to callers are public views,
// so face-down cards never reveal their content.
//
// Usage:
//
//	sessionMgr := session.NewManager(settings.RunnerSettings())
//	topicMgr, _ := config.NewManager("topics")
//	gameService := service.NewGameService(sessionMgr, topicMgr)
//
//	info, err := gameService.CreateSession(ctx, "devops")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	resp, err := gameService.SelectCard(ctx, info.ID, 3)
package service
