package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/service"
)

// boardColumns is the number of cards per row in rendered boards
const boardColumns = 4

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"DevOps Memory Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`DevOps Memory Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Match every DevOps term with its definition in as few attempts as possible.

AVAILABLE TOOLS:
- create_session: Create a new game session
- list_sessions: List all active sessions
- get_session: Get session details
- delete_session: Remove a session
- board: Show the table, face-down cards hidden
- select_card: Turn a card face up
- restart_game: Deal a new game in the session
- attempt_history: View past attempts
- list_topics: List available topics
- game_instructions: Get the full rules

Face-down cards never reveal their content. Remember what you have seen!`),
	)

	c.registerTools()
}

func sessionIDProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with an optional topic",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"topic_id": map[string]interface{}{
					"type":        "string",
					"description": "Topic to deal from (optional, defaults to devops)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty("Session ID to retrieve"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session and stop its game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty("Session ID to delete"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleDeleteSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board",
		Description: "Show the cards on the table. Face-down cards only show their id.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty("Session ID"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_card",
		Description: "Turn a face-down card face up. The second card of an attempt is compared with the first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty("Session ID"),
				"card_id": map[string]interface{}{
					"type":        "integer",
					"description": "Id of the card to turn",
				},
			},
			Required: []string{"session_id", "card_id"},
		},
	}, c.handleSelectCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "restart_game",
		Description: "Shuffle and deal a new game in the session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty("Session ID"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleRestart)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "attempt_history",
		Description: "Get the attempts of the current game with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty("Session ID"),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Attempts per page (default 20, max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleAttemptHistory)

	// Topics
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_topics",
		Description: "List the topics a session can be created with",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListTopics)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete rules of the memory game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// sessionPath escapes sessionID into an /api/sessions path
func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

func requireSessionID(args map[string]interface{}) (string, *mcp.CallToolResult) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", mcp.NewToolResultError("session_id is required")
	}
	return sessionID, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	topicID, _ := args["topic_id"].(string)

	body := map[string]string{}
	if topicID != "" {
		body["topic_id"] = topicID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Debug().Str("session", session.ID).Msg("mcp session created")

	result := fmt.Sprintf("Created session: %s\nTopic: %s\n\n", session.ID, session.TopicName)
	result += formatBoard(session.GameState)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count    int                    `json:"count"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Sessions) == 0 {
		return mcp.NewToolResultText("No active sessions"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n", resp.Count)
	for _, session := range resp.Sessions {
		b.WriteString("• " + formatSessionLine(session) + "\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSessionID(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatSessionLine(&session) + "\n\n" + formatBoard(session.GameState)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSessionID(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	if err := c.apiCall(ctx, http.MethodDelete, sessionPath(sessionID, ""), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s deleted", sessionID)), nil
}

func (c *Client) handleBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSessionID(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBoard(&state)), nil
}

func (c *Client) handleSelectCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSessionID(args)
	if errResult != nil {
		return errResult, nil
	}

	// JSON numbers arrive as float64
	cardID, ok := args["card_id"].(float64)
	if !ok {
		return mcp.NewToolResultError("card_id is required"), nil
	}

	var resp service.SelectResponse
	body := map[string]int{"card_id": int(cardID)}
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/select"), body, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSelectResult(&resp)), nil
}

func (c *Client) handleRestart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSessionID(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var resp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/restart"), nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(resp.Message + "\n\n" + formatBoard(resp.State)), nil
}

func (c *Client) handleAttemptHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSessionID(args)
	if errResult != nil {
		return errResult, nil
	}

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListTopics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var topics []service.TopicInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/topics", nil, &topics); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Topics:\n\n")
	for _, topic := range topics {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Pairs: %d, Cards: %d\n\n",
			topic.ID, topic.Name, topic.Description, topic.Pairs, topic.Pairs*engine.SelectionSize)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `DevOps Memory Game - Complete Instructions

GAME OBJECTIVE:
Every pair is a DevOps term and its definition. Find all pairs.

GAME MECHANICS:
• The deck holds one term card and one definition card per pair, shuffled
• select_card turns a face-down card face up
• The second card of an attempt is compared with the first
• A term and its own definition are a match: both stay face up
• Any other two cards are a mismatch: both turn face down again on your
  next selection, or after a short delay
• Every comparison counts as one attempt
• The clock starts with the first selection and stops when all pairs match

SELECTIONS THAT DO NOTHING:
• A card that is already face up or matched
• A card id that is not on the table
• Any selection after the game is complete

STRATEGY:
1. Call board to see which cards are still face down
2. Remember the content of every card you turn
3. When a revealed card completes a pair you have seen, pick its partner
4. Use attempt_history to review past comparisons

RESPONSES:
select_card returns the events of the selection (card_flipped, match,
mismatch, cards_flipped_back, game_complete) and the board afterwards.
Face-down cards show only their id; their content is never sent.

Use restart_game to shuffle and deal again in the same session.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionLine(session *service.SessionInfo) string {
	line := fmt.Sprintf("%s - %s, last active %s",
		session.ID, session.TopicName, session.LastAccessedAt.Format(time.RFC3339))
	if state := session.GameState; state != nil {
		line += fmt.Sprintf(" (%d/%d pairs, %d attempts)", state.Matches, state.TotalPairs, state.Attempts)
	}
	return line
}

// cardLabel renders a single card for the board
func cardLabel(card engine.Card) string {
	switch {
	case card.IsMatched:
		return fmt.Sprintf("[%2d ✓ %s]", card.ID, card.Content)
	case card.IsFlipped:
		return fmt.Sprintf("[%2d %s: %s]", card.ID, card.Kind, card.Content)
	default:
		return fmt.Sprintf("[%2d ?]", card.ID)
	}
}

func formatBoard(state *engine.GameState) string {
	if state == nil {
		return "No game state"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s | Attempts: %d | Pairs: %d/%d | Time: %s\n",
		state.Topic, state.Attempts, state.Matches, state.TotalPairs, state.ElapsedDisplay)

	for i, card := range state.Cards {
		b.WriteString(cardLabel(card))
		if (i+1)%boardColumns == 0 || i == len(state.Cards)-1 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}

	switch {
	case state.IsComplete:
		fmt.Fprintf(&b, "\n🎉 Complete in %d attempts, %s\n", state.Attempts, state.ElapsedDisplay)
	case len(state.Pending) > 0:
		fmt.Fprintf(&b, "\nFace up this attempt: %v\n", state.Pending)
	}
	return b.String()
}

func formatSelectResult(resp *service.SelectResponse) string {
	var b strings.Builder
	if !resp.Accepted {
		fmt.Fprintf(&b, "Card %d ignored: %s\n\n", resp.CardID, resp.Message)
	} else {
		for _, event := range resp.Events {
			fmt.Fprintf(&b, "• %s: %s\n", event.Type, event.Message)
		}
		b.WriteString("\n")
	}
	b.WriteString(formatBoard(resp.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attempt History (Page %d/%d, Total: %d):\n",
		history.Page, history.TotalPages, history.TotalAttempts)

	for _, attempt := range history.Attempts {
		outcome := "mismatch"
		if attempt.Matched {
			outcome = "match"
		}
		fmt.Fprintf(&b, "#%d: cards %d and %d, %s at %s\n",
			attempt.Number, attempt.FirstCard, attempt.SecondCard, outcome,
			engine.FormatElapsed(attempt.ElapsedSeconds))
	}

	if history.HasNext {
		b.WriteString("(more attempts on the next page)\n")
	}
	return b.String()
}
