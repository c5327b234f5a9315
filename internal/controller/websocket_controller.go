package controller

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/benbeisheim/chessrules-backend/internal/model"
	"github.com/benbeisheim/chessrules-backend/internal/service"
	"github.com/benbeisheim/chessrules-backend/internal/ws"
	"github.com/gofiber/websocket/v2"
)

type WebSocketController struct {
	gameService *service.GameService
}

func NewWebSocketController(gameService *service.GameService) *WebSocketController {
	return &WebSocketController{
		gameService: gameService,
	}
}

// lockedConn serializes writes; the game broadcasts from other goroutines.
type lockedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (l *lockedConn) WriteJSON(v interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteJSON(v)
}

// HandleConnection is called when a new WebSocket connection is established
func (wsc *WebSocketController) HandleConnection(c *websocket.Conn) {
	gameID, _ := c.Locals("wsGameID").(string)
	clientID, _ := c.Locals("wsClientID").(string)

	conn := &lockedConn{conn: c}
	if err := wsc.gameService.RegisterConnection(gameID, clientID, conn); err != nil {
		log.Printf("failed to register connection: %v", err)
		closeWithError(c, err)
		return
	}
	defer wsc.gameService.UnregisterConnection(gameID, clientID)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Printf("read error: %v", err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg ws.Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("parse error: %v", err)
			wsc.sendError(conn, err)
			continue
		}

		reply, err := wsc.handleMessage(gameID, msg)
		if err != nil {
			log.Printf("handle error: %v", err)
			wsc.sendError(conn, err)
			continue
		}
		if reply != nil {
			if err := conn.WriteJSON(reply); err != nil {
				log.Printf("write error: %v", err)
				return
			}
		}
	}
}

// handleMessage acts on one inbound message. State changes are pushed to every
// subscriber by the game itself; only previews produce a direct reply.
func (wsc *WebSocketController) handleMessage(gameID string, msg ws.Message) (*ws.Message, error) {
	switch msg.Type {
	case ws.MessageTypeMove:
		var move service.MoveRequest
		if err := json.Unmarshal(msg.Payload, &move); err != nil {
			return nil, err
		}
		_, err := wsc.gameService.HandleMove(gameID, move)
		return nil, err

	case ws.MessageTypePreview:
		var from model.Position
		if err := json.Unmarshal(msg.Payload, &from); err != nil {
			return nil, err
		}
		moves, err := wsc.gameService.LegalMoves(gameID, from)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(moves)
		if err != nil {
			return nil, err
		}
		return &ws.Message{Type: ws.MessageTypeLegalMoves, Payload: payload}, nil

	case ws.MessageTypeReset:
		_, err := wsc.gameService.ResetGame(gameID)
		return nil, err

	default:
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

type closer interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// closeWithError sends a policy-violation close frame carrying err and
// closes c.
func closeWithError(c closer, err error) {
	frame := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
	if werr := c.WriteMessage(websocket.CloseMessage, frame); werr != nil {
		log.Printf("failed to send close frame: %v", werr)
	}
	if cerr := c.Close(); cerr != nil {
		log.Printf("failed to close connection: %v", cerr)
	}
}

func (wsc *WebSocketController) sendError(c *lockedConn, err error) {
	payload, _ := json.Marshal(ws.ErrorPayload{Error: err.Error()})
	if werr := c.WriteJSON(ws.Message{
		Type:    ws.MessageTypeError,
		Payload: payload,
	}); werr != nil {
		log.Printf("failed to send error: %v", werr)
	}
}
