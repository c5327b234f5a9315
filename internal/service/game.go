package service

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/benbeisheim/chessrules-backend/internal/model"
	"github.com/benbeisheim/chessrules-backend/internal/rules"
	"github.com/benbeisheim/chessrules-backend/internal/ws"
)

// Subscriber receives state pushes. Implementations must be safe for
// concurrent use.
type Subscriber interface {
	WriteJSON(v interface{}) error
}

// The connections watching a specific game
type GameConnections struct {
	connections map[string]Subscriber // clientID -> connection
	mu          sync.RWMutex
}

func NewGameConnections() *GameConnections {
	return &GameConnections{
		connections: make(map[string]Subscriber),
	}
}

// Game owns one board between moves. The rules engine only classifies;
// Game applies the classified move, keeps the turn and history, and drives
// the status state machine.
type Game struct {
	ID          string
	mu          sync.Mutex
	// sendMu is taken before mu is released so that pushes leave in the
	// order the states were produced.
	sendMu      sync.Mutex
	board       *model.Board
	toMove      model.Color
	history     []model.Ply
	captured    CapturedPieces
	status      model.GameStatus
	lastMove    *model.Move
	connections *GameConnections
}

type GameState struct {
	Board          [][]*model.Piece `json:"board"`
	ToMove         model.Color      `json:"toMove"`
	MoveHistory    []model.Ply      `json:"moveHistory"`
	CapturedPieces CapturedPieces   `json:"capturedPieces"`
	IsCheck        bool             `json:"isCheck"`
	Status         model.GameStatus `json:"status"`
	Winner         model.Color      `json:"winner,omitempty"`
	LastMove       *model.Move      `json:"lastMove"`
}

// CapturedPieces lists the pieces each side has taken.
type CapturedPieces struct {
	White []model.Piece `json:"white"`
	Black []model.Piece `json:"black"`
}

type MoveRequest struct {
	From      model.Position  `json:"from"`
	To        model.Position  `json:"to"`
	Promotion model.PieceType `json:"promotion"`
}

func NewGame(id string) *Game {
	return NewGameFromBoard(id, model.NewStandardBoard(), model.White)
}

// NewGameFromBoard starts a game from an arbitrary position with toMove to
// play.
func NewGameFromBoard(id string, board *model.Board, toMove model.Color) *Game {
	g := &Game{
		ID:          id,
		connections: NewGameConnections(),
	}
	g.reset(board, toMove)
	return g
}

func newCapturedPieces() CapturedPieces {
	return CapturedPieces{
		White: make([]model.Piece, 0),
		Black: make([]model.Piece, 0),
	}
}

func (g *Game) reset(board *model.Board, toMove model.Color) {
	g.board = board
	g.toMove = toMove
	g.history = make([]model.Ply, 0)
	g.captured = newCapturedPieces()
	g.lastMove = nil
	g.status = rules.Status(toMove, board)
}

func (g *Game) Reset() {
	g.mu.Lock()
	g.reset(model.NewStandardBoard(), model.White)
	state := g.snapshot()
	g.sendMu.Lock()
	g.mu.Unlock()
	defer g.sendMu.Unlock()

	log.Printf("game %s: reset", g.ID)
	g.broadcastState(state)
}

func (g *Game) GetState() GameState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.snapshot()
}

func (g *Game) snapshot() GameState {
	history := make([]model.Ply, len(g.history))
	copy(history, g.history)
	captured := CapturedPieces{
		White: append(make([]model.Piece, 0, len(g.captured.White)), g.captured.White...),
		Black: append(make([]model.Piece, 0, len(g.captured.Black)), g.captured.Black...),
	}
	return GameState{
		Board:          g.board.Grid(),
		ToMove:         g.toMove,
		MoveHistory:    history,
		CapturedPieces: captured,
		IsCheck:        g.status == model.StatusCheck || g.status == model.StatusCheckmate,
		Status:         g.status,
		Winner:         g.winner(),
		LastMove:       g.lastMove,
	}
}

// winner is the side that delivered mate; empty otherwise.
func (g *Game) winner() model.Color {
	if g.status == model.StatusCheckmate {
		return g.toMove.Opponent()
	}
	return ""
}

// Board returns a copy of the current position.
func (g *Game) Board() *model.Board {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.board.Clone()
}

// Preview lists the legal moves of the piece on from.
func (g *Game) Preview(from model.Position) ([]model.Move, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !from.InBounds() {
		return nil, fmt.Errorf("preview %s: %w", from, ErrOutOfBounds)
	}
	piece, ok := g.board.PieceAt(from)
	if !ok {
		return nil, fmt.Errorf("preview %s: %w", from, ErrNoPiece)
	}
	return rules.LegalMoves(piece, g.board), nil
}

func (g *Game) MakeMove(req MoveRequest) (model.Ply, error) {
	g.mu.Lock()
	ply, err := g.makeMove(req)
	if err != nil {
		g.mu.Unlock()
		return model.Ply{}, err
	}
	state := g.snapshot()
	g.sendMu.Lock()
	g.mu.Unlock()
	defer g.sendMu.Unlock()

	g.broadcastState(state)
	return ply, nil
}

func (g *Game) makeMove(req MoveRequest) (model.Ply, error) {
	if g.status.IsTerminal() {
		return model.Ply{}, fmt.Errorf("%w: %s", ErrGameOver, g.status)
	}
	if !req.From.InBounds() || !req.To.InBounds() {
		return model.Ply{}, fmt.Errorf("move %s to %s: %w", req.From, req.To, ErrOutOfBounds)
	}
	piece, ok := g.board.PieceAt(req.From)
	if !ok {
		return model.Ply{}, fmt.Errorf("move %s: %w", req.From, ErrNoPiece)
	}
	if piece.Color != g.toMove {
		return model.Ply{}, fmt.Errorf("%s to move: %w", g.toMove, ErrNotYourTurn)
	}

	move := rules.ValidateMove(piece, req.From, req.To, g.board)
	if !move.IsValid() {
		return model.Ply{}, fmt.Errorf("%s %s to %s: %w", piece.Type, req.From, req.To, ErrIllegalMove)
	}

	promotion := req.Promotion
	if move.Type == model.Promotion {
		if promotion == "" {
			promotion = model.Queen
		}
		if !promotion.IsPromotionChoice() {
			return model.Ply{}, fmt.Errorf("%q: %w", promotion, ErrInvalidPromotion)
		}
	} else {
		promotion = ""
	}

	ply, err := g.executeMove(piece, move, promotion)
	if err != nil {
		return model.Ply{}, err
	}
	log.Printf("game %s: ply %d %s %s %s -> %s (%s), status %s",
		g.ID, ply.Number, piece.Color, piece.Type, move.From, move.To, move.Type, g.status)
	return ply, nil
}

// executeMove applies a classified move to a copy of the board and commits
// it only when every step succeeded.
func (g *Game) executeMove(piece model.Piece, move model.Move, promotion model.PieceType) (model.Ply, error) {
	next := g.board.Clone()
	ply := model.Ply{
		Number:    len(g.history) + 1,
		Color:     piece.Color,
		Piece:     piece,
		Move:      move,
		Promotion: promotion,
	}

	// en passant eligibility lasts one ply
	next.ClearEnPassant()

	var captured *model.Piece
	if move.CapturedPieceID != nil {
		removed, err := next.RemovePiece(*move.CapturedPieceID)
		if err != nil {
			return model.Ply{}, fmt.Errorf("apply capture: %w", err)
		}
		captured = &removed
	}

	if move.Type == model.Castling {
		rookFrom, rookTo := rules.CastleRookSquares(move.From, move.To)
		rook, ok := next.PieceAt(rookFrom)
		if !ok {
			return model.Ply{}, fmt.Errorf("apply castling from %s: %w", rookFrom, model.ErrPieceNotFound)
		}
		if err := next.MovePiece(rook.ID, rookTo); err != nil {
			return model.Ply{}, fmt.Errorf("apply castling: %w", err)
		}
		ply.CastleRookMove = &model.CastleRookMove{RookID: rook.ID, From: rookFrom, To: rookTo}
	}

	if err := next.MovePiece(piece.ID, move.To); err != nil {
		return model.Ply{}, fmt.Errorf("apply move: %w", err)
	}
	if piece.Type == model.Pawn && abs(move.To.Row-move.From.Row) == 2 {
		if err := next.SetEnPassant(piece.ID); err != nil {
			return model.Ply{}, err
		}
	}
	if move.Type == model.Promotion {
		if err := next.SetType(piece.ID, promotion); err != nil {
			return model.Ply{}, err
		}
	}
	if !next.Consistent() {
		return model.Ply{}, fmt.Errorf("apply %s to %s: board left inconsistent", move.From, move.To)
	}

	g.board = next
	if captured != nil {
		switch piece.Color {
		case model.White:
			g.captured.White = append(g.captured.White, *captured)
		case model.Black:
			g.captured.Black = append(g.captured.Black, *captured)
		}
	}
	g.history = append(g.history, ply)
	g.lastMove = &ply.Move
	g.switchTurn()
	g.status = rules.Status(g.toMove, g.board)
	return ply, nil
}

func (g *Game) switchTurn() {
	g.toMove = g.toMove.Opponent()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// RegisterConnection subscribes conn to the game and sends it the current
// state. Later pushes reach conn only after that initial state.
func (g *Game) RegisterConnection(clientID string, conn Subscriber) error {
	g.mu.Lock()
	g.connections.mu.Lock()
	if _, exists := g.connections.connections[clientID]; exists {
		g.connections.mu.Unlock()
		g.mu.Unlock()
		return fmt.Errorf("client %s: %w", clientID, ErrAlreadyConnected)
	}
	g.connections.connections[clientID] = conn
	g.connections.mu.Unlock()
	state := g.snapshot()
	g.sendMu.Lock()
	g.mu.Unlock()
	defer g.sendMu.Unlock()
	log.Printf("game %s: registered connection for client %s", g.ID, clientID)

	msg, err := stateMessage(state)
	if err != nil {
		g.UnregisterConnection(clientID)
		return err
	}
	if err := conn.WriteJSON(msg); err != nil {
		g.UnregisterConnection(clientID)
		return fmt.Errorf("send initial state to %s: %w", clientID, err)
	}
	return nil
}

func (g *Game) UnregisterConnection(clientID string) {
	g.connections.mu.Lock()
	defer g.connections.mu.Unlock()

	if _, exists := g.connections.connections[clientID]; exists {
		log.Printf("game %s: unregistering connection for client %s", g.ID, clientID)
		delete(g.connections.connections, clientID)
	}
}

func stateMessage(state GameState) (ws.Message, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return ws.Message{}, fmt.Errorf("marshal state: %w", err)
	}
	return ws.Message{
		Type:    ws.MessageTypeGameState,
		Payload: json.RawMessage(payload),
	}, nil
}

// broadcastState pushes state to every subscriber. Callers hold sendMu.
func (g *Game) broadcastState(state GameState) {
	msg, err := stateMessage(state)
	if err != nil {
		log.Printf("game %s: %v", g.ID, err)
		return
	}

	// Snapshot connections, then write without holding the lock
	g.connections.mu.RLock()
	active := make(map[string]Subscriber, len(g.connections.connections))
	for clientID, conn := range g.connections.connections {
		active[clientID] = conn
	}
	g.connections.mu.RUnlock()

	for clientID, conn := range active {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("game %s: failed to send state to client %s: %v", g.ID, clientID, err)
			g.connections.mu.Lock()
			delete(g.connections.connections, clientID)
			g.connections.mu.Unlock()
		}
	}
}
