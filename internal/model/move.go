package model

import "github.com/google/uuid"

// MoveType classifies a candidate move. Invalid is the rejection value;
// validators never fail with an error.
type MoveType string

const (
	Normal    MoveType = "normal"
	Capture   MoveType = "capture"
	Castling  MoveType = "castling"
	EnPassant MoveType = "enPassant"
	Promotion MoveType = "promotion"
	Invalid   MoveType = "invalid"
)

type Move struct {
	Type            MoveType   `json:"type"`
	PieceID         uuid.UUID  `json:"pieceId"`
	From            Position   `json:"from"`
	To              Position   `json:"to"`
	CapturedPieceID *uuid.UUID `json:"capturedPieceId"`
	WasFirstMove    bool       `json:"wasFirstMove"`
	// CapturedPiece is the captured piece as it stood before the move. For
	// en passant it is not on To.
	CapturedPiece *Piece `json:"capturedPiece"`
}

func InvalidMove(from, to Position) Move {
	return Move{Type: Invalid, From: from, To: to}
}

func (m Move) IsValid() bool {
	return m.Type != Invalid
}

// Captures reports whether the move takes the piece with the given id.
func (m Move) Captures(id uuid.UUID) bool {
	return m.Type != Invalid && m.CapturedPieceID != nil && *m.CapturedPieceID == id
}

type CastleRookMove struct {
	RookID uuid.UUID `json:"rookId"`
	From   Position  `json:"from"`
	To     Position  `json:"to"`
}

// Ply is one applied move as recorded in the game history.
type Ply struct {
	Number         int             `json:"number"`
	Color          Color           `json:"color"`
	Piece          Piece           `json:"piece"`
	Move           Move            `json:"move"`
	CastleRookMove *CastleRookMove `json:"castleRookMove"`
	Promotion      PieceType       `json:"promotion,omitempty"`
}

type GameStatus string

const (
	StatusActive    GameStatus = "active"
	StatusCheck     GameStatus = "check"
	StatusCheckmate GameStatus = "checkmate"
	StatusStalemate GameStatus = "stalemate"
)

func (s GameStatus) IsTerminal() bool {
	return s == StatusCheckmate || s == StatusStalemate
}
