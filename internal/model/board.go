package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

type PieceType string

const (
	King   PieceType = "king"
	Queen  PieceType = "queen"
	Rook   PieceType = "rook"
	Bishop PieceType = "bishop"
	Knight PieceType = "knight"
	Pawn   PieceType = "pawn"
)

// IsPromotionChoice reports whether a pawn may be promoted to p.
func (p PieceType) IsPromotionChoice() bool {
	switch p {
	case Queen, Rook, Bishop, Knight:
		return true
	}
	return false
}

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// BackRank is the row holding the color's non-pawn starting pieces.
func (c Color) BackRank() int {
	if c == White {
		return 7
	}
	return 0
}

// Forward is the row delta of a pawn advance: white moves towards row 0.
func (c Color) Forward() int {
	if c == White {
		return -1
	}
	return 1
}

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < 8 && p.Col >= 0 && p.Col < 8
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

type Piece struct {
	ID        uuid.UUID `json:"id"`
	Type      PieceType `json:"type"`
	Color     Color     `json:"color"`
	Position  Position  `json:"position"`
	HasMoved  bool      `json:"hasMoved"`
	EnPassant bool      `json:"enPassant"`
}

func NewPiece(t PieceType, c Color, pos Position) Piece {
	return Piece{ID: uuid.New(), Type: t, Color: c, Position: pos}
}

var (
	ErrSquareOccupied = errors.New("square occupied")
	ErrPieceNotFound  = errors.New("piece not found")
)

// Board is the set of live pieces. Lookups scan the slice; no square ever
// holds more than one piece.
type Board struct {
	pieces []Piece
}

// NewBoard builds a board from pieces. It fails if two pieces share a square
// or a position is off the board.
func NewBoard(pieces ...Piece) (*Board, error) {
	b := &Board{pieces: make([]Piece, 0, len(pieces))}
	for _, p := range pieces {
		if !p.Position.InBounds() {
			return nil, fmt.Errorf("piece %s at %s: out of bounds", p.Type, p.Position)
		}
		if _, ok := b.PieceAt(p.Position); ok {
			return nil, fmt.Errorf("piece %s at %s: %w", p.Type, p.Position, ErrSquareOccupied)
		}
		b.pieces = append(b.pieces, p)
	}
	return b, nil
}

// NewStandardBoard returns the 32-piece starting position.
func NewStandardBoard() *Board {
	backRank := []PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	b := &Board{pieces: make([]Piece, 0, 32)}
	for col := 0; col < 8; col++ {
		b.pieces = append(b.pieces,
			NewPiece(Pawn, White, Position{Row: 6, Col: col}),
			NewPiece(Pawn, Black, Position{Row: 1, Col: col}),
		)
	}
	for col, t := range backRank {
		b.pieces = append(b.pieces,
			NewPiece(t, White, Position{Row: 7, Col: col}),
			NewPiece(t, Black, Position{Row: 0, Col: col}),
		)
	}
	return b
}

func (b *Board) Clone() *Board {
	return &Board{pieces: slices.Clone(b.pieces)}
}

func (b *Board) Len() int {
	return len(b.pieces)
}

// Pieces returns a copy of the live pieces.
func (b *Board) Pieces() []Piece {
	return slices.Clone(b.pieces)
}

func (b *Board) PiecesOf(c Color) []Piece {
	var out []Piece
	for _, p := range b.pieces {
		if p.Color == c {
			out = append(out, p)
		}
	}
	return out
}

func (b *Board) PieceAt(pos Position) (Piece, bool) {
	i := slices.IndexFunc(b.pieces, func(p Piece) bool { return p.Position == pos })
	if i < 0 {
		return Piece{}, false
	}
	return b.pieces[i], true
}

func (b *Board) Occupied(pos Position) bool {
	_, ok := b.PieceAt(pos)
	return ok
}

func (b *Board) PieceByID(id uuid.UUID) (Piece, bool) {
	i := b.indexOf(id)
	if i < 0 {
		return Piece{}, false
	}
	return b.pieces[i], true
}

func (b *Board) King(c Color) (Piece, bool) {
	i := slices.IndexFunc(b.pieces, func(p Piece) bool { return p.Type == King && p.Color == c })
	if i < 0 {
		return Piece{}, false
	}
	return b.pieces[i], true
}

func (b *Board) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(b.pieces, func(p Piece) bool { return p.ID == id })
}

// MovePiece relocates the piece with the given id and marks it as moved.
// The destination must be empty; callers remove captured pieces first.
func (b *Board) MovePiece(id uuid.UUID, to Position) error {
	i := b.indexOf(id)
	if i < 0 {
		return fmt.Errorf("move %s: %w", id, ErrPieceNotFound)
	}
	if occupant, ok := b.PieceAt(to); ok && occupant.ID != id {
		return fmt.Errorf("move %s to %s: %w", id, to, ErrSquareOccupied)
	}
	b.pieces[i].Position = to
	b.pieces[i].HasMoved = true
	return nil
}

func (b *Board) RemovePiece(id uuid.UUID) (Piece, error) {
	i := b.indexOf(id)
	if i < 0 {
		return Piece{}, fmt.Errorf("remove %s: %w", id, ErrPieceNotFound)
	}
	removed := b.pieces[i]
	b.pieces = slices.Delete(b.pieces, i, i+1)
	return removed, nil
}

// SetType changes a piece's kind in place; promotion keeps the identity.
func (b *Board) SetType(id uuid.UUID, t PieceType) error {
	i := b.indexOf(id)
	if i < 0 {
		return fmt.Errorf("set type %s: %w", id, ErrPieceNotFound)
	}
	b.pieces[i].Type = t
	return nil
}

func (b *Board) SetEnPassant(id uuid.UUID) error {
	i := b.indexOf(id)
	if i < 0 {
		return fmt.Errorf("set en passant %s: %w", id, ErrPieceNotFound)
	}
	b.pieces[i].EnPassant = true
	return nil
}

func (b *Board) ClearEnPassant() {
	for i := range b.pieces {
		b.pieces[i].EnPassant = false
	}
}

// Grid renders the board as rows of squares, nil where empty.
func (b *Board) Grid() [][]*Piece {
	grid := make([][]*Piece, 8)
	for i := range grid {
		grid[i] = make([]*Piece, 8)
	}
	for i := range b.pieces {
		p := b.pieces[i]
		grid[p.Position.Row][p.Position.Col] = &p
	}
	return grid
}

// Consistent reports whether every piece is on the board and no square is
// shared.
func (b *Board) Consistent() bool {
	seen := make(map[Position]bool, len(b.pieces))
	for _, p := range b.pieces {
		if !p.Position.InBounds() || seen[p.Position] {
			return false
		}
		seen[p.Position] = true
	}
	return true
}
