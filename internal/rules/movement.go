package rules

import (
	"github.com/benbeisheim/chessrules-backend/internal/model"
	"github.com/google/uuid"
)

// validator classifies a move for one piece kind. The returned id is the
// captured piece, uuid.Nil when nothing is taken.
type validator func(piece model.Piece, from, to model.Position, board *model.Board) (model.MoveType, uuid.UUID)

// landing applies the shared destination rule: empty is Normal, an opposing
// piece is a Capture, an own piece is Invalid.
func landing(piece model.Piece, to model.Position, board *model.Board) (model.MoveType, uuid.UUID) {
	occupant, ok := board.PieceAt(to)
	if !ok {
		return model.Normal, uuid.Nil
	}
	if occupant.Color == piece.Color {
		return model.Invalid, uuid.Nil
	}
	return model.Capture, occupant.ID
}

// pathClear reports whether every square strictly between from and to is
// empty. The squares must share a row, column or diagonal.
func pathClear(from, to model.Position, board *model.Board) bool {
	dr, dc := sign(to.Row-from.Row), sign(to.Col-from.Col)
	for pos := (model.Position{Row: from.Row + dr, Col: from.Col + dc}); pos != to; pos = (model.Position{Row: pos.Row + dr, Col: pos.Col + dc}) {
		if board.Occupied(pos) {
			return false
		}
	}
	return true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
