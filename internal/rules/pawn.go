package rules

import (
	"github.com/benbeisheim/chessrules-backend/internal/model"
	"github.com/google/uuid"
)

// enPassantRow is the row a pawn of color c must stand on to take en passant:
// the rank next to the opponent's double-step destination.
func enPassantRow(c model.Color) int {
	if c == model.White {
		return 3
	}
	return 4
}

func lastRow(c model.Color) int {
	return c.Opponent().BackRank()
}

func validatePawn(piece model.Piece, from, to model.Position, board *model.Board) (model.MoveType, uuid.UUID) {
	dir := piece.Color.Forward()
	promotes := to.Row == lastRow(piece.Color)

	// single step
	if from.Col == to.Col && to.Row == from.Row+dir {
		if board.Occupied(to) {
			return model.Invalid, uuid.Nil
		}
		if promotes {
			return model.Promotion, uuid.Nil
		}
		return model.Normal, uuid.Nil
	}

	// double step from an unmoved pawn
	if from.Col == to.Col && to.Row == from.Row+2*dir {
		if piece.HasMoved {
			return model.Invalid, uuid.Nil
		}
		if board.Occupied(model.Position{Row: from.Row + dir, Col: from.Col}) || board.Occupied(to) {
			return model.Invalid, uuid.Nil
		}
		return model.Normal, uuid.Nil
	}

	if abs(to.Col-from.Col) != 1 || to.Row != from.Row+dir {
		return model.Invalid, uuid.Nil
	}

	if occupant, ok := board.PieceAt(to); ok {
		if occupant.Color == piece.Color {
			return model.Invalid, uuid.Nil
		}
		if promotes {
			return model.Promotion, occupant.ID
		}
		return model.Capture, occupant.ID
	}

	if from.Row != enPassantRow(piece.Color) {
		return model.Invalid, uuid.Nil
	}
	beside, ok := board.PieceAt(model.Position{Row: from.Row, Col: to.Col})
	if !ok || beside.Type != model.Pawn || beside.Color == piece.Color || !beside.EnPassant {
		return model.Invalid, uuid.Nil
	}
	return model.EnPassant, beside.ID
}
