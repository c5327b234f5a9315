package rules

import (
	"github.com/benbeisheim/chessrules-backend/internal/model"
	"github.com/google/uuid"
)

func validateRook(piece model.Piece, from, to model.Position, board *model.Board) (model.MoveType, uuid.UUID) {
	// exactly one axis may change
	if (from.Row == to.Row) == (from.Col == to.Col) {
		return model.Invalid, uuid.Nil
	}
	if !pathClear(from, to, board) {
		return model.Invalid, uuid.Nil
	}
	return landing(piece, to, board)
}
