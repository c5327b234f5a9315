package rules

import (
	"github.com/benbeisheim/chessrules-backend/internal/model"
	"github.com/google/uuid"
)

func validateBishop(piece model.Piece, from, to model.Position, board *model.Board) (model.MoveType, uuid.UUID) {
	dr, dc := abs(to.Row-from.Row), abs(to.Col-from.Col)
	if dr != dc || dr == 0 {
		return model.Invalid, uuid.Nil
	}
	if !pathClear(from, to, board) {
		return model.Invalid, uuid.Nil
	}
	return landing(piece, to, board)
}
