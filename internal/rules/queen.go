package rules

import (
	"github.com/benbeisheim/chessrules-backend/internal/model"
	"github.com/google/uuid"
)

func validateQueen(piece model.Piece, from, to model.Position, board *model.Board) (model.MoveType, uuid.UUID) {
	if mt, captured := validateRook(piece, from, to, board); mt != model.Invalid {
		return mt, captured
	}
	return validateBishop(piece, from, to, board)
}
