package rules

import (
	"github.com/benbeisheim/chessrules-backend/internal/model"
	"github.com/google/uuid"
)

// Knights jump, so nothing between from and to matters.
func validateKnight(piece model.Piece, from, to model.Position, board *model.Board) (model.MoveType, uuid.UUID) {
	dr, dc := abs(to.Row-from.Row), abs(to.Col-from.Col)
	if !(dr == 2 && dc == 1) && !(dr == 1 && dc == 2) {
		return model.Invalid, uuid.Nil
	}
	return landing(piece, to, board)
}
