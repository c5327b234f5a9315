package rules

import (
	"github.com/benbeisheim/chessrules-backend/internal/model"
	"github.com/google/uuid"
)

// ValidateMove classifies moving piece from from to to on board, including
// the rule that a move may not leave the mover's own king capturable. The
// board is only read.
func ValidateMove(piece model.Piece, from, to model.Position, board *model.Board) model.Move {
	return validate(piece, from, to, board, true)
}

// validate is the dispatcher. With checkForCheck unset it returns the raw
// geometric classification; every probe it triggers is made with
// checkForCheck unset, which keeps the recursion one level deep.
func validate(piece model.Piece, from, to model.Position, board *model.Board, checkForCheck bool) model.Move {
	if !from.InBounds() || !to.InBounds() || from == to {
		return model.InvalidMove(from, to)
	}
	if occupant, ok := board.PieceAt(to); ok && occupant.Color == piece.Color {
		return model.InvalidMove(from, to)
	}

	var v validator
	switch piece.Type {
	case model.Pawn:
		v = validatePawn
	case model.Knight:
		v = validateKnight
	case model.Bishop:
		v = validateBishop
	case model.Rook:
		v = validateRook
	case model.Queen:
		v = validateQueen
	case model.King:
		v = validateKing
	default:
		return model.InvalidMove(from, to)
	}

	moveType, capturedID := v(piece, from, to, board)
	if moveType == model.Invalid {
		return model.InvalidMove(from, to)
	}

	move := model.Move{
		Type:         moveType,
		PieceID:      piece.ID,
		From:         from,
		To:           to,
		WasFirstMove: !piece.HasMoved,
	}
	if capturedID != uuid.Nil {
		captured, ok := board.PieceByID(capturedID)
		if !ok {
			return model.InvalidMove(from, to)
		}
		move.CapturedPieceID = &capturedID
		move.CapturedPiece = &captured
	}

	if checkForCheck && LeavesKingInCheck(piece, move, board) {
		return model.InvalidMove(from, to)
	}
	return move
}

// LeavesKingInCheck plays move on a clone of board and reports whether the
// mover's king can then be captured. Pieces are resolved by identity after
// every mutation. A move that cannot be simulated, or a side without a king,
// counts as leaving the king in check.
func LeavesKingInCheck(piece model.Piece, move model.Move, board *model.Board) bool {
	sim, err := simulate(piece, move, board)
	if err != nil {
		return true
	}
	king, ok := sim.King(piece.Color)
	if !ok {
		return true
	}
	return attacked(king.ID, king.Color, king.Position, sim)
}

func simulate(piece model.Piece, move model.Move, board *model.Board) (*model.Board, error) {
	sim := board.Clone()
	if move.CapturedPieceID != nil {
		if _, err := sim.RemovePiece(*move.CapturedPieceID); err != nil {
			return nil, err
		}
	}
	if move.Type == model.Castling {
		rookFrom, rookTo := CastleRookSquares(move.From, move.To)
		if rook, ok := sim.PieceAt(rookFrom); ok {
			if err := sim.MovePiece(rook.ID, rookTo); err != nil {
				return nil, err
			}
		}
	}
	if err := sim.MovePiece(piece.ID, move.To); err != nil {
		return nil, err
	}
	return sim, nil
}

// attacked reports whether any piece of the opposing color has an unfiltered
// move onto target that takes the piece with id.
func attacked(id uuid.UUID, color model.Color, target model.Position, board *model.Board) bool {
	for _, opponent := range board.PiecesOf(color.Opponent()) {
		if validate(opponent, opponent.Position, target, board, false).Captures(id) {
			return true
		}
	}
	return false
}
