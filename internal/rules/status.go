package rules

import "github.com/benbeisheim/chessrules-backend/internal/model"

// IsKingInCheck reports whether color's king can be captured right now.
// A board without that king is never in check.
func IsKingInCheck(color model.Color, board *model.Board) bool {
	king, ok := board.King(color)
	if !ok {
		return false
	}
	return attacked(king.ID, color, king.Position, board)
}

// PlayerHasLegalMoves tries every piece of color against all 64 squares and
// stops at the first legal move.
func PlayerHasLegalMoves(color model.Color, board *model.Board) bool {
	for _, piece := range board.PiecesOf(color) {
		for row := 0; row < 8; row++ {
			for col := 0; col < 8; col++ {
				to := model.Position{Row: row, Col: col}
				if ValidateMove(piece, piece.Position, to, board).IsValid() {
					return true
				}
			}
		}
	}
	return false
}

// LegalMoves lists the legal moves of one piece in row-major destination
// order.
func LegalMoves(piece model.Piece, board *model.Board) []model.Move {
	moves := []model.Move{}
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			move := ValidateMove(piece, piece.Position, model.Position{Row: row, Col: col}, board)
			if move.IsValid() {
				moves = append(moves, move)
			}
		}
	}
	return moves
}

// Status evaluates the position for the side to move.
func Status(toMove model.Color, board *model.Board) model.GameStatus {
	inCheck := IsKingInCheck(toMove, board)
	hasMoves := PlayerHasLegalMoves(toMove, board)
	switch {
	case inCheck && !hasMoves:
		return model.StatusCheckmate
	case !hasMoves:
		return model.StatusStalemate
	case inCheck:
		return model.StatusCheck
	}
	return model.StatusActive
}
