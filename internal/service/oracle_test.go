package service

import (
	"sort"
	"testing"

	"github.com/benbeisheim/chessrules-backend/internal/model"
	"github.com/benbeisheim/chessrules-backend/internal/rules"
	tu "github.com/benbeisheim/chessrules-backend/internal/testutil"
	"github.com/notnil/chess"
)

// legalSquares lists the from+to pairs the side to move can play, once per
// pair, sorted.
func legalSquares(g *Game) []string {
	state := g.GetState()
	board := g.Board()
	seen := map[string]bool{}
	for _, p := range board.PiecesOf(state.ToMove) {
		for _, m := range rules.LegalMoves(p, board) {
			seen[tu.Name(m.From)+tu.Name(m.To)] = true
		}
	}
	return sortedKeys(seen)
}

func oracleSquares(g *chess.Game) []string {
	seen := map[string]bool{}
	for _, m := range g.ValidMoves() {
		seen[m.S1().String()+m.S2().String()] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Cross-checks legal move generation against notnil/chess ply by ply.
func TestAgainstReferenceEngine(t *testing.T) {
	tests := []struct {
		name  string
		moves []string
		want  model.GameStatus
	}{
		{
			name: "castles both ways with en passant",
			moves: []string{
				"e2e4", "a7a6", "e4e5", "d7d5", "e5d6", "c7d6",
				"g1f3", "b8c6", "f1c4", "c8g4", "e1g1", "d8d7",
				"f1e1", "e8c8", "c4f7", "g4f3", "d1f3", "c6d4",
			},
			want: model.StatusActive,
		},
		{
			name:  "fool's mate",
			moves: []string{"f2f3", "e7e5", "g2g4", "d8h4"},
			want:  model.StatusCheckmate,
		},
		{
			name: "promotion by capture",
			moves: []string{
				"h2h4", "g7g5", "h4g5", "h7h6", "g5h6", "f8g7",
				"h6h7", "e7e6", "h7g8q", "h8g8", "h1h8",
			},
			want: model.StatusActive,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ours := NewGame("oracle")
			ref := chess.NewGame(chess.UseNotation(chess.UCINotation{}))

			for i, s := range tt.moves {
				tu.AssertEqualf(t, legalSquares(ours), oracleSquares(ref), "legal moves before ply %d (%s)", i+1, s)

				if _, err := ours.MakeMove(request(t, s)); err != nil {
					t.Fatalf("ply %d %s: %v", i+1, s, err)
				}
				if err := ref.MoveStr(s); err != nil {
					t.Fatalf("reference rejected ply %d %s: %v", i+1, s, err)
				}
			}
			tu.AssertEqual(t, legalSquares(ours), oracleSquares(ref), "legal moves at the end")

			state := ours.GetState()
			if state.Status != tt.want {
				t.Errorf("Status = %s; want %s", state.Status, tt.want)
			}
			if got := ref.Method() == chess.Checkmate; got != (state.Status == model.StatusCheckmate) {
				t.Errorf("reference method %s disagrees with status %s", ref.Method(), state.Status)
			}
		})
	}
}
