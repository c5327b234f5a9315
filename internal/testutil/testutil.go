// Package testutil provides shared test helpers: algebraic square names,
// board construction, and cmp-based assertions.
package testutil

import (
	"fmt"
	"testing"

	"github.com/benbeisheim/chessrules-backend/internal/model"
	"github.com/google/go-cmp/cmp"
)

// Sq converts a square name such as "e4" to a board position. Rank 8 is
// row 0 and file a is column 0.
func Sq(name string) model.Position {
	if len(name) != 2 || name[0] < 'a' || name[0] > 'h' || name[1] < '1' || name[1] > '8' {
		panic(fmt.Sprintf("testutil: bad square %q", name))
	}
	return model.Position{Row: int('8' - name[1]), Col: int(name[0] - 'a')}
}

// Name is the inverse of Sq.
func Name(pos model.Position) string {
	return fmt.Sprintf("%c%c", 'a'+pos.Col, '8'-pos.Row)
}

// P places a fresh, unmoved piece on square.
func P(t model.PieceType, c model.Color, square string) model.Piece {
	return model.NewPiece(t, c, Sq(square))
}

// Moved marks p as having moved.
func Moved(p model.Piece) model.Piece {
	p.HasMoved = true
	return p
}

func MustBoard(t *testing.T, pieces ...model.Piece) *model.Board {
	t.Helper()
	b, err := model.NewBoard(pieces...)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	return b
}

// MustPieceAt returns the piece on square or fails the test.
func MustPieceAt(t *testing.T, b *model.Board, square string) model.Piece {
	t.Helper()
	p, ok := b.PieceAt(Sq(square))
	if !ok {
		t.Fatalf("no piece on %s", square)
	}
	return p
}

// AssertEqual compares got and want using cmp.Diff and reports differences.
func AssertEqual(t *testing.T, got, want interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		if msg := formatMessage(msgAndArgs...); msg != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", msg, diff)
		} else {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	}
}

// AssertEqualf is AssertEqual with a printf-style message.
func AssertEqualf(t *testing.T, got, want interface{}, format string, args ...interface{}) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("%s: mismatch (-want +got):\n%s", fmt.Sprintf(format, args...), diff)
	}
}

// formatMessage turns optional message arguments into a string. A leading
// string is used as a format for the rest.
func formatMessage(msgAndArgs ...interface{}) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	s, ok := msgAndArgs[0].(string)
	if !ok {
		return fmt.Sprintf("%v", msgAndArgs[0])
	}
	if len(msgAndArgs) == 1 {
		return s
	}
	return fmt.Sprintf(s, msgAndArgs[1:]...)
}
