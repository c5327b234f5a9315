package service

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/benbeisheim/chessrules-backend/internal/model"
	tu "github.com/benbeisheim/chessrules-backend/internal/testutil"
	"github.com/benbeisheim/chessrules-backend/internal/ws"
)

var promotionLetters = map[byte]model.PieceType{
	'q': model.Queen,
	'r': model.Rook,
	'b': model.Bishop,
	'n': model.Knight,
}

// request turns a UCI-style string such as "e2e4" or "e7e8q" into a move
// request.
func request(t *testing.T, s string) MoveRequest {
	t.Helper()
	if len(s) != 4 && len(s) != 5 {
		t.Fatalf("bad move string %q", s)
	}
	req := MoveRequest{From: tu.Sq(s[:2]), To: tu.Sq(s[2:4])}
	if len(s) == 5 {
		req.Promotion = promotionLetters[s[4]]
	}
	return req
}

func play(t *testing.T, g *Game, moves ...string) []model.Ply {
	t.Helper()
	plies := make([]model.Ply, 0, len(moves))
	for _, s := range moves {
		ply, err := g.MakeMove(request(t, s))
		if err != nil {
			t.Fatalf("move %s: %v", s, err)
		}
		if !g.Board().Consistent() {
			t.Fatalf("board inconsistent after %s", s)
		}
		plies = append(plies, ply)
	}
	return plies
}

func TestNewGameState(t *testing.T) {
	state := NewGame("g").GetState()

	if state.ToMove != model.White {
		t.Errorf("ToMove = %s; want white", state.ToMove)
	}
	if state.Status != model.StatusActive || state.IsCheck {
		t.Errorf("Status = %s, IsCheck = %v; want active, false", state.Status, state.IsCheck)
	}
	if state.Winner != "" {
		t.Errorf("Winner = %q; want none", state.Winner)
	}
	count := 0
	for _, row := range state.Board {
		for _, p := range row {
			if p != nil {
				count++
			}
		}
	}
	if count != 32 {
		t.Errorf("board holds %d pieces; want 32", count)
	}
	if len(state.MoveHistory) != 0 || state.LastMove != nil {
		t.Errorf("fresh game has history %v, last move %v", state.MoveHistory, state.LastMove)
	}
}

func TestFoolsMate(t *testing.T) {
	g := NewGame("g")
	plies := play(t, g, "f2f3", "e7e5", "g2g4", "d8h4")

	state := g.GetState()
	if state.Status != model.StatusCheckmate {
		t.Fatalf("Status = %s; want checkmate", state.Status)
	}
	if !state.IsCheck {
		t.Error("IsCheck = false; want true")
	}
	if state.ToMove != model.White {
		t.Errorf("ToMove = %s; want white", state.ToMove)
	}
	if state.Winner != model.Black {
		t.Errorf("Winner = %q; want black", state.Winner)
	}
	if len(state.MoveHistory) != 4 || plies[3].Number != 4 || plies[3].Color != model.Black {
		t.Errorf("history = %+v", state.MoveHistory)
	}

	_, err := g.MakeMove(request(t, "a2a3"))
	if !errors.Is(err, ErrGameOver) {
		t.Errorf("move after mate: err = %v; want ErrGameOver", err)
	}
}

func TestMakeMoveErrors(t *testing.T) {
	tests := []struct {
		name string
		req  MoveRequest
		want error
	}{
		{"black first", MoveRequest{From: tu.Sq("e7"), To: tu.Sq("e5")}, ErrNotYourTurn},
		{"empty square", MoveRequest{From: tu.Sq("e4"), To: tu.Sq("e5")}, ErrNoPiece},
		{"illegal geometry", MoveRequest{From: tu.Sq("e2"), To: tu.Sq("e5")}, ErrIllegalMove},
		{"off the board", MoveRequest{From: tu.Sq("e2"), To: model.Position{Row: -1, Col: 4}}, ErrOutOfBounds},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			g := NewGame("g")
			if _, err := g.MakeMove(tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v; want %v", err, tt.want)
			}
			if state := g.GetState(); len(state.MoveHistory) != 0 || state.ToMove != model.White {
				t.Errorf("rejected move changed the game: %+v", state)
			}
		})
	}
}

func TestCastlingMovesRook(t *testing.T) {
	g := NewGame("g")
	plies := play(t, g, "e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6", "e1g1")

	castle := plies[len(plies)-1]
	if castle.Move.Type != model.Castling {
		t.Fatalf("Type = %s; want castling", castle.Move.Type)
	}
	if castle.CastleRookMove == nil || castle.CastleRookMove.From != tu.Sq("h1") || castle.CastleRookMove.To != tu.Sq("f1") {
		t.Fatalf("CastleRookMove = %+v; want h1 -> f1", castle.CastleRookMove)
	}

	board := g.Board()
	king := tu.MustPieceAt(t, board, "g1")
	rook := tu.MustPieceAt(t, board, "f1")
	if king.Type != model.King || !king.HasMoved {
		t.Errorf("g1 = %+v; want moved king", king)
	}
	if rook.Type != model.Rook || !rook.HasMoved || rook.ID != castle.CastleRookMove.RookID {
		t.Errorf("f1 = %+v; want the moved h1 rook", rook)
	}
	if board.Occupied(tu.Sq("h1")) || board.Occupied(tu.Sq("e1")) {
		t.Error("e1 or h1 still occupied after castling")
	}
}

func TestEnPassantCapture(t *testing.T) {
	g := NewGame("g")
	play(t, g, "e2e4", "a7a6", "e4e5", "d7d5")

	victim := tu.MustPieceAt(t, g.Board(), "d5")
	if !victim.EnPassant {
		t.Fatal("pawn on d5 is not flagged after its double step")
	}

	plies := play(t, g, "e5d6")
	ply := plies[0]
	if ply.Move.Type != model.EnPassant {
		t.Fatalf("Type = %s; want enPassant", ply.Move.Type)
	}
	board := g.Board()
	if board.Occupied(tu.Sq("d5")) {
		t.Error("captured pawn still on d5")
	}
	if p := tu.MustPieceAt(t, board, "d6"); p.Type != model.Pawn || p.Color != model.White {
		t.Errorf("d6 = %+v; want white pawn", p)
	}
	state := g.GetState()
	if len(state.CapturedPieces.White) != 1 || state.CapturedPieces.White[0].ID != victim.ID {
		t.Errorf("white captured %+v; want the d5 pawn", state.CapturedPieces.White)
	}
}

func TestEnPassantExpiresAfterOnePly(t *testing.T) {
	g := NewGame("g")
	play(t, g, "e2e4", "a7a6", "e4e5", "d7d5", "h2h3", "a6a5")

	if p := tu.MustPieceAt(t, g.Board(), "d5"); p.EnPassant {
		t.Error("flag survived past the next ply")
	}
	if _, err := g.MakeMove(request(t, "e5d6")); !errors.Is(err, ErrIllegalMove) {
		t.Errorf("late en passant: err = %v; want ErrIllegalMove", err)
	}
}

func promotionGame(t *testing.T) (*Game, model.Piece) {
	t.Helper()
	pawn := tu.Moved(tu.P(model.Pawn, model.White, "a7"))
	board := tu.MustBoard(t,
		tu.Moved(tu.P(model.King, model.White, "e1")),
		pawn,
		tu.Moved(tu.P(model.King, model.Black, "h7")),
	)
	return NewGameFromBoard("promo", board, model.White), pawn
}

func TestPromotionKeepsIdentity(t *testing.T) {
	tests := []struct {
		choice model.PieceType
		want   model.PieceType
	}{
		{model.Knight, model.Knight},
		{model.Rook, model.Rook},
		{"", model.Queen},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.want), func(t *testing.T) {
			g, pawn := promotionGame(t)
			ply, err := g.MakeMove(MoveRequest{From: tu.Sq("a7"), To: tu.Sq("a8"), Promotion: tt.choice})
			if err != nil {
				t.Fatalf("MakeMove: %v", err)
			}
			if ply.Move.Type != model.Promotion || ply.Promotion != tt.want {
				t.Errorf("ply = %+v; want promotion to %s", ply, tt.want)
			}
			promoted := tu.MustPieceAt(t, g.Board(), "a8")
			if promoted.ID != pawn.ID || promoted.Type != tt.want {
				t.Errorf("a8 = %+v; want %s with id %s", promoted, tt.want, pawn.ID)
			}
		})
	}
}

func TestPromotionRejectsBadChoice(t *testing.T) {
	g, _ := promotionGame(t)
	_, err := g.MakeMove(MoveRequest{From: tu.Sq("a7"), To: tu.Sq("a8"), Promotion: model.King})
	if !errors.Is(err, ErrInvalidPromotion) {
		t.Fatalf("err = %v; want ErrInvalidPromotion", err)
	}
	if p := tu.MustPieceAt(t, g.Board(), "a7"); p.Type != model.Pawn {
		t.Errorf("a7 = %+v; rejected promotion changed the board", p)
	}
}

func TestPreview(t *testing.T) {
	g := NewGame("g")
	moves, err := g.Preview(tu.Sq("g1"))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	var got []string
	for _, m := range moves {
		got = append(got, tu.Name(m.To))
	}
	tu.AssertEqual(t, got, []string{"f3", "h3"})

	if _, err := g.Preview(tu.Sq("e4")); !errors.Is(err, ErrNoPiece) {
		t.Errorf("preview of empty square: err = %v; want ErrNoPiece", err)
	}
}

func TestReset(t *testing.T) {
	g := NewGame("g")
	play(t, g, "e2e4", "e7e5")
	g.Reset()

	state := g.GetState()
	if len(state.MoveHistory) != 0 || state.ToMove != model.White || state.Board[6][4] == nil {
		t.Errorf("state after reset = %+v", state)
	}
}

// A scripted game touching every move kind; the one-occupant invariant is
// checked after each ply inside play.
func TestScriptedGameKeepsBoardConsistent(t *testing.T) {
	g := NewGame("g")
	plies := play(t, g,
		"e2e4", "a7a6",
		"e4e5", "d7d5",
		"e5d6", "c7d6",
		"g1f3", "b8c6",
		"f1c4", "c8g4",
		"e1g1", "d8d7",
		"f1e1", "e8c8",
		"c4f7", "g4f3",
		"d1f3", "c6d4",
	)

	kinds := map[model.MoveType]int{}
	for _, p := range plies {
		kinds[p.Move.Type]++
	}
	for _, k := range []model.MoveType{model.Normal, model.Capture, model.Castling, model.EnPassant} {
		if kinds[k] == 0 {
			t.Errorf("scripted game has no %s move", k)
		}
	}
	// exd6 e.p., cxd6, Bxf7, Bxf3, Qxf3
	if g.Board().Len() != 27 {
		t.Errorf("board holds %d pieces; want 27", g.Board().Len())
	}
}

type recorder struct {
	mu   sync.Mutex
	msgs []ws.Message
	err  error
}

func (r *recorder) WriteJSON(v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, v.(ws.Message))
	return nil
}

func TestBroadcast(t *testing.T) {
	g := NewGame("g")
	sub := &recorder{}
	if err := g.RegisterConnection("client", sub); err != nil {
		t.Fatalf("RegisterConnection: %v", err)
	}
	if err := g.RegisterConnection("client", &recorder{}); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("duplicate registration: err = %v; want ErrAlreadyConnected", err)
	}

	play(t, g, "e2e4")

	if len(sub.msgs) != 2 {
		t.Fatalf("received %d messages; want initial state + one update", len(sub.msgs))
	}
	last := sub.msgs[1]
	if last.Type != ws.MessageTypeGameState {
		t.Errorf("Type = %s; want gameState", last.Type)
	}
	var state GameState
	if err := json.Unmarshal(last.Payload, &state); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if state.ToMove != model.Black || len(state.MoveHistory) != 1 {
		t.Errorf("pushed state = toMove %s, %d plies", state.ToMove, len(state.MoveHistory))
	}

	t.Run("failing subscriber is dropped", func(t *testing.T) {
		broken := &recorder{err: errors.New("closed")}
		g.connections.connections["broken"] = broken
		play(t, g, "e7e5")
		if _, ok := g.connections.connections["broken"]; ok {
			t.Error("broken connection still registered")
		}
	})

	g.UnregisterConnection("client")
	play(t, g, "g1f3")
	if len(sub.msgs) != 3 {
		t.Errorf("received %d messages after unregistering; want 3", len(sub.msgs))
	}
}

func historyLen(t *testing.T, msg ws.Message) int {
	t.Helper()
	var state GameState
	if err := json.Unmarshal(msg.Payload, &state); err != nil {
		t.Fatalf("payload: %v", err)
	}
	return len(state.MoveHistory)
}

func TestRegisterSendsInitialStateOnlyToNewSubscriber(t *testing.T) {
	g := NewGame("g")
	first := &recorder{}
	if err := g.RegisterConnection("first", first); err != nil {
		t.Fatalf("RegisterConnection: %v", err)
	}
	play(t, g, "e2e4")

	second := &recorder{}
	if err := g.RegisterConnection("second", second); err != nil {
		t.Fatalf("RegisterConnection: %v", err)
	}
	if len(first.msgs) != 2 {
		t.Errorf("first subscriber got %d messages; want 2", len(first.msgs))
	}
	if len(second.msgs) != 1 || historyLen(t, second.msgs[0]) != 1 {
		t.Errorf("second subscriber got %d messages; want the current state only", len(second.msgs))
	}
}

func TestRegisterFailingSubscriber(t *testing.T) {
	g := NewGame("g")
	if err := g.RegisterConnection("broken", &recorder{err: errors.New("closed")}); err == nil {
		t.Fatal("RegisterConnection succeeded on a failing subscriber")
	}
	if err := g.RegisterConnection("broken", &recorder{}); err != nil {
		t.Errorf("re-registering after a failed send: %v", err)
	}
}

// Concurrent movers race for each ply; subscribers must still see the
// history grow one push at a time.
func TestConcurrentMovesArePushedInOrder(t *testing.T) {
	g := NewGame("g")
	sub := &recorder{}
	if err := g.RegisterConnection("client", sub); err != nil {
		t.Fatalf("RegisterConnection: %v", err)
	}

	var shuffle []MoveRequest
	for _, s := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		shuffle = append(shuffle, request(t, s))
	}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 40; i++ {
				n := len(g.GetState().MoveHistory)
				// losing the race is expected; the move is then illegal
				_, _ = g.MakeMove(shuffle[n%len(shuffle)])
			}
		}()
	}
	wg.Wait()

	sub.mu.Lock()
	defer sub.mu.Unlock()
	prev := -1
	for i, msg := range sub.msgs {
		n := historyLen(t, msg)
		if n != prev+1 {
			t.Fatalf("push %d carries %d plies after %d", i, n, prev)
		}
		prev = n
	}
	if want := len(g.GetState().MoveHistory); prev != want {
		t.Errorf("last push has %d plies; game has %d", prev, want)
	}
}
