package stats

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/turntimer/go/internal/blobstore"
	"github.com/mcdev12/turntimer/go/internal/models"
)

type failingStore struct {
	blobstore.Store
	setErr error
}

func (f failingStore) Set(ctx context.Context, key, value string) error {
	return f.setErr
}

func newTestApp(t *testing.T) (*App, *blobstore.MemoryStore, *clockwork.FakeClock) {
	t.Helper()
	store := blobstore.NewMemoryStore()
	fc := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	app := NewApp(NewRepository(store, ""), fc)
	app.Load(context.Background())
	return app, store, fc
}

func addGame(t *testing.T, app *App, winner string, round, position int, names ...string) models.GameResult {
	t.Helper()
	g, err := app.AddGame(context.Background(), AddGameRequest{
		WinnerName:     winner,
		Round:          round,
		WinnerPosition: position,
		PlayerNames:    names,
	})
	if err != nil {
		t.Fatalf("add game failed: %v", err)
	}
	return g
}

func checkInvariants(t *testing.T, s models.Statistics) {
	t.Helper()
	for name, ps := range s.PlayerStats {
		sum := 0
		for pos, n := range ps.WinsByPosition {
			if n <= 0 {
				t.Fatalf("%s: position %d has non-positive count %d", name, pos, n)
			}
			sum += n
		}
		if sum != ps.TotalWins {
			t.Fatalf("%s: position counts sum to %d, total wins %d", name, sum, ps.TotalWins)
		}
	}
	if rebuilt := Rebuild(s.Games); !reflect.DeepEqual(rebuilt, s.PlayerStats) {
		t.Fatalf("player stats drifted from games:\nhave %+v\nwant %+v", s.PlayerStats, rebuilt)
	}
}

func TestScenario_AddAddDelete(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	addGame(t, app, "A", 3, 0, "A", "B")
	ps := app.Statistics(ctx).PlayerStats["A"]
	want := models.PlayerStats{TotalWins: 1, WinsByPosition: map[int]int{0: 1}, AverageRoundOfWin: 3.0}
	if !reflect.DeepEqual(ps, want) {
		t.Fatalf("after first add: got %+v, want %+v", ps, want)
	}

	addGame(t, app, "A", 5, 1, "A", "B")
	ps = app.Statistics(ctx).PlayerStats["A"]
	want = models.PlayerStats{TotalWins: 2, WinsByPosition: map[int]int{0: 1, 1: 1}, AverageRoundOfWin: 4.0}
	if !reflect.DeepEqual(ps, want) {
		t.Fatalf("after second add: got %+v, want %+v", ps, want)
	}

	if _, err := app.DeleteGame(ctx, 0); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	ps = app.Statistics(ctx).PlayerStats["A"]
	want = models.PlayerStats{TotalWins: 1, WinsByPosition: map[int]int{1: 1}, AverageRoundOfWin: 5.0}
	if !reflect.DeepEqual(ps, want) {
		t.Fatalf("after delete: got %+v, want %+v", ps, want)
	}
}

func TestDeleteGame_RemovesPlayerAtZeroWins(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	addGame(t, app, "A", 2, 0, "A", "B")
	addGame(t, app, "B", 4, 1, "A", "B")

	deleted, err := app.DeleteGame(ctx, 0)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted.WinnerName != "A" {
		t.Fatalf("expected A's game to be deleted, got %s", deleted.WinnerName)
	}
	s := app.Statistics(ctx)
	if _, ok := s.PlayerStats["A"]; ok {
		t.Fatalf("A should have no entry after losing the only win")
	}
	if len(s.Games) != 1 || s.Games[0].WinnerName != "B" {
		t.Fatalf("unexpected games %+v", s.Games)
	}
}

func TestAddThenDelete_RestoresStats(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	addGame(t, app, "A", 3, 0, "A", "B", "C")
	addGame(t, app, "B", 7, 1, "A", "B", "C")
	addGame(t, app, "A", 2, 2, "A", "B", "C")
	before := app.Statistics(ctx).PlayerStats

	for _, winner := range []string{"A", "B", "C"} {
		addGame(t, app, winner, 11, 1, "A", "B", "C")
		last := len(app.Statistics(ctx).Games) - 1
		if _, err := app.DeleteGame(ctx, last); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if after := app.Statistics(ctx).PlayerStats; !reflect.DeepEqual(before, after) {
			t.Fatalf("round trip for %s changed stats:\nbefore %+v\nafter  %+v", winner, before, after)
		}
	}
}

func TestInvariants_RandomAddDelete(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	names := []string{"A", "B", "C", "D"}

	for i := 0; i < 300; i++ {
		games := len(app.Statistics(ctx).Games)
		if games > 0 && rng.Intn(3) == 0 {
			if _, err := app.DeleteGame(ctx, rng.Intn(games)); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
		} else {
			pos := rng.Intn(len(names))
			addGame(t, app, names[pos], 1+rng.Intn(12), pos, names...)
		}
		checkInvariants(t, app.Statistics(ctx))
	}
}

func TestDeleteGame_OutOfRange(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()
	addGame(t, app, "A", 3, 0, "A", "B")

	for _, idx := range []int{-1, 1, 5} {
		if _, err := app.DeleteGame(ctx, idx); !errors.Is(err, ErrGameIndexOutOfRange) {
			t.Fatalf("delete(%d): expected ErrGameIndexOutOfRange, got %v", idx, err)
		}
	}
	if n := len(app.Statistics(ctx).Games); n != 1 {
		t.Fatalf("failed delete must not mutate, got %d games", n)
	}
}

func TestDeleteDisplayedGame_TranslatesNewestFirst(t *testing.T) {
	app, _, fc := newTestApp(t)
	ctx := context.Background()

	addGame(t, app, "A", 1, 0, "A", "B")
	fc.Advance(time.Minute)
	addGame(t, app, "B", 2, 1, "A", "B")
	fc.Advance(time.Minute)
	addGame(t, app, "A", 3, 0, "A", "B")

	// display index 1 is the middle game, B's only win
	deleted, err := app.DeleteDisplayedGame(ctx, 1)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted.WinnerName != "B" || deleted.Round != 2 {
		t.Fatalf("wrong game deleted: %+v", deleted)
	}
	if _, ok := app.Statistics(ctx).PlayerStats["B"]; ok {
		t.Fatalf("B should be gone")
	}
	if _, err := app.DeleteDisplayedGame(ctx, 2); !errors.Is(err, ErrGameIndexOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
}

func TestDisplayToStorageIndex(t *testing.T) {
	cases := []struct {
		display, total, want int
		wantErr              bool
	}{
		{0, 1, 0, false},
		{0, 3, 2, false},
		{2, 3, 0, false},
		{1, 4, 2, false},
		{3, 3, 0, true},
		{-1, 3, 0, true},
		{0, 0, 0, true},
	}
	for _, tc := range cases {
		got, err := DisplayToStorageIndex(tc.display, tc.total)
		if tc.wantErr {
			if !errors.Is(err, ErrGameIndexOutOfRange) {
				t.Errorf("DisplayToStorageIndex(%d, %d): expected error, got %d", tc.display, tc.total, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("DisplayToStorageIndex(%d, %d) = %d, %v; want %d", tc.display, tc.total, got, err, tc.want)
		}
	}
}

func TestQuery_OrdersStandingsAndHistory(t *testing.T) {
	app, _, fc := newTestApp(t)
	ctx := context.Background()

	addGame(t, app, "C", 4, 2, "A", "B", "C")
	fc.Advance(time.Second)
	addGame(t, app, "A", 2, 0, "A", "B", "C")
	fc.Advance(time.Second)
	addGame(t, app, "B", 5, 1, "A", "B", "C")
	fc.Advance(time.Second)
	addGame(t, app, "B", 3, 1, "A", "B", "C")

	lb := app.Query(ctx)
	if lb.TotalGames != 4 {
		t.Fatalf("expected 4 games, got %d", lb.TotalGames)
	}

	var order []string
	for _, s := range lb.Standings {
		order = append(order, s.Name)
	}
	// B leads; C and A are tied and keep first-win order
	if want := []string{"B", "C", "A"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("expected standings %v, got %v", want, order)
	}
	if lb.Standings[0].Rank != 1 || lb.Standings[2].Rank != 3 {
		t.Fatalf("unexpected ranks %+v", lb.Standings)
	}

	if lb.History[0].Round != 3 || lb.History[3].WinnerName != "C" {
		t.Fatalf("history should be newest first: %+v", lb.History)
	}
	if lb.History[0].Timestamp <= lb.History[3].Timestamp {
		t.Fatalf("timestamps should decrease along history")
	}
}

func standingNames(lb Leaderboard) []string {
	var names []string
	for _, s := range lb.Standings {
		names = append(names, s.Name)
	}
	return names
}

func TestQuery_TieOrderFollowsEntryCreation(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	addGame(t, app, "A", 1, 0, "A", "B")
	addGame(t, app, "B", 2, 1, "A", "B")
	addGame(t, app, "A", 3, 0, "A", "B")

	// A keeps its entry after losing its first win, so it stays ahead of B
	if _, err := app.DeleteGame(ctx, 0); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got, want := standingNames(app.Query(ctx)), []string{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected standings %v, got %v", want, got)
	}

	// Once A's entry is gone a new win re-creates it behind B
	if _, err := app.DeleteGame(ctx, 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	addGame(t, app, "A", 4, 0, "A", "B")
	if got, want := standingNames(app.Query(ctx)), []string{"B", "A"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected standings %v, got %v", want, got)
	}
}

func TestQuery_TieOrderAfterReloadUsesFirstWin(t *testing.T) {
	app, store, fc := newTestApp(t)
	ctx := context.Background()

	addGame(t, app, "A", 1, 0, "A", "B")
	addGame(t, app, "B", 2, 1, "A", "B")
	addGame(t, app, "A", 3, 0, "A", "B")
	if _, err := app.DeleteGame(ctx, 0); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	reloaded := NewApp(NewRepository(store, ""), fc)
	reloaded.Load(ctx)
	if got, want := standingNames(reloaded.Query(ctx)), []string{"B", "A"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected standings %v, got %v", want, got)
	}
}

func TestAddGame_Validation(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	bad := []AddGameRequest{
		{WinnerName: "", Round: 1},
		{WinnerName: "A", Round: 0},
		{WinnerName: "A", Round: 1, WinnerPosition: -1},
		{WinnerName: "A", Round: 1, WinnerPosition: 2, PlayerNames: []string{"A", "B"}},
	}
	for _, req := range bad {
		if _, err := app.AddGame(ctx, req); !errors.Is(err, ErrInvalidGame) {
			t.Fatalf("expected ErrInvalidGame for %+v, got %v", req, err)
		}
	}
	if n := len(app.Statistics(ctx).Games); n != 0 {
		t.Fatalf("invalid games must not be stored, got %d", n)
	}
}

func TestAddGame_PersistsAndReloads(t *testing.T) {
	app, store, _ := newTestApp(t)
	ctx := context.Background()

	addGame(t, app, "A", 3, 0, "A", "B")
	addGame(t, app, "B", 6, 1, "A", "B")

	reloaded := NewApp(NewRepository(store, ""), nil)
	if got, want := reloaded.Statistics(ctx), app.Statistics(ctx); !reflect.DeepEqual(got, want) {
		t.Fatalf("reloaded ledger differs:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestAddGame_SaveFailureKeepsMemoryState(t *testing.T) {
	store := failingStore{Store: blobstore.NewMemoryStore(), setErr: errors.New("disk full")}
	app := NewApp(NewRepository(store, ""), nil)
	ctx := context.Background()

	if _, err := app.AddGame(ctx, AddGameRequest{WinnerName: "A", Round: 1}); err == nil {
		t.Fatalf("expected save error")
	}
	if n := app.Statistics(ctx).PlayerStats["A"].TotalWins; n != 1 {
		t.Fatalf("expected in-memory win to stay, got %d", n)
	}
}
