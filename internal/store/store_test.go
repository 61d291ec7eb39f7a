package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/robalobadob/guessboard/internal/clock"
	"github.com/robalobadob/guessboard/internal/events"
	"github.com/robalobadob/guessboard/internal/game"
	"github.com/robalobadob/guessboard/internal/kv"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*GameStore, *kv.Memory, *clock.Fake) {
	t.Helper()
	mem := kv.NewMemory()
	clk := clock.NewFake(t0)
	s := New(context.Background(), Options{KV: mem, Clock: clk})
	return s, mem, clk
}

func readSnapshot(t *testing.T, mem *kv.Memory) Snapshot {
	t.Helper()
	raw, err := mem.Get(context.Background(), DefaultKey)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func TestCreateGamesDropsBlankTexts(t *testing.T) {
	s, _, _ := newTestStore(t)
	id := s.CreateGames([]string{"Uno", "", "  Dos  "})

	games := s.Games()
	if len(games) != 2 {
		t.Fatalf("expected 2 games got %d", len(games))
	}
	if games[0].Text() != "UNO" || games[1].Text() != "DOS" {
		t.Fatalf("unexpected texts %q %q", games[0].Text(), games[1].Text())
	}
	if id != games[0].ID() || s.ActiveGameID() != id || s.ActiveGameIndex() != 0 {
		t.Fatalf("expected UNO active got %q", s.ActiveGameID())
	}
}

func TestCreateGamesAllBlank(t *testing.T) {
	s, _, _ := newTestStore(t)
	if id := s.CreateGames([]string{" ", ""}); id != "" {
		t.Fatalf("expected empty id got %q", id)
	}
	if s.ActiveGame() != nil || s.ActiveGameIndex() != -1 {
		t.Fatalf("expected no active game")
	}
}

func TestCreateGamesReplacesAndStopsOld(t *testing.T) {
	s, _, clk := newTestStore(t)
	s.CreateGames([]string{"luz"})
	old := s.ActiveGame()
	old.Start()

	s.CreateGames([]string{"sal", "paz"})
	if _, ok := s.Game(old.ID()); ok {
		t.Fatalf("expected previous games discarded")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 games got %d", s.Len())
	}
	clk.Advance(5 * time.Second)
	if old.RemainingTime() != game.DefaultTimerDuration {
		t.Fatalf("expected discarded countdown stopped, remaining %d", old.RemainingTime())
	}
}

func TestSetActiveIgnoresUnknownTargets(t *testing.T) {
	s, _, _ := newTestStore(t)
	first := s.CreateGames([]string{"a", "b", "c"})

	if s.SetActiveGame("nope") {
		t.Fatalf("expected unknown id rejected")
	}
	if s.SetActiveGameByIndex(3) || s.SetActiveGameByIndex(-1) {
		t.Fatalf("expected out-of-range index rejected")
	}
	if s.ActiveGameID() != first {
		t.Fatalf("expected active unchanged")
	}

	if !s.SetActiveGameByIndex(2) || s.ActiveGameIndex() != 2 {
		t.Fatalf("expected index 2 active got %d", s.ActiveGameIndex())
	}
	second, _ := s.GameByIndex(1)
	if !s.SetActiveGame(second.ID()) || s.ActiveGame() != second {
		t.Fatalf("expected second game active")
	}
}

func TestAllGamesCompleted(t *testing.T) {
	s, _, _ := newTestStore(t)
	if s.AllGamesCompleted() {
		t.Fatalf("expected false for an empty store")
	}
	s.CreateGames([]string{"sol", "mar"})
	games := s.Games()

	games[0].Start()
	games[0].Reveal()
	games[0].MarkWon()
	if s.AllGamesCompleted() {
		t.Fatalf("expected false while a game is pending")
	}
	games[1].Start()
	if s.AllGamesCompleted() {
		t.Fatalf("expected false while a game is playing")
	}
	games[1].Reveal()
	if s.AllGamesCompleted() {
		t.Fatalf("expected false while a game is revealed")
	}
	games[1].MarkLost()
	if !s.AllGamesCompleted() {
		t.Fatalf("expected true once every game is won or lost")
	}
}

func TestResetAllGames(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.CreateGames([]string{"sol", "mar"})
	games := s.Games()
	games[1].Start()
	games[1].GuessLetter("m")
	s.SetActiveGameByIndex(1)

	s.ResetAllGames()
	for _, g := range s.Games() {
		if g.Status() != game.StatusPending || g.GuessCount() != 0 {
			t.Fatalf("expected pending with no guesses got %s/%d", g.Status(), g.GuessCount())
		}
	}
	if s.ActiveGameIndex() != 0 {
		t.Fatalf("expected first game active got %d", s.ActiveGameIndex())
	}
}

func TestMutationsAreDebouncedIntoOneSnapshot(t *testing.T) {
	s, mem, clk := newTestStore(t)
	s.CreateGames([]string{"sol", "mar"})
	g := s.ActiveGame()
	g.Start()
	g.GuessLetter("s")
	s.SetActiveGameByIndex(1)

	if _, err := mem.Get(context.Background(), DefaultKey); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected nothing written inside the window, got %v", err)
	}
	clk.Advance(100 * time.Millisecond)

	snap := readSnapshot(t, mem)
	if len(snap.Games) != 2 {
		t.Fatalf("expected 2 persisted games got %d", len(snap.Games))
	}
	if snap.ActiveGameID == nil || *snap.ActiveGameID != s.Games()[1].ID() {
		t.Fatalf("expected latest active pointer persisted")
	}
	if got := snap.Games[0].GuessedLetters; len(got) != 1 || got[0] != "S" {
		t.Fatalf("expected guess persisted got %v", got)
	}
	if snap.Games[0].TimerStartedAt == nil {
		t.Fatalf("expected countdown anchor persisted")
	}
}

func TestTicksArePersisted(t *testing.T) {
	s, mem, clk := newTestStore(t)
	s.CreateGames([]string{"sol"})
	s.ActiveGame().Start()
	clk.Advance(3*time.Second + 100*time.Millisecond)

	snap := readSnapshot(t, mem)
	if snap.Games[0].RemainingTime == nil || *snap.Games[0].RemainingTime != 57 {
		t.Fatalf("expected remaining 57 persisted got %v", snap.Games[0].RemainingTime)
	}
}

func TestClearAllGamesErasesSnapshot(t *testing.T) {
	s, mem, clk := newTestStore(t)
	s.CreateGames([]string{"sol"})
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	s.ActiveGame().Start()

	if err := s.ClearAllGames(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	clk.Advance(time.Second)

	if s.Len() != 0 || s.ActiveGame() != nil {
		t.Fatalf("expected empty store")
	}
	if _, err := mem.Get(context.Background(), DefaultKey); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected snapshot erased got %v", err)
	}
}

func TestRehydrateFromSnapshot(t *testing.T) {
	s, mem, clk := newTestStore(t)
	s.CreateGames([]string{"sol", "Dios es amor"})
	games := s.Games()
	games[1].SetBoardScale(1.3)
	games[1].Start()
	games[1].GuessLetter("d")
	s.SetActiveGameByIndex(1)
	clk.Advance(10 * time.Second)
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	later := clock.NewFake(t0.Add(20 * time.Second))
	back := New(context.Background(), Options{KV: mem, Clock: later})
	if back.Len() != 2 || back.ActiveGameIndex() != 1 {
		t.Fatalf("expected 2 games with index 1 active got %d/%d", back.Len(), back.ActiveGameIndex())
	}
	g := back.ActiveGame()
	if g.ID() != games[1].ID() || g.Status() != game.StatusPlaying {
		t.Fatalf("unexpected round %s %s", g.ID(), g.Status())
	}
	if g.RemainingTime() != 40 || g.BoardScale() != 1.3 || g.GuessCount() != 1 {
		t.Fatalf("unexpected restored state %d %v %d", g.RemainingTime(), g.BoardScale(), g.GuessCount())
	}
}

func TestRehydrateTimesOutAfterLongGap(t *testing.T) {
	s, mem, _ := newTestStore(t)
	s.CreateGames([]string{"sol"})
	s.ActiveGame().Start()
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	later := clock.NewFake(t0.Add(5 * time.Minute))
	back := New(context.Background(), Options{KV: mem, Clock: later})
	g := back.ActiveGame()
	if g.Status() != game.StatusLost || g.RemainingTime() != 0 {
		t.Fatalf("expected lost at 0 got %s at %d", g.Status(), g.RemainingTime())
	}
	if !back.AllGamesCompleted() {
		t.Fatalf("expected store completed")
	}

	later.Advance(100 * time.Millisecond)
	snap := readSnapshot(t, mem)
	if snap.Games[0].Status != game.StatusLost {
		t.Fatalf("expected timed-out round persisted as lost got %s", snap.Games[0].Status)
	}
}

func TestLoadFallsBackOnCorruptSnapshot(t *testing.T) {
	cases := map[string]string{
		"not json":     `{"games": [`,
		"bad status":   `{"games":[{"id":"a","text":"X","guessedLetters":[],"status":"paused"}],"activeGameId":"a"}`,
		"missing id":   `{"games":[{"text":"X","guessedLetters":[],"status":"pending"}],"activeGameId":null}`,
		"duplicate id": `{"games":[{"id":"a","text":"X","guessedLetters":[],"status":"pending"},{"id":"a","text":"Y","guessedLetters":[],"status":"pending"}],"activeGameId":"a"}`,
	}
	for name, raw := range cases {
		mem := kv.NewMemory()
		_ = mem.Set(context.Background(), DefaultKey, []byte(raw))
		s := New(context.Background(), Options{KV: mem, Clock: clock.NewFake(t0)})
		if s.Len() != 0 || s.ActiveGame() != nil {
			t.Fatalf("%s: expected empty store got %d games", name, s.Len())
		}
	}
}

func TestLoadDropsDanglingActivePointer(t *testing.T) {
	mem := kv.NewMemory()
	raw := `{"games":[{"id":"a","text":"SOL","guessedLetters":["S"],"status":"won"}],"activeGameId":"zzz"}`
	_ = mem.Set(context.Background(), DefaultKey, []byte(raw))

	clk := clock.NewFake(t0)
	s := New(context.Background(), Options{KV: mem, Clock: clk})
	if s.Len() != 1 {
		t.Fatalf("expected 1 game got %d", s.Len())
	}
	if s.ActiveGameID() != "" {
		t.Fatalf("expected dangling pointer cleared got %q", s.ActiveGameID())
	}
	g, _ := s.Game("a")
	if g.BoardScale() != 1 || g.RemainingTime() != game.DefaultTimerDuration {
		t.Fatalf("expected defaults for omitted fields")
	}

	clk.Advance(100 * time.Millisecond)
	if snap := readSnapshot(t, mem); snap.ActiveGameID != nil {
		t.Fatalf("expected cleared pointer persisted got %q", *snap.ActiveGameID)
	}
}

func TestUnchangedLoadDoesNotRewrite(t *testing.T) {
	mem := kv.NewMemory()
	raw := `{"games":[{"id":"a","text":"SOL","guessedLetters":[],"status":"pending"}],"activeGameId":"a"}`
	_ = mem.Set(context.Background(), DefaultKey, []byte(raw))

	clk := clock.NewFake(t0)
	New(context.Background(), Options{KV: mem, Clock: clk})
	if clk.Pending() != 0 {
		t.Fatalf("expected no write scheduled for an unchanged load")
	}
}

func TestSnapshotJSONShape(t *testing.T) {
	s, _, _ := newTestStore(t)
	raw, err := s.MarshalSnapshot()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"games":[],"activeGameId":null}` {
		t.Fatalf("unexpected empty snapshot %s", raw)
	}
	s.CreateGames([]string{"sol"})
	raw, _ = s.MarshalSnapshot()
	if !strings.Contains(string(raw), `"activeGameId":"`+s.ActiveGameID()+`"`) {
		t.Fatalf("expected active id in %s", raw)
	}
}

func TestResumeReachesEveryGame(t *testing.T) {
	s, _, clk := newTestStore(t)
	s.CreateGames([]string{"sol", "mar"})
	for _, g := range s.Games() {
		g.Start()
	}
	clk.Set(t0.Add(15 * time.Second))
	s.Resume()
	for _, g := range s.Games() {
		if g.RemainingTime() != 45 {
			t.Fatalf("expected 45 after resume got %d", g.RemainingTime())
		}
	}
}

func TestView(t *testing.T) {
	s, _, _ := newTestStore(t)
	v := s.View()
	if len(v.Games) != 0 || v.ActiveGameID != nil || v.ActiveGameIndex != -1 || v.AllGamesCompleted {
		t.Fatalf("unexpected empty view %+v", v)
	}
	s.CreateGames([]string{"sol", "mar"})
	v = s.View()
	if len(v.Games) != 2 || v.ActiveGameIndex != 0 || *v.ActiveGameID != v.Games[0].ID {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestSubscribersMayReadStoreDuringReset(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.CreateGames([]string{"sol", "mar"})
	s.Games()[1].Start()

	var seen []string
	s.Bus().Subscribe(func(events.Event) {
		seen = append(seen, s.ActiveGameID())
	})

	done := make(chan struct{})
	go func() {
		s.ResetAllGames()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("ResetAllGames blocked a subscriber reading the store")
	}
	if len(seen) != 3 {
		t.Fatalf("expected 2 game updates and 1 reset event got %d", len(seen))
	}
}
