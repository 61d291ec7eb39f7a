package game

import (
	"strings"
	"unicode/utf8"
)

// SlotState is how a board cell should be drawn.
type SlotState string

const (
	SlotHidden   SlotState = "hidden"
	SlotRevealed SlotState = "revealed"
	SlotCorrect  SlotState = "correct" // revealed letter of a won round
	SlotWrong    SlotState = "wrong"   // revealed letter of a lost round
	SlotSymbol   SlotState = "symbol"  // punctuation and other literal separators
)

// KeyState is how a keyboard key should be drawn.
type KeyState string

const (
	KeyDisabled  KeyState = "disabled"
	KeyAvailable KeyState = "available"
	KeyCorrect   KeyState = "correct"
	KeyWrong     KeyState = "wrong"
)

// Cell is one character of the board.
type Cell struct {
	Char     string    `json:"char"`
	Letter   bool      `json:"letter"`
	Revealed bool      `json:"revealed"`
	State    SlotState `json:"state"`
}

// Key is one keyboard key.
type Key struct {
	Letter string   `json:"letter"`
	State  KeyState `json:"state"`
}

var letterRows = [][]string{
	strings.Split("QWERTYUIOP", ""),
	{"A", "S", "D", "F", "G", "H", "J", "K", "L", "Ñ"},
	strings.Split("ZXCVBNM", ""),
}

// Rows returns the on-screen keyboard layout for the alphabet.
func (a Alphabet) Rows() [][]string {
	rows := make([][]string, 0, len(letterRows)+1)
	if a == AlphabetExtended {
		rows = append(rows, strings.Split("1234567890", ""))
	}
	for i, r := range letterRows {
		row := append([]string(nil), r...)
		if a == AlphabetExtended && i == len(letterRows)-1 {
			row = append(row, ":")
		}
		rows = append(rows, row)
	}
	return rows
}

// View is a consistent read model of a round for the presentation layer.
type View struct {
	ID             string   `json:"id"`
	Text           string   `json:"text"`
	Status         Status   `json:"status"`
	Words          []string `json:"words"`
	UniqueLetters  []string `json:"uniqueLetters"`
	GuessedLetters []string `json:"guessedLetters"`
	GuessCount     int      `json:"guessCount"`
	MaxGuesses     int      `json:"maxGuesses"`
	CanGuess       bool     `json:"canGuess"`
	RemainingTime  int      `json:"remainingTime"`
	FormattedTime  string   `json:"formattedTime"`
	IsTimerLow     bool     `json:"isTimerLow"`
	GameOver       bool     `json:"gameOver"`
	IsComplete     bool     `json:"isComplete"`
	BoardScale     float64  `json:"boardScale"`
	Board          [][]Cell `json:"board"`
	Keyboard       [][]Key  `json:"keyboard"`
}

// View snapshots the round under a single lock.
func (g *Game) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return View{
		ID:             g.id,
		Text:           g.text,
		Status:         g.status,
		Words:          strings.Fields(g.text),
		UniqueLetters:  append([]string{}, g.unique...),
		GuessedLetters: append([]string{}, g.guessOrder...),
		GuessCount:     len(g.guessOrder),
		MaxGuesses:     g.rules.MaxGuesses,
		CanGuess:       g.canGuessLocked(),
		RemainingTime:  g.remaining,
		FormattedTime:  formatTime(g.remaining),
		IsTimerLow:     g.remaining <= g.rules.LowTime,
		GameOver:       g.status.Terminal(),
		IsComplete:     g.status != StatusPlaying || g.allGuessedLocked(),
		BoardScale:     g.boardScale,
		Board:          g.boardLocked(),
		Keyboard:       g.keyboardLocked(),
	}
}

// Board lays out the text word by word.
func (g *Game) Board() [][]Cell {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.boardLocked()
}

// KeyState reports how the key for letter should be drawn.
func (g *Game) KeyState(letter string) KeyState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keyStateLocked(Normalize(letter))
}

// Keyboard returns the layout of the round's alphabet with key states.
func (g *Game) Keyboard() [][]Key {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keyboardLocked()
}

func (g *Game) boardLocked() [][]Cell {
	revealedState := SlotRevealed
	switch g.status {
	case StatusWon:
		revealedState = SlotCorrect
	case StatusLost:
		revealedState = SlotWrong
	}

	words := strings.Fields(g.text)
	board := make([][]Cell, 0, len(words))
	for _, w := range words {
		cells := make([]Cell, 0, utf8.RuneCountInString(w))
		for _, r := range w {
			ch := string(r)
			l, ok := normalizeGuess(ch, g.alphabet)
			if !ok {
				cells = append(cells, Cell{Char: ch, Revealed: true, State: SlotSymbol})
				continue
			}
			_, revealed := g.guessed[l]
			state := SlotHidden
			if revealed {
				state = revealedState
			}
			cells = append(cells, Cell{Char: ch, Letter: true, Revealed: revealed, State: state})
		}
		board = append(board, cells)
	}
	return board
}

func (g *Game) keyStateLocked(l string) KeyState {
	if !g.canGuessLocked() {
		return KeyDisabled
	}
	if _, ok := g.guessed[l]; !ok {
		return KeyAvailable
	}
	if g.inText(l) {
		return KeyCorrect
	}
	return KeyWrong
}

func (g *Game) keyboardLocked() [][]Key {
	rows := g.alphabet.Rows()
	out := make([][]Key, len(rows))
	for i, row := range rows {
		out[i] = make([]Key, len(row))
		for j, l := range row {
			out[i][j] = Key{Letter: l, State: g.keyStateLocked(l)}
		}
	}
	return out
}
