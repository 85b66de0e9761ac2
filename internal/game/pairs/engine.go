package pairs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"parlor/server/internal/net/proto"
	"parlor/server/internal/store"
)

// BoardSize is the fixed tile count: 18 distinct values, each twice.
const BoardSize = 36

// DefaultTurnTimeout is how long a seat may hold the turn before forfeiting
// it.
const DefaultTurnTimeout = 60 * time.Second

// Sender delivers outbound frames to players, best-effort.
type Sender interface {
	SendTo(playerID, frame string)
}

// Tile is one board position.
type Tile struct {
	Value   int
	Flipped bool
	Matched bool
}

// Config wires an Engine to its collaborators.
type Config struct {
	GameID  string // the room id doubles as the game id
	Player1 string
	Player2 string
	Send    Sender
	History store.MatchHistoryStore
	// OnFinish runs once when the match reaches a terminal state.
	OnFinish func(gameID, winnerID string)
	Timeout  time.Duration
	Logger   *slog.Logger
	// Seed fixes the shuffle for tests; zero seeds from the clock.
	Seed int64
}

// Engine is the state machine for the tile-matching game. Board mutation for
// one match is serialized by the engine's lock; the turn timer re-checks the
// terminal flag and turn sequence under that same lock, so a cancel that
// loses the race against an already-fired timer cannot double-apply a loss.
type Engine struct {
	mu sync.Mutex

	gameID  string
	players [2]string
	board   []Tile
	current int // index into players
	scores  map[string]int
	over    bool

	turnSeq int
	timer   *time.Timer
	timeout time.Duration

	send     Sender
	history  store.MatchHistoryStore
	onFinish func(gameID, winnerID string)
	logger   *slog.Logger
}

// New builds a shuffled board and seats the first player on turn.
func New(cfg Config) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTurnTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		gameID:   cfg.GameID,
		players:  [2]string{cfg.Player1, cfg.Player2},
		scores:   map[string]int{cfg.Player1: 0, cfg.Player2: 0},
		timeout:  timeout,
		send:     cfg.Send,
		history:  cfg.History,
		onFinish: cfg.OnFinish,
		logger:   logger,
	}

	rng := rand.New(rand.NewSource(seed))
	values := make([]int, 0, BoardSize)
	for v := 1; v <= BoardSize/2; v++ {
		values = append(values, v, v)
	}
	rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
	e.board = make([]Tile, BoardSize)
	for i, v := range values {
		e.board[i] = Tile{Value: v}
	}
	return e
}

// Start announces the opening turn and arms the first timeout.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcastLocked(proto.Format(proto.TypeTurnChanged, e.players[e.current]))
	e.scheduleTimerLocked()
}

// GameID reports the identifier carried by FlipCard frames.
func (e *Engine) GameID() string {
	return e.gameID
}

// Over reports whether the match has reached its terminal state.
func (e *Engine) Over() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.over
}

// Scores returns a copy of the per-player scores.
func (e *Engine) Scores() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int, len(e.scores))
	for k, v := range e.scores {
		out[k] = v
	}
	return out
}

// Flip reveals two distinct unmatched tiles for the seat on turn. A matching
// pair scores and retains the turn; a mismatch re-hides both tiles and
// passes the turn. Illegal flips are ignored without touching board state.
func (e *Engine) Flip(playerID string, index1, index2 int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.over || playerID != e.players[e.current] {
		return
	}
	if index1 == index2 ||
		index1 < 0 || index1 >= len(e.board) ||
		index2 < 0 || index2 >= len(e.board) {
		e.logger.Debug("ignoring invalid flip", "game", e.gameID, "player", playerID, "i", index1, "j", index2)
		return
	}
	tile1 := &e.board[index1]
	tile2 := &e.board[index2]
	if tile1.Matched || tile2.Matched {
		return
	}

	tile1.Flipped = true
	tile2.Flipped = true
	e.broadcastLocked(proto.Format(proto.TypeCardFlipped,
		fmt.Sprintf("%d", index1), fmt.Sprintf("%d", index2), playerID))

	if tile1.Value == tile2.Value {
		tile1.Matched = true
		tile2.Matched = true
		e.scores[playerID]++
		e.broadcastLocked(proto.Format(proto.TypePairMatched,
			fmt.Sprintf("%d", index1), fmt.Sprintf("%d", index2), playerID))
		e.checkCompleteLocked()
		return
	}

	tile1.Flipped = false
	tile2.Flipped = false
	e.current = 1 - e.current
	e.broadcastLocked(proto.Format(proto.TypeTurnChanged, e.players[e.current]))
	e.scheduleTimerLocked()
}

// HandleDisconnect forfeits the match: the remaining seat is credited with a
// point and the win.
func (e *Engine) HandleDisconnect(playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.over {
		return
	}
	var winner string
	switch playerID {
	case e.players[0]:
		winner = e.players[1]
	case e.players[1]:
		winner = e.players[0]
	default:
		return
	}
	e.scores[winner]++
	e.finishLocked(winner)
}

// scheduleTimerLocked cancels any previous timeout token and arms a new one
// for the seat now on turn.
func (e *Engine) scheduleTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.turnSeq++
	seq := e.turnSeq
	e.timer = time.AfterFunc(e.timeout, func() {
		e.fireTimeout(seq)
	})
}

// fireTimeout applies a timeout loss if the token is still current.
func (e *Engine) fireTimeout(seq int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.over || seq != e.turnSeq {
		return
	}
	loser := e.players[e.current]
	winner := e.players[1-e.current]
	e.logger.Info("turn timed out", "game", e.gameID, "loser", loser)
	e.scores[winner]++
	e.finishLocked(winner)
}

// checkCompleteLocked ends the match once every tile is matched.
func (e *Engine) checkCompleteLocked() {
	for _, tile := range e.board {
		if !tile.Matched {
			return
		}
	}
	winner := "Draw"
	switch {
	case e.scores[e.players[0]] > e.scores[e.players[1]]:
		winner = e.players[0]
	case e.scores[e.players[0]] < e.scores[e.players[1]]:
		winner = e.players[1]
	}
	e.finishLocked(winner)
}

// finishLocked moves the match to its terminal state, announces the scores,
// and appends the result to the match history, best-effort.
func (e *Engine) finishLocked(winner string) {
	if e.over {
		return
	}
	e.over = true
	if e.timer != nil {
		e.timer.Stop()
	}

	data, err := json.Marshal(e.scores)
	if err != nil {
		e.logger.Warn("failed to marshal scores", "game", e.gameID, "error", err)
		data = []byte("{}")
	}
	e.broadcastLocked(proto.Format(proto.TypeGameOver, string(data)))

	if e.history != nil {
		result := store.MatchResult{
			GameID:   e.gameID,
			Player1:  e.players[0],
			Player2:  e.players[1],
			Score1:   e.scores[e.players[0]],
			Score2:   e.scores[e.players[1]],
			Winner:   winner,
			PlayedAt: time.Now(),
		}
		if err := e.history.Append(result); err != nil {
			e.logger.Warn("failed to append match result", "game", e.gameID, "error", err)
		}
	}

	if e.onFinish != nil {
		e.onFinish(e.gameID, winner)
	}
}

func (e *Engine) broadcastLocked(frame string) {
	for _, id := range e.players {
		e.send.SendTo(id, frame)
	}
}
