package shed

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"parlor/server/internal/net/proto"
	"parlor/server/internal/store"
)

// BotID is the sentinel guest identity for a computer-controlled seat.
const BotID = "-1"

// Player actions carried in PlayerAction frames.
const (
	ActionDrawCard = "DrawCard"
	ActionPassTurn = "PassTurn"
)

// Sender delivers outbound frames to players, best-effort.
type Sender interface {
	SendTo(playerID, frame string)
}

// Seat is one participant slot in an active match.
type Seat struct {
	ID   string
	Hand []Card
}

// Config wires an Engine to its collaborators.
type Config struct {
	RoomID  string
	HostID  string
	GuestID string
	Send    Sender
	Users   store.UserRecordStore
	// OnFinish runs once when the match reaches a terminal state, after the
	// winner has been announced.
	OnFinish func(roomID, winnerID string)
	Logger   *slog.Logger
	// Seed fixes the shuffle for tests; zero seeds from the clock.
	Seed int64
}

// Engine is the state machine for the shedding card game. The engine is
// constructed already dealt; there is no pre-game state. Every mutation runs
// under the engine's own lock so at most one action is in flight per match.
type Engine struct {
	mu sync.Mutex

	roomID  string
	seats   []*Seat
	current int

	deck    []Card // top of the stack is the last element
	discard []Card

	pending     int    // pending-draw accumulator
	pendingKind string // last accumulated kind: "+2" or "+4"
	forced      Color  // forced color override, "" when inactive
	awaitColor  bool
	chooser     int // seat that owes a color choice

	over bool

	rng      *rand.Rand
	send     Sender
	users    store.UserRecordStore
	onFinish func(roomID, winnerID string)
	logger   *slog.Logger
}

// New deals a fresh match: shuffled 52-card deck, 7 cards per seat, and a
// non-special starting discard. The starting seat is chosen at random.
func New(cfg Config) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		roomID:   cfg.RoomID,
		seats:    []*Seat{{ID: cfg.HostID}, {ID: cfg.GuestID}},
		rng:      rand.New(rand.NewSource(seed)),
		send:     cfg.Send,
		users:    cfg.Users,
		onFinish: cfg.OnFinish,
		logger:   logger,
	}

	e.deck = newDeck()
	shuffle(e.rng, e.deck)

	for _, seat := range e.seats {
		seat.Hand = make([]Card, 0, 7)
		for i := 0; i < 7; i++ {
			seat.Hand = append(seat.Hand, e.popDeck())
		}
	}

	// Reveal the starting card, reshuffling specials back in so no effect can
	// trigger before the first real turn.
	for {
		top := e.popDeck()
		if !top.IsSpecial() {
			e.discard = append(e.discard, top)
			break
		}
		e.deck = append(e.deck, top)
		shuffle(e.rng, e.deck)
	}

	e.current = e.rng.Intn(len(e.seats))
	return e
}

// Start announces the opening state to both seats.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcastStateLocked()
	e.runBotLocked()
}

// RoomID reports the room this match belongs to.
func (e *Engine) RoomID() string {
	return e.roomID
}

// Over reports whether the match has reached its terminal state.
func (e *Engine) Over() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.over
}

// HandleAction applies one turn action for playerID: "DrawCard", "PassTurn",
// or a card in "Color-Value" form. Illegal or out-of-turn actions are ignored
// without touching match state.
func (e *Engine) HandleAction(playerID, action string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.over {
		return
	}
	idx := e.seatIndex(playerID)
	if idx < 0 || idx != e.current {
		e.logger.Debug("ignoring out-of-turn action", "room", e.roomID, "player", playerID, "action", action)
		return
	}

	switch action {
	case ActionPassTurn:
		e.advance(1)
	case ActionDrawCard:
		e.resolveDrawLocked(idx)
	default:
		card, err := ParseCard(action)
		if err != nil {
			e.logger.Debug("ignoring malformed card action", "room", e.roomID, "player", playerID, "error", err)
			return
		}
		if !e.playCardLocked(idx, card) {
			return
		}
		if e.over {
			return
		}
	}

	e.broadcastStateLocked()
	e.runBotLocked()
}

// HandleColorChosen resolves a pending forced-color choice. Only the seat
// that played the wild-draw-four may choose.
func (e *Engine) HandleColorChosen(playerID, color string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.over || !e.awaitColor {
		return
	}
	if e.seats[e.chooser].ID != playerID {
		e.logger.Debug("ignoring color choice from wrong seat", "room", e.roomID, "player", playerID)
		return
	}
	switch Color(color) {
	case Red, Green, Blue, Yellow:
	default:
		e.logger.Debug("ignoring invalid color choice", "room", e.roomID, "color", color)
		return
	}

	e.forced = Color(color)
	e.awaitColor = false
	e.broadcastStateLocked()
	e.runBotLocked()
}

// HandleDisconnect forfeits the match: the remaining seat is credited as
// winner immediately.
func (e *Engine) HandleDisconnect(playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.over {
		return
	}
	idx := e.seatIndex(playerID)
	if idx < 0 {
		return
	}
	e.finishLocked((idx + 1) % len(e.seats))
}

// playCardLocked validates and applies a card play. Returns false when the
// play was illegal and state is untouched.
func (e *Engine) playCardLocked(idx int, card Card) bool {
	seat := e.seats[idx]

	held := -1
	for i, c := range seat.Hand {
		if c == card {
			held = i
			break
		}
	}
	if held < 0 || !e.playable(card) {
		e.logger.Debug("ignoring illegal play", "room", e.roomID, "player", seat.ID, "card", card.String())
		return false
	}

	seat.Hand = append(seat.Hand[:held], seat.Hand[held+1:]...)
	e.discard = append(e.discard, card)

	if e.forced != "" && card.Color == e.forced {
		e.forced = ""
	}
	if e.awaitColor && idx == e.chooser {
		e.awaitColor = false
	}

	if len(seat.Hand) == 0 {
		e.finishLocked(idx)
		return true
	}

	steps := 1
	switch card.Value {
	case ValueDrawTwo:
		e.pending += 2
		e.pendingKind = ValueDrawTwo
	case ValueWildDrawFour:
		e.pending += 4
		e.pendingKind = ValueWildDrawFour
	case ValueSkip, ValueReverse:
		// With exactly two seats Reverse behaves as Skip: the acting seat
		// takes another turn.
		e.pending = 0
		e.pendingKind = ""
		steps = 2
	default:
		e.pending = 0
		e.pendingKind = ""
	}

	e.advance(steps)
	return true
}

// resolveDrawLocked applies a draw action for the current seat.
func (e *Engine) resolveDrawLocked(idx int) {
	seat := e.seats[idx]

	if e.pending > 0 {
		for i := 0; i < e.pending; i++ {
			card, ok := e.drawOne()
			if !ok {
				break
			}
			seat.Hand = append(seat.Hand, card)
		}
		wasWildDraw := e.pendingKind == ValueWildDrawFour
		e.pending = 0
		e.pendingKind = ""
		e.advance(1)
		if wasWildDraw {
			// The stack is resolved; the seat that played the wild-draw-four
			// now chooses the forced color.
			e.promptColorLocked(e.current)
		}
		return
	}

	card, ok := e.drawOne()
	if !ok {
		e.advance(1)
		return
	}
	seat.Hand = append(seat.Hand, card)
	e.sendToSeat(idx, proto.Format(proto.TypeDrawnCard, card.String()))
	if e.playable(card) {
		// The seat keeps the turn and may play the drawn card or pass.
		e.sendToSeat(idx, proto.Format(proto.TypePlayableDrawnCard, card.String()))
		return
	}
	e.advance(1)
}

// promptColorLocked asks the seat for a forced color; a bot seat answers
// immediately with its most-held color.
func (e *Engine) promptColorLocked(idx int) {
	if e.seats[idx].ID == BotID {
		e.forced = e.dominantColor(e.seats[idx].Hand)
		return
	}
	e.awaitColor = true
	e.chooser = idx
	e.sendToSeat(idx, proto.Format(proto.TypeChooseColor, e.roomID))
}

// playable applies the match rule from §4.4: match color or value, any wild,
// and under a forced color only that color or another wild.
func (e *Engine) playable(card Card) bool {
	if e.forced != "" {
		return card.Color == e.forced || card.Color == Wild
	}
	top := e.discard[len(e.discard)-1]
	return card.Color == top.Color || card.Value == top.Value || card.Color == Wild
}

// drawOne pops the deck, refilling it from the discard pile (all but the top
// card) when exhausted. Returns false when no card is available anywhere.
func (e *Engine) drawOne() (Card, bool) {
	if len(e.deck) == 0 {
		if len(e.discard) <= 1 {
			return Card{}, false
		}
		top := e.discard[len(e.discard)-1]
		e.deck = append(e.deck, e.discard[:len(e.discard)-1]...)
		e.discard = e.discard[:0]
		e.discard = append(e.discard, top)
		shuffle(e.rng, e.deck)
	}
	return e.popDeck(), true
}

func (e *Engine) popDeck() Card {
	card := e.deck[len(e.deck)-1]
	e.deck = e.deck[:len(e.deck)-1]
	return card
}

func (e *Engine) advance(steps int) {
	e.current = (e.current + steps) % len(e.seats)
}

func (e *Engine) seatIndex(playerID string) int {
	for i, seat := range e.seats {
		if seat.ID == playerID {
			return i
		}
	}
	return -1
}

func (e *Engine) dominantColor(hand []Card) Color {
	counts := make(map[Color]int)
	for _, card := range hand {
		if card.Color != Wild {
			counts[card.Color]++
		}
	}
	best := seatColors[e.rng.Intn(len(seatColors))]
	bestCount := -1
	for _, color := range seatColors {
		if counts[color] > bestCount {
			best = color
			bestCount = counts[color]
		}
	}
	return best
}

func (e *Engine) sendToSeat(idx int, frame string) {
	seat := e.seats[idx]
	if seat.ID == BotID {
		return
	}
	e.send.SendTo(seat.ID, frame)
}

// stateView is the per-seat snapshot carried in GameState frames.
type stateView struct {
	RoomID        string   `json:"roomId"`
	CurrentPlayer string   `json:"currentPlayer"`
	TopCard       string   `json:"topCard"`
	YourHand      []string `json:"yourHand"`
	PendingDraw   int      `json:"pendingDraw"`
	ForcedColor   string   `json:"forcedColor,omitempty"`
}

// broadcastStateLocked sends every human seat its own view plus a YourTurn
// nudge to the seat on turn.
func (e *Engine) broadcastStateLocked() {
	if e.over {
		return
	}
	for idx, seat := range e.seats {
		if seat.ID == BotID {
			continue
		}
		view := stateView{
			RoomID:        e.roomID,
			CurrentPlayer: e.seats[e.current].ID,
			TopCard:       e.discard[len(e.discard)-1].String(),
			YourHand:      make([]string, 0, len(seat.Hand)),
			PendingDraw:   e.pending,
			ForcedColor:   string(e.forced),
		}
		for _, card := range seat.Hand {
			view.YourHand = append(view.YourHand, card.String())
		}
		data, err := json.Marshal(view)
		if err != nil {
			e.logger.Warn("failed to marshal game state", "room", e.roomID, "error", err)
			continue
		}
		e.sendToSeat(idx, proto.Format(proto.TypeGameState, string(data)))
	}
	if e.seats[e.current].ID != BotID {
		e.sendToSeat(e.current, proto.Format(proto.TypeYourTurn, e.roomID))
	}
}

// finishLocked moves the match to its terminal state, announces the winner,
// and reports the win. The terminal flag is an ordinary state transition;
// once set, no further player action is accepted.
func (e *Engine) finishLocked(winnerIdx int) {
	if e.over {
		return
	}
	e.over = true
	winner := e.seats[winnerIdx].ID

	frame := proto.Format(proto.TypeWinner, winner)
	for idx := range e.seats {
		e.sendToSeat(idx, frame)
	}

	if winner != BotID && e.users != nil {
		if err := e.users.AddVictory(winner); err != nil {
			e.logger.Warn("failed to record victory", "room", e.roomID, "player", winner, "error", err)
		}
	}

	if e.onFinish != nil {
		e.onFinish(e.roomID, winner)
	}
}
