package match

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"parlor/server/internal/game/pairs"
	"parlor/server/internal/game/shed"
	"parlor/server/internal/hub"
	"parlor/server/internal/net/proto"
	"parlor/server/internal/store"
)

// Room kinds. A room's kind is fixed at creation and decides which engine
// starts when the guest seat fills.
const (
	KindShed  = "shed"
	KindPairs = "pairs"
)

var (
	ErrUnknownRoom = errors.New("unknown room")
	ErrRoomFull    = errors.New("room guest seat is taken")
	ErrRoomActive  = errors.New("room match already started")
	ErrBadKind     = errors.New("unsupported room kind")
)

// Room is an open or active matchmaking room.
type Room struct {
	ID      string
	HostID  string
	GuestID string
	Kind    string
	Active  bool
}

// engine is the slice of the two game engines the coordinator drives.
type engine interface {
	HandleDisconnect(playerID string)
}

// Coordinator owns the room table, the random-match queue, and the mapping
// from rooms to running engines. Engine calls never happen while the
// coordinator lock is held; engines call back into teardown via OnFinish.
type Coordinator struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	engines map[string]engine
	shed    map[string]*shed.Engine
	pairs   map[string]*pairs.Engine
	queue   []string
	queued  map[string]bool

	registry    *hub.Registry
	stores      store.Stores
	logger      *slog.Logger
	pairTimeout time.Duration
}

// New builds an empty coordinator.
func New(registry *hub.Registry, stores store.Stores, pairTimeout time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if pairTimeout <= 0 {
		pairTimeout = pairs.DefaultTurnTimeout
	}
	return &Coordinator{
		rooms:       make(map[string]*Room),
		engines:     make(map[string]engine),
		shed:        make(map[string]*shed.Engine),
		pairs:       make(map[string]*pairs.Engine),
		queued:      make(map[string]bool),
		registry:    registry,
		stores:      stores,
		logger:      logger,
		pairTimeout: pairTimeout,
	}
}

// CreateRoom opens a new room with hostID seated and announces the room id
// back to the host. Persistence is best-effort.
func (c *Coordinator) CreateRoom(hostID, kind string) (string, error) {
	if kind == "" {
		kind = KindShed
	}
	if kind != KindShed && kind != KindPairs {
		return "", ErrBadKind
	}

	roomID := uuid.NewString()
	c.mu.Lock()
	c.rooms[roomID] = &Room{ID: roomID, HostID: hostID, Kind: kind}
	c.mu.Unlock()

	if err := c.stores.Rooms.Save(store.RoomRecord{
		RoomID:    roomID,
		HostID:    hostID,
		Kind:      kind,
		IsActive:  true,
		CreatedAt: time.Now(),
	}); err != nil {
		c.logger.Warn("failed to persist room", "room", roomID, "error", err)
	}

	c.registry.SendTo(hostID, proto.Format(proto.TypeRoomCreated, roomID))
	return roomID, nil
}

// JoinRoom seats guestID in an open room and starts the room's engine.
func (c *Coordinator) JoinRoom(roomID, guestID string) error {
	c.mu.Lock()
	room, ok := c.rooms[roomID]
	if !ok {
		c.mu.Unlock()
		return ErrUnknownRoom
	}
	if room.Active {
		c.mu.Unlock()
		return ErrRoomActive
	}
	if room.GuestID != "" {
		c.mu.Unlock()
		return ErrRoomFull
	}
	room.GuestID = guestID
	room.Active = true
	kind := room.Kind
	hostID := room.HostID
	c.mu.Unlock()

	if err := c.stores.Rooms.SetGuest(roomID, guestID); err != nil {
		c.logger.Warn("failed to persist room guest", "room", roomID, "error", err)
	}

	c.registry.SendTo(guestID, proto.Format(proto.TypeJoinedGame, roomID))
	c.startMatch(roomID, hostID, guestID, kind)
	return nil
}

// ConvertToBotGame fills the guest seat of an open room with the bot and
// starts the card game. Tile-matching rooms cannot take a bot seat.
func (c *Coordinator) ConvertToBotGame(roomID string) error {
	c.mu.Lock()
	room, ok := c.rooms[roomID]
	if !ok {
		c.mu.Unlock()
		return ErrUnknownRoom
	}
	if room.Active {
		c.mu.Unlock()
		return ErrRoomActive
	}
	if room.GuestID != "" {
		c.mu.Unlock()
		return ErrRoomFull
	}
	if room.Kind != KindShed {
		c.mu.Unlock()
		return ErrBadKind
	}
	room.GuestID = shed.BotID
	room.Active = true
	hostID := room.HostID
	c.mu.Unlock()

	if err := c.stores.Rooms.SetGuest(roomID, shed.BotID); err != nil {
		c.logger.Warn("failed to persist room guest", "room", roomID, "error", err)
	}

	c.registry.SendTo(hostID, proto.Format(proto.TypeGameUpdated, roomID, "BOT"))
	c.startMatch(roomID, hostID, shed.BotID, KindShed)
	return nil
}

// InviteFriend relays an invitation frame; delivery is best-effort and the
// invitee joins through the ordinary JoinGame path.
func (c *Coordinator) InviteFriend(roomID, fromID, toID string) {
	c.registry.SendTo(toID, proto.Format(proto.TypeInvitation, roomID, fromID))
}

// JoinRandomQueue enqueues playerID and pairs the two oldest connected
// waiters into a fresh card-game room. Entries whose connection is gone are
// dropped during the drain.
func (c *Coordinator) JoinRandomQueue(playerID string) {
	type pairing struct{ host, guest string }
	var matches []pairing

	c.mu.Lock()
	if !c.queued[playerID] {
		c.queued[playerID] = true
		c.queue = append(c.queue, playerID)
	}
	for len(c.queue) >= 2 {
		host := c.dequeueLocked()
		if _, ok := c.registry.Get(host); !ok {
			continue
		}
		if len(c.queue) == 0 {
			// Survivor waits at the back for the next arrival.
			c.queue = append(c.queue, host)
			c.queued[host] = true
			break
		}
		guest := c.dequeueLocked()
		if _, ok := c.registry.Get(guest); !ok {
			c.queue = append(c.queue, host)
			c.queued[host] = true
			continue
		}
		matches = append(matches, pairing{host: host, guest: guest})
	}
	c.mu.Unlock()

	for _, m := range matches {
		roomID := uuid.NewString()
		c.mu.Lock()
		c.rooms[roomID] = &Room{ID: roomID, HostID: m.host, GuestID: m.guest, Kind: KindShed, Active: true}
		c.mu.Unlock()

		if err := c.stores.Rooms.Save(store.RoomRecord{
			RoomID:    roomID,
			HostID:    m.host,
			GuestID:   m.guest,
			Kind:      KindShed,
			IsActive:  true,
			CreatedAt: time.Now(),
		}); err != nil {
			c.logger.Warn("failed to persist room", "room", roomID, "error", err)
		}

		c.registry.SendTo(m.host, proto.Format(proto.TypeJoinedGame, roomID))
		c.registry.SendTo(m.guest, proto.Format(proto.TypeJoinedGame, roomID))
		c.startMatch(roomID, m.host, m.guest, KindShed)
	}
}

// dequeueLocked pops the queue head and clears its membership mark.
func (c *Coordinator) dequeueLocked() string {
	id := c.queue[0]
	c.queue = c.queue[1:]
	delete(c.queued, id)
	return id
}

// startMatch constructs and starts the engine for a now-full room.
func (c *Coordinator) startMatch(roomID, hostID, guestID, kind string) {
	switch kind {
	case KindPairs:
		eng := pairs.New(pairs.Config{
			GameID:   roomID,
			Player1:  hostID,
			Player2:  guestID,
			Send:     c.registry,
			History:  c.stores.History,
			OnFinish: c.handleFinish,
			Timeout:  c.pairTimeout,
			Logger:   c.logger,
		})
		c.mu.Lock()
		c.engines[roomID] = eng
		c.pairs[roomID] = eng
		c.mu.Unlock()

		started := proto.Format(proto.TypeGameStarted, roomID, hostID, guestID)
		c.registry.SendTo(hostID, started)
		c.registry.SendTo(guestID, started)
		eng.Start()
	default:
		eng := shed.New(shed.Config{
			RoomID:   roomID,
			HostID:   hostID,
			GuestID:  guestID,
			Send:     c.registry,
			Users:    c.stores.Users,
			OnFinish: c.handleFinish,
			Logger:   c.logger,
		})
		c.mu.Lock()
		c.engines[roomID] = eng
		c.shed[roomID] = eng
		c.mu.Unlock()

		started := proto.Format(proto.TypeGameStarted, roomID, hostID, guestID)
		c.registry.SendTo(hostID, started)
		if guestID != shed.BotID {
			c.registry.SendTo(guestID, started)
		}
		eng.Start()
	}

	if err := c.stores.Users.SetStatus(hostID, store.StatusPlaying); err != nil {
		c.logger.Debug("failed to persist status", "player", hostID, "error", err)
	}
	if guestID != shed.BotID {
		if err := c.stores.Users.SetStatus(guestID, store.StatusPlaying); err != nil {
			c.logger.Debug("failed to persist status", "player", guestID, "error", err)
		}
	}
}

// HandleAction routes a card-game action to roomID's engine, if one runs.
func (c *Coordinator) HandleAction(roomID, playerID, action string) {
	c.mu.Lock()
	eng := c.shed[roomID]
	c.mu.Unlock()
	if eng == nil {
		c.logger.Debug("action for unknown match", "room", roomID, "player", playerID)
		return
	}
	eng.HandleAction(playerID, action)
}

// HandleColorChosen routes a forced-color choice to roomID's engine.
func (c *Coordinator) HandleColorChosen(roomID, playerID, color string) {
	c.mu.Lock()
	eng := c.shed[roomID]
	c.mu.Unlock()
	if eng == nil {
		return
	}
	eng.HandleColorChosen(playerID, color)
}

// HandleFlip routes a tile flip to gameID's engine, if one runs.
func (c *Coordinator) HandleFlip(gameID, playerID string, index1, index2 int) {
	c.mu.Lock()
	eng := c.pairs[gameID]
	c.mu.Unlock()
	if eng == nil {
		c.logger.Debug("flip for unknown match", "game", gameID, "player", playerID)
		return
	}
	eng.Flip(playerID, index1, index2)
}

// EndGame marks a room finished on the player's request. The engine, if any,
// keeps running until it reaches a terminal state on its own.
func (c *Coordinator) EndGame(roomID string) error {
	if _, err := c.stores.Rooms.Get(roomID); err != nil {
		return err
	}
	return c.stores.Rooms.SetInactive(roomID)
}

// HandleDisconnect removes playerID from matchmaking and forfeits any match
// the player was seated in.
func (c *Coordinator) HandleDisconnect(playerID string) {
	c.mu.Lock()
	if c.queued[playerID] {
		delete(c.queued, playerID)
		for i, id := range c.queue {
			if id == playerID {
				c.queue = append(c.queue[:i], c.queue[i+1:]...)
				break
			}
		}
	}

	var affected []engine
	var abandoned []*Room
	for _, room := range c.rooms {
		if room.HostID != playerID && room.GuestID != playerID {
			continue
		}
		if eng, ok := c.engines[room.ID]; ok {
			affected = append(affected, eng)
			continue
		}
		abandoned = append(abandoned, room)
	}
	for _, room := range abandoned {
		delete(c.rooms, room.ID)
	}
	c.mu.Unlock()

	// Forfeits run outside the coordinator lock: the engine's OnFinish
	// callback re-enters teardown.
	for _, eng := range affected {
		eng.HandleDisconnect(playerID)
	}

	for _, room := range abandoned {
		other := room.HostID
		if other == playerID {
			other = room.GuestID
		}
		if other != "" && other != shed.BotID {
			c.registry.SendTo(other, proto.Format(proto.TypeOpponentLeft, room.ID))
		}
		if err := c.stores.Rooms.Delete(room.ID); err != nil {
			c.logger.Warn("failed to delete room", "room", room.ID, "error", err)
		}
	}
}

// handleFinish is the engines' OnFinish callback: it tears the room down.
func (c *Coordinator) handleFinish(roomID, winnerID string) {
	c.mu.Lock()
	room := c.rooms[roomID]
	delete(c.rooms, roomID)
	delete(c.engines, roomID)
	delete(c.shed, roomID)
	delete(c.pairs, roomID)
	c.mu.Unlock()

	if err := c.stores.Rooms.Delete(roomID); err != nil {
		c.logger.Warn("failed to delete room", "room", roomID, "error", err)
	}

	if room != nil {
		for _, id := range []string{room.HostID, room.GuestID} {
			if id == "" || id == shed.BotID {
				continue
			}
			if _, ok := c.registry.Get(id); ok {
				if err := c.stores.Users.SetStatus(id, store.StatusOnline); err != nil {
					c.logger.Debug("failed to persist status", "player", id, "error", err)
				}
			}
		}
	}

	c.logger.Info("match finished", "room", roomID, "winner", winnerID)
}

// Diagnostics is a point-in-time snapshot of coordinator state.
type Diagnostics struct {
	OpenRooms     int `json:"open_rooms"`
	ActiveMatches int `json:"active_matches"`
	QueueLength   int `json:"queue_length"`
}

// Snapshot reports current room, match, and queue counts.
func (c *Coordinator) Snapshot() Diagnostics {
	c.mu.Lock()
	defer c.mu.Unlock()
	open := 0
	for _, room := range c.rooms {
		if !room.Active {
			open++
		}
	}
	return Diagnostics{
		OpenRooms:     open,
		ActiveMatches: len(c.engines),
		QueueLength:   len(c.queue),
	}
}
