package ws

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"parlor/server/internal/hub"
	"parlor/server/internal/match"
	"parlor/server/internal/net/proto"
	"parlor/server/internal/store"
)

// Handler upgrades /ws requests, registers the connection, and pumps inbound
// frames into the coordinator until the socket closes.
type Handler struct {
	registry *hub.Registry
	coord    *match.Coordinator
	users    store.UserRecordStore
	upgrader websocket.Upgrader
	logger   *slog.Logger
	routes   map[string]func(playerID string, frame proto.Frame)
}

// New builds a Handler. An empty allowedOrigins list admits every origin.
func New(registry *hub.Registry, coord *match.Coordinator, users store.UserRecordStore, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		registry: registry,
		coord:    coord,
		users:    users,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
	h.routes = map[string]func(string, proto.Frame){
		proto.TypeCreateRoom:     h.handleCreateRoom,
		proto.TypeJoinGame:       h.handleJoinGame,
		proto.TypeInviteFriend:   h.handleInviteFriend,
		proto.TypePlayAgainstBot: h.handlePlayAgainstBot,
		proto.TypeJoinRandomRoom: h.handleJoinRandomRoom,
		proto.TypePlayerAction:   h.handlePlayerAction,
		proto.TypeColorChosen:    h.handleColorChosen,
		proto.TypeFlipCard:       h.handleFlipCard,
		proto.TypeStatusUpdate:   h.handleStatusUpdate,
		proto.TypeEndGame:        h.handleEndGame,
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[origin] = true
	}
	return func(r *http.Request) bool {
		return set[r.Header.Get("Origin")]
	}
}

// ServeHTTP handles GET /ws?id=<playerID>.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "player", playerID, "error", err)
		return
	}

	conn := h.registry.Register(playerID, socket)
	if err := h.users.SetStatus(playerID, store.StatusOnline); err != nil {
		h.logger.Debug("failed to persist status", "player", playerID, "error", err)
	}

	go h.readLoop(conn, socket)
}

// readLoop drains inbound frames until the socket errors, then unwinds the
// session. A superseded connection's loop exits without disturbing the
// registration that replaced it.
func (h *Handler) readLoop(conn *hub.Conn, socket *websocket.Conn) {
	playerID := conn.PlayerID()
	defer func() {
		h.registry.Unregister(conn)
		if current, ok := h.registry.Get(playerID); ok && current != conn {
			// Superseded: the player is still here on a newer socket.
			return
		}
		h.coord.HandleDisconnect(playerID)
		if err := h.users.SetStatus(playerID, store.StatusOffline); err != nil {
			h.logger.Debug("failed to persist status", "player", playerID, "error", err)
		}
	}()

	for {
		_, raw, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read error", "player", playerID, "error", err)
			}
			return
		}
		frame, err := proto.Parse(raw)
		if err != nil {
			h.logger.Debug("dropping malformed frame", "player", playerID, "error", err)
			continue
		}
		route, ok := h.routes[frame.Type]
		if !ok {
			h.logger.Debug("dropping unknown frame type", "player", playerID, "type", frame.Type)
			continue
		}
		route(playerID, frame)
	}
}

func (h *Handler) handleCreateRoom(playerID string, frame proto.Frame) {
	fields, err := frame.FieldsBetween(1, 2)
	if err != nil {
		h.logger.Debug("dropping frame", "player", playerID, "error", err)
		return
	}
	kind := ""
	if len(fields) == 2 {
		kind = fields[1]
	}
	if _, err := h.coord.CreateRoom(fields[0], kind); err != nil {
		h.logger.Debug("create room rejected", "player", playerID, "error", err)
	}
}

func (h *Handler) handleJoinGame(playerID string, frame proto.Frame) {
	fields, err := frame.Fields(2)
	if err != nil {
		h.logger.Debug("dropping frame", "player", playerID, "error", err)
		return
	}
	if err := h.coord.JoinRoom(fields[1], fields[0]); err != nil {
		h.logger.Debug("join rejected", "player", playerID, "room", fields[1], "error", err)
	}
}

func (h *Handler) handleInviteFriend(playerID string, frame proto.Frame) {
	fields, err := frame.Fields(2)
	if err != nil {
		h.logger.Debug("dropping frame", "player", playerID, "error", err)
		return
	}
	h.coord.InviteFriend(fields[0], playerID, fields[1])
}

func (h *Handler) handlePlayAgainstBot(playerID string, frame proto.Frame) {
	fields, err := frame.Fields(1)
	if err != nil {
		h.logger.Debug("dropping frame", "player", playerID, "error", err)
		return
	}
	if err := h.coord.ConvertToBotGame(fields[0]); err != nil {
		h.logger.Debug("bot conversion rejected", "player", playerID, "room", fields[0], "error", err)
	}
}

func (h *Handler) handleJoinRandomRoom(playerID string, frame proto.Frame) {
	fields, err := frame.Fields(1)
	if err != nil {
		h.logger.Debug("dropping frame", "player", playerID, "error", err)
		return
	}
	h.coord.JoinRandomQueue(fields[0])
}

func (h *Handler) handlePlayerAction(playerID string, frame proto.Frame) {
	fields, err := frame.Fields(3)
	if err != nil {
		h.logger.Debug("dropping frame", "player", playerID, "error", err)
		return
	}
	h.coord.HandleAction(fields[0], fields[1], fields[2])
}

// handleColorChosen resolves the forced-color prompt. The chooser is the
// connection's identity, not a payload field.
func (h *Handler) handleColorChosen(playerID string, frame proto.Frame) {
	fields, err := frame.Fields(2)
	if err != nil {
		h.logger.Debug("dropping frame", "player", playerID, "error", err)
		return
	}
	h.coord.HandleColorChosen(fields[0], playerID, fields[1])
}

func (h *Handler) handleFlipCard(playerID string, frame proto.Frame) {
	fields, err := frame.Fields(3)
	if err != nil {
		h.logger.Debug("dropping frame", "player", playerID, "error", err)
		return
	}
	index1, err1 := strconv.Atoi(fields[1])
	index2, err2 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil {
		h.logger.Debug("dropping flip with non-numeric indices", "player", playerID)
		return
	}
	h.coord.HandleFlip(fields[0], playerID, index1, index2)
}

func (h *Handler) handleStatusUpdate(playerID string, frame proto.Frame) {
	fields, err := frame.Fields(2)
	if err != nil {
		h.logger.Debug("dropping frame", "player", playerID, "error", err)
		return
	}
	status, err := strconv.Atoi(fields[1])
	if err != nil {
		h.logger.Debug("dropping status update with non-numeric status", "player", playerID)
		return
	}
	if err := h.users.SetStatus(fields[0], status); err != nil {
		h.logger.Debug("failed to persist status", "player", fields[0], "error", err)
	}
	h.registry.SendAll(proto.Format(proto.TypeStatusUpdate, fields[0], fields[1]))
}

func (h *Handler) handleEndGame(playerID string, frame proto.Frame) {
	fields, err := frame.Fields(1)
	if err != nil {
		h.logger.Debug("dropping frame", "player", playerID, "error", err)
		return
	}
	if err := h.coord.EndGame(fields[0]); err != nil {
		h.logger.Debug("end game rejected", "player", playerID, "room", fields[0], "error", err)
	}
}
