package proto

import (
	"fmt"
	"strings"
)

// Frames on the wire are UTF-8 text of the form "Type|Payload". The payload
// is everything after the first delimiter; fields inside it are
// comma-separated.
const delimiter = "|"

// Inbound frame type identifiers.
const (
	TypeCreateRoom     = "CreateRoom"
	TypeJoinGame       = "JoinGame"
	TypeInviteFriend   = "InviteFriend"
	TypePlayAgainstBot = "PlayAgainstBot"
	TypeJoinRandomRoom = "JoinRandomRoom"
	TypePlayerAction   = "PlayerAction"
	TypeColorChosen    = "ColorChosen"
	TypeFlipCard       = "FlipCard"
	TypeStatusUpdate   = "StatusUpdate"
	TypeEndGame        = "EndGame"
)

// Outbound frame type identifiers.
const (
	TypeRoomCreated       = "RoomCreated"
	TypeInvitation        = "Invitation"
	TypeJoinedGame        = "JoinedGame"
	TypeGameStarted       = "GameStarted"
	TypeGameUpdated       = "GameUpdated"
	TypeGameState         = "GameState"
	TypeYourTurn          = "YourTurn"
	TypeDrawnCard         = "DrawnCard"
	TypePlayableDrawnCard = "PlayableDrawnCard"
	TypeChooseColor       = "ChooseColor"
	TypeCardFlipped       = "CardFlipped"
	TypePairMatched       = "PairMatched"
	TypeTurnChanged       = "TurnChanged"
	TypeWinner            = "Winner"
	TypeGameOver          = "GameOver"
	TypeOpponentLeft      = "OpponentLeft"
)

// Frame is a decoded wire frame.
type Frame struct {
	Type    string
	Payload string
}

// Parse decodes a raw text frame. A frame without the delimiter is a protocol
// error; the caller drops it and keeps the connection open.
func Parse(raw []byte) (Frame, error) {
	text := string(raw)
	idx := strings.Index(text, delimiter)
	if idx < 0 {
		return Frame{}, fmt.Errorf("frame missing %q delimiter", delimiter)
	}
	frame := Frame{Type: text[:idx], Payload: text[idx+1:]}
	if frame.Type == "" {
		return Frame{}, fmt.Errorf("frame has empty type")
	}
	return frame, nil
}

// Fields splits the payload into exactly want comma-separated fields.
func (f Frame) Fields(want int) ([]string, error) {
	fields := strings.Split(f.Payload, ",")
	if len(fields) != want {
		return nil, fmt.Errorf("%s payload has %d fields, want %d", f.Type, len(fields), want)
	}
	return fields, nil
}

// FieldsBetween splits the payload into between min and max fields, for frames
// with optional trailing fields.
func (f Frame) FieldsBetween(min, max int) ([]string, error) {
	fields := strings.Split(f.Payload, ",")
	if len(fields) < min || len(fields) > max {
		return nil, fmt.Errorf("%s payload has %d fields, want %d-%d", f.Type, len(fields), min, max)
	}
	return fields, nil
}

// Format renders an outbound frame.
func Format(frameType string, fields ...string) string {
	return frameType + delimiter + strings.Join(fields, ",")
}
