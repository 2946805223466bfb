package ws

import (
	"encoding/json"
	"errors"

	"rummikub/internal/domain"
)

// InMsg is the inbound wire envelope.
type InMsg struct {
	T     string          `json:"t"`
	ReqID string          `json:"reqId,omitempty"`
	P     json.RawMessage `json:"p,omitempty"`
}

// OutMsg is the outbound wire envelope.
type OutMsg struct {
	T     string `json:"t"`
	ReqID string `json:"reqId,omitempty"`
	P     any    `json:"p,omitempty"`
}

// Inbound message types.
const (
	MsgPing          = "ping"
	MsgCreateRoom    = "create-room"
	MsgJoinRoom      = "join-room"
	MsgMoveTile      = "move-tile"
	MsgDrawTile      = "draw-tile"
	MsgEndTurn       = "end-turn"
	MsgAddRow        = "add-row"
	MsgValidateTable = "validate-table"
	MsgListRooms     = "list-rooms"
)

// Outbound message types not derived from app events.
const (
	MsgPong      = "pong"
	MsgWelcome   = "welcome"
	MsgRoomsList = "rooms-list"
	MsgError     = "error"
)

// ErrPayload is the body of an error event, delivered only to the
// acting connection.
type ErrPayload struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

type WelcomePayload struct {
	PlayerID string `json:"playerId"`
}

type CreateRoomPayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"displayName,omitempty"`
}

func (p *CreateRoomPayload) Validate() error {
	if p.RoomID == "" {
		return errors.New("roomId required")
	}
	return nil
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"displayName,omitempty"`
}

func (p *JoinRoomPayload) Validate() error {
	if p.RoomID == "" {
		return errors.New("roomId required")
	}
	return nil
}

type MoveTilePayload struct {
	RoomID   string        `json:"roomId"`
	TileID   domain.TileID `json:"tileId"`
	From     domain.Zone   `json:"fromZone"`
	To       domain.Zone   `json:"toZone"`
	RowIndex int           `json:"rowIndex"`
}

func (p *MoveTilePayload) Validate() error {
	if p.RoomID == "" {
		return errors.New("roomId required")
	}
	if !moveZone(p.From) || !moveZone(p.To) {
		return errors.New("zones must be rack or table")
	}
	if p.RowIndex < 0 {
		return errors.New("rowIndex must not be negative")
	}
	if p.TileID < 0 || p.TileID >= domain.TileCount {
		return errors.New("unknown tileId")
	}
	return nil
}

// moveZone reports whether a zone is addressable by a move. The pool is
// reached only through the draw operation.
func moveZone(z domain.Zone) bool {
	return z == domain.ZoneRack || z == domain.ZoneTable
}

// RoomPayload is the body of the operations that only name a room.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

func (p *RoomPayload) Validate() error {
	if p.RoomID == "" {
		return errors.New("roomId required")
	}
	return nil
}
