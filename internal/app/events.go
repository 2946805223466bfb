package app

import "rummikub/internal/domain"

// EventKind identifies emitted app events; values double as outbound
// wire message types.
type EventKind string

const (
	EventRoomCreated    EventKind = "room-created"
	EventRoomJoined     EventKind = "room-joined"
	EventPlayerJoined   EventKind = "player-joined"
	EventGameState      EventKind = "game-state-update"
	EventTileMoved      EventKind = "tile-moved"
	EventTileDrawn      EventKind = "tile-drawn"
	EventTurnEnded      EventKind = "turn-ended"
	EventRowAdded       EventKind = "row-added"
	EventTableValidated EventKind = "table-validated"
	EventPlayerLeft     EventKind = "player-left"
)

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // player ids; empty means broadcast to the room
}

type RoomCreatedPayload struct {
	Snapshot PlayerSnapshot `json:"snapshot"`
}

type RoomJoinedPayload struct {
	Snapshot PlayerSnapshot `json:"snapshot"`
}

type PlayerJoinedPayload struct {
	Roster []RosterEntry `json:"roster"`
	State  domain.State  `json:"state"`
}

type GameStatePayload struct {
	Snapshot PlayerSnapshot `json:"snapshot"`
}

// TileMovedPayload describes a single zone transfer. SourceRowIndex is
// set only for moves out of a table row.
type TileMovedPayload struct {
	TileID         domain.TileID `json:"tileId"`
	From           domain.Zone   `json:"fromZone"`
	To             domain.Zone   `json:"toZone"`
	RowIndex       int           `json:"rowIndex"`
	SourceRowIndex *int          `json:"sourceRowIndex,omitempty"`
	PlayerID       string        `json:"actingPlayer"`
	Tile           domain.Tile   `json:"tile"`
}

type TileDrawnPayload struct {
	PlayerID  string `json:"actingPlayer"`
	PoolCount int    `json:"poolCount"`
}

type TurnEndedPayload struct {
	NewTurn string `json:"newTurn"`
}

type RowAddedPayload struct {
	RowCount int `json:"rowCount"`
}

type TableValidatedPayload struct {
	Valid bool              `json:"isValid"`
	Rows  [][]domain.TileID `json:"rows"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}
