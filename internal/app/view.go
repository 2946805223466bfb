package app

import "rummikub/internal/domain"

// RosterEntry is one player's public standing in a snapshot.
type RosterEntry struct {
	ID          string `json:"playerId"`
	DisplayName string `json:"displayName"`
	TileCount   int    `json:"tileCount"`
	Host        bool   `json:"isHost"`
	You         bool   `json:"you"`
}

// PlayerSnapshot is the per-player projection of a session. It never
// carries the opponent's rack contents, only their tile count.
type PlayerSnapshot struct {
	RoomID      string          `json:"roomId"`
	State       domain.State    `json:"state"`
	CurrentTurn string          `json:"currentTurn"`
	YourTurn    bool            `json:"yourTurn"`
	Rack        []domain.Tile   `json:"rack"`
	Table       [][]domain.Tile `json:"table"`
	PoolCount   int             `json:"poolCount"`
	Players     []RosterEntry   `json:"players"`
}

// ProjectFor builds the snapshot visible to one player. The table is
// fully revealed; the requester's own rack is resolved to full tiles.
func ProjectFor(s *domain.GameSession, playerID string) PlayerSnapshot {
	snap := PlayerSnapshot{
		RoomID:      s.RoomID,
		State:       s.State,
		CurrentTurn: s.CurrentTurn,
		YourTurn:    s.State == domain.StatePlaying && s.CurrentTurn == playerID,
		Rack:        []domain.Tile{},
		Table:       make([][]domain.Tile, len(s.Table)),
		PoolCount:   len(s.Pool),
	}

	for _, p := range s.Players {
		snap.Players = append(snap.Players, RosterEntry{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			TileCount:   len(p.Rack),
			Host:        p.Host,
			You:         p.ID == playerID,
		})
		if p.ID == playerID {
			for _, id := range p.Rack {
				snap.Rack = append(snap.Rack, s.Tiles[id])
			}
		}
	}

	for i, row := range s.Table {
		resolved := make([]domain.Tile, len(row))
		for j, id := range row {
			resolved[j] = s.Tiles[id]
		}
		snap.Table[i] = resolved
	}

	return snap
}

// snapshotEvents produces one targeted game-state event per current
// room member.
func snapshotEvents(s *domain.GameSession) []Event {
	events := make([]Event, 0, len(s.Players))
	for _, p := range s.Players {
		events = append(events, Event{
			Kind:       EventGameState,
			Payload:    GameStatePayload{Snapshot: ProjectFor(s, p.ID)},
			Recipients: []string{p.ID},
		})
	}
	return events
}

// roster lists all players' public entries without a "you" marker, for
// room-wide payloads shared by every recipient.
func roster(s *domain.GameSession) []RosterEntry {
	out := make([]RosterEntry, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, RosterEntry{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			TileCount:   len(p.Rack),
			Host:        p.Host,
		})
	}
	return out
}
