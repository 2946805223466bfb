package domain

import "time"

// State is the lifecycle stage of a game session.
type State string

const (
	// StateWaiting is the pre-game state with a single player.
	StateWaiting State = "waiting"
	// StatePlaying is the active game state.
	StatePlaying State = "playing"
	// StateFinished is reachable in the model but never produced; no win
	// condition is implemented.
	StateFinished State = "finished"
)

// Zone is a tile's current ownership location. A tile is in exactly one
// zone at any time.
type Zone string

const (
	ZoneRack  Zone = "rack"
	ZoneTable Zone = "table"
	ZonePool  Zone = "pool"
)

// MaxPlayers is the fixed session capacity.
const MaxPlayers = 2

// RackDealSize is the number of tiles dealt to each joining player.
const RackDealSize = 14

// Player holds state for one participant in a session.
type Player struct {
	ID          string
	DisplayName string
	Rack        []TileID // unordered membership
	Host        bool     // true only for the session's first player
}

// GameSession is the full authoritative state of one room.
type GameSession struct {
	RoomID  string
	Players []*Player // join order, at most MaxPlayers
	Pool    []TileID  // draws pop from the tail
	Tiles   TileRegistry
	Table   [][]TileID // ordered rows; created on demand, never pruned
	State   State

	CurrentTurn   string // player id, valid only while playing
	TurnStartedAt time.Time
}

// NewGameSession builds a session around an already-shuffled pool.
func NewGameSession(roomID string, tiles []Tile, pool []TileID) *GameSession {
	return &GameSession{
		RoomID: roomID,
		Pool:   pool,
		Tiles:  NewTileRegistry(tiles),
		State:  StateWaiting,
	}
}

// FindPlayer returns the player with the given id, or nil.
func (s *GameSession) FindPlayer(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Opponent returns the other player, or nil if there is none.
func (s *GameSession) Opponent(id string) *Player {
	for _, p := range s.Players {
		if p.ID != id {
			return p
		}
	}
	return nil
}

// Deal moves up to count tiles from the pool's draw end to the player's
// rack, stopping early without error when the pool empties. It returns
// the number of tiles actually dealt.
func (s *GameSession) Deal(playerID string, count int) int {
	p := s.FindPlayer(playerID)
	if p == nil {
		return 0
	}
	dealt := 0
	for dealt < count && len(s.Pool) > 0 {
		p.Rack = append(p.Rack, s.Pool[len(s.Pool)-1])
		s.Pool = s.Pool[:len(s.Pool)-1]
		dealt++
	}
	return dealt
}

// EnsureRow appends empty rows until rowIndex exists.
func (s *GameSession) EnsureRow(rowIndex int) {
	for len(s.Table) <= rowIndex {
		s.Table = append(s.Table, nil)
	}
}

// FindTableRow scans rows in ascending index order for the first row
// containing the tile. Identities are unique across the table, so
// first-match is the only match.
func (s *GameSession) FindTableRow(id TileID) (int, bool) {
	for i, row := range s.Table {
		for _, t := range row {
			if t == id {
				return i, true
			}
		}
	}
	return 0, false
}

// RemoveTileID removes one occurrence of id from ids, reporting whether
// it was present.
func RemoveTileID(ids []TileID, id TileID) ([]TileID, bool) {
	for i := range ids {
		if ids[i] == id {
			return append(ids[:i], ids[i+1:]...), true
		}
	}
	return ids, false
}
