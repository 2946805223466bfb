package app

import (
	"errors"
	"math/rand"
	"time"

	"rummikub/internal/domain"
)

// Service contains the game use-cases operating on registry state.
// Each operation mutates one session under its room lock and returns
// the events to deliver, including one snapshot per room member.
type Service struct {
	rng   *rand.Rand
	rooms *RoomRegistry
}

// NewService constructs a Service with the provided rng or a
// time-seeded default.
func NewService(rooms *RoomRegistry, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng, rooms: rooms}
}

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrGameNotInPlay = errors.New("game not in play")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrEmptyPool     = errors.New("tile pool is empty")
)

// CreateRoom builds a session with a freshly shuffled deck, deals the
// creator's opening rack and stores the session. Creating over an
// existing room id replaces the old session.
func (s *Service) CreateRoom(roomID, playerID, displayName string) ([]Event, error) {
	tiles := domain.NewTileSet()
	pool := domain.TileIDs(tiles)
	domain.ShuffleTileIDs(pool, s.rng)

	session := domain.NewGameSession(roomID, tiles, pool)
	session.Players = append(session.Players, &domain.Player{
		ID:          playerID,
		DisplayName: nameOrID(displayName, playerID),
		Host:        true,
	})
	session.Deal(playerID, domain.RackDealSize)
	s.rooms.Put(session)

	return []Event{{
		Kind:       EventRoomCreated,
		Payload:    RoomCreatedPayload{Snapshot: ProjectFor(session, playerID)},
		Recipients: []string{playerID},
	}}, nil
}

// JoinRoom adds a player to an existing session and deals their rack.
// The second join flips the session to playing with the turn on the
// host.
func (s *Service) JoinRoom(roomID, playerID, displayName string) ([]Event, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return nil, ErrRoomNotFound
	}

	session := room.Session
	if len(session.Players) >= domain.MaxPlayers {
		return nil, ErrRoomFull
	}

	session.Players = append(session.Players, &domain.Player{
		ID:          playerID,
		DisplayName: nameOrID(displayName, playerID),
	})
	session.Deal(playerID, domain.RackDealSize)

	if len(session.Players) == domain.MaxPlayers {
		session.State = domain.StatePlaying
		session.CurrentTurn = session.Players[0].ID
		session.TurnStartedAt = time.Now()
	}

	events := []Event{
		{
			Kind:       EventRoomJoined,
			Payload:    RoomJoinedPayload{Snapshot: ProjectFor(session, playerID)},
			Recipients: []string{playerID},
		},
		{
			Kind:    EventPlayerJoined,
			Payload: PlayerJoinedPayload{Roster: roster(session), State: session.State},
		},
	}
	return append(events, snapshotEvents(session)...), nil
}

// MoveTile transfers one tile between the rack and table zones. A tile
// absent from its claimed source zone is a silent no-op: no error, no
// events, no state change.
func (s *Service) MoveTile(roomID, playerID string, tileID domain.TileID, from, to domain.Zone, rowIndex int) ([]Event, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, ErrGameNotInPlay
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return nil, ErrGameNotInPlay
	}

	session := room.Session
	if err := checkTurn(session, playerID); err != nil {
		return nil, err
	}

	moved := TileMovedPayload{
		TileID:   tileID,
		From:     from,
		To:       to,
		RowIndex: rowIndex,
		PlayerID: playerID,
	}

	switch {
	case from == domain.ZoneRack && to == domain.ZoneTable:
		p := session.FindPlayer(playerID)
		rack, found := domain.RemoveTileID(p.Rack, tileID)
		if !found {
			return nil, nil
		}
		p.Rack = rack
		session.EnsureRow(rowIndex)
		session.Table[rowIndex] = append(session.Table[rowIndex], tileID)

	case from == domain.ZoneTable && to == domain.ZoneRack:
		src, found := session.FindTableRow(tileID)
		if !found {
			return nil, nil
		}
		session.Table[src], _ = domain.RemoveTileID(session.Table[src], tileID)
		p := session.FindPlayer(playerID)
		p.Rack = append(p.Rack, tileID)
		moved.SourceRowIndex = &src

	case from == domain.ZoneTable && to == domain.ZoneTable:
		src, found := session.FindTableRow(tileID)
		if !found {
			return nil, nil
		}
		session.Table[src], _ = domain.RemoveTileID(session.Table[src], tileID)
		session.EnsureRow(rowIndex)
		session.Table[rowIndex] = append(session.Table[rowIndex], tileID)
		moved.SourceRowIndex = &src

	default:
		// The pool is never a move target; unknown zone pairs are ignored.
		return nil, nil
	}

	moved.Tile = session.Tiles[tileID]
	events := []Event{{Kind: EventTileMoved, Payload: moved}}
	return append(events, snapshotEvents(session)...), nil
}

// DrawTile pops one tile from the pool into the acting player's rack.
// Drawing ends the turn.
func (s *Service) DrawTile(roomID, playerID string) ([]Event, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, ErrGameNotInPlay
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return nil, ErrGameNotInPlay
	}

	session := room.Session
	if err := checkTurn(session, playerID); err != nil {
		return nil, err
	}
	if len(session.Pool) == 0 {
		return nil, ErrEmptyPool
	}

	session.Deal(playerID, 1)
	passTurn(session)

	events := []Event{{
		Kind:    EventTileDrawn,
		Payload: TileDrawnPayload{PlayerID: playerID, PoolCount: len(session.Pool)},
	}}
	return append(events, snapshotEvents(session)...), nil
}

// EndTurn hands the turn to the other player.
func (s *Service) EndTurn(roomID, playerID string) ([]Event, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, ErrGameNotInPlay
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return nil, ErrGameNotInPlay
	}

	session := room.Session
	if err := checkTurn(session, playerID); err != nil {
		return nil, err
	}
	passTurn(session)

	events := []Event{{
		Kind:    EventTurnEnded,
		Payload: TurnEndedPayload{NewTurn: session.CurrentTurn},
	}}
	return append(events, snapshotEvents(session)...), nil
}

// AddRow appends an empty table row. The operation is not turn-checked:
// any room participant may invoke it, and an unknown room is ignored.
// It cannot fail, so it returns only the events.
func (s *Service) AddRow(roomID, playerID string) []Event {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return nil
	}

	session := room.Session
	session.Table = append(session.Table, nil)

	events := []Event{{
		Kind:    EventRowAdded,
		Payload: RowAddedPayload{RowCount: len(session.Table)},
	}}
	return append(events, snapshotEvents(session)...)
}

// ValidateTable reports placement legality for the current table.
// Validation is stubbed: every arrangement is reported valid. Like
// AddRow it is not turn-checked, ignores unknown rooms and cannot fail.
func (s *Service) ValidateTable(roomID, playerID string) []Event {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return nil
	}

	session := room.Session
	rows := make([][]domain.TileID, len(session.Table))
	for i, row := range session.Table {
		rows[i] = append([]domain.TileID(nil), row...)
	}

	return []Event{{
		Kind:    EventTableValidated,
		Payload: TableValidatedPayload{Valid: true, Rows: rows},
	}}
}

// Disconnect handles a closed connection. It returns the affected room
// id, the events to deliver to the remaining members, and whether the
// session was destroyed (host left, or the sole player left).
func (s *Service) Disconnect(playerID string) (string, []Event, bool) {
	room, ok := s.rooms.FindByPlayer(playerID)
	if !ok {
		return "", nil, false
	}
	room.mu.Lock()
	if room.closed {
		room.mu.Unlock()
		return "", nil, false
	}

	session := room.Session
	roomID := session.RoomID
	p := session.FindPlayer(playerID)
	events := []Event{{
		Kind:    EventPlayerLeft,
		Payload: PlayerLeftPayload{PlayerID: playerID},
	}}

	if p.Host || len(session.Players) == 1 {
		// Tombstone before the registry delete: a joiner that fetched
		// this room already must find it closed once it gets the lock.
		room.closed = true
		room.mu.Unlock()
		s.rooms.Destroy(roomID)
		return roomID, events, true
	}

	// Remove just this player. CurrentTurn may now point at the departed
	// identity; no recovery event is emitted.
	for i, pl := range session.Players {
		if pl.ID == playerID {
			session.Players = append(session.Players[:i], session.Players[i+1:]...)
			break
		}
	}
	room.mu.Unlock()
	return roomID, events, false
}

// ListRooms returns the public lobby listing.
func (s *Service) ListRooms() []RoomSummary {
	return s.rooms.List()
}

// RoomOfPlayer reports the room currently holding a player.
func (s *Service) RoomOfPlayer(playerID string) (string, bool) {
	room, ok := s.rooms.FindByPlayer(playerID)
	if !ok {
		return "", false
	}
	return room.Session.RoomID, true
}

// checkTurn gates the mutating actions: the session must be playing and
// the actor must own the turn. No state changes on rejection.
func checkTurn(session *domain.GameSession, playerID string) error {
	if session.State != domain.StatePlaying {
		return ErrGameNotInPlay
	}
	if session.CurrentTurn != playerID {
		return ErrNotYourTurn
	}
	return nil
}

// passTurn hands the turn to the other player, if one is present.
func passTurn(session *domain.GameSession) {
	if opp := session.Opponent(session.CurrentTurn); opp != nil {
		session.CurrentTurn = opp.ID
	}
	session.TurnStartedAt = time.Now()
}

func nameOrID(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
