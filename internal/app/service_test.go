package app

import (
	"errors"
	"math/rand"
	"testing"

	"rummikub/internal/domain"
)

func newTestService() *Service {
	return NewService(NewRoomRegistry(), rand.New(rand.NewSource(42)))
}

func mustSession(t *testing.T, s *Service, roomID string) *domain.GameSession {
	t.Helper()
	room, ok := s.rooms.Get(roomID)
	if !ok {
		t.Fatalf("room %s not found", roomID)
	}
	return room.Session
}

// tileCensus counts every tile id across racks, pool and table rows.
func tileCensus(s *domain.GameSession) map[domain.TileID]int {
	census := make(map[domain.TileID]int, domain.TileCount)
	for _, p := range s.Players {
		for _, id := range p.Rack {
			census[id]++
		}
	}
	for _, id := range s.Pool {
		census[id]++
	}
	for _, row := range s.Table {
		for _, id := range row {
			census[id]++
		}
	}
	return census
}

func assertConservation(t *testing.T, s *domain.GameSession) {
	t.Helper()
	census := tileCensus(s)
	if len(census) != domain.TileCount {
		t.Fatalf("distinct tile ids = %d, want %d", len(census), domain.TileCount)
	}
	for id, n := range census {
		if n != 1 {
			t.Fatalf("tile %d appears %d times", id, n)
		}
	}
}

func TestCreateRoomDealsOpeningRack(t *testing.T) {
	svc := newTestService()

	events, err := svc.CreateRoom("R1", "alice", "Alice")
	if err != nil {
		t.Fatalf("create room error: %v", err)
	}

	session := mustSession(t, svc, "R1")
	if session.State != domain.StateWaiting {
		t.Fatalf("state = %s, want waiting", session.State)
	}
	if len(session.Players) != 1 {
		t.Fatalf("players = %d, want 1", len(session.Players))
	}
	host := session.Players[0]
	if !host.Host || host.DisplayName != "Alice" {
		t.Fatalf("host = %+v", host)
	}
	if len(host.Rack) != 14 {
		t.Fatalf("rack size = %d, want 14", len(host.Rack))
	}
	if len(session.Pool) != 92 {
		t.Fatalf("pool size = %d, want 92", len(session.Pool))
	}
	assertConservation(t, session)

	if len(events) != 1 || events[0].Kind != EventRoomCreated {
		t.Fatalf("events = %+v, want one room-created", events)
	}
	snap := events[0].Payload.(RoomCreatedPayload).Snapshot
	if len(snap.Rack) != 14 || snap.PoolCount != 92 {
		t.Fatalf("snapshot rack=%d pool=%d", len(snap.Rack), snap.PoolCount)
	}
}

func TestCreateRoomReplacesExistingID(t *testing.T) {
	svc := newTestService()
	if _, err := svc.CreateRoom("R1", "alice", ""); err != nil {
		t.Fatalf("create room error: %v", err)
	}
	if _, err := svc.CreateRoom("R1", "bob", ""); err != nil {
		t.Fatalf("create room error: %v", err)
	}

	session := mustSession(t, svc, "R1")
	if len(session.Players) != 1 || session.Players[0].ID != "bob" {
		t.Fatalf("players = %+v, want just bob", session.Players)
	}
}

func TestJoinRoomStartsPlay(t *testing.T) {
	svc := newTestService()
	if _, err := svc.CreateRoom("R1", "alice", "Alice"); err != nil {
		t.Fatalf("create room error: %v", err)
	}

	events, err := svc.JoinRoom("R1", "bob", "Bob")
	if err != nil {
		t.Fatalf("join room error: %v", err)
	}

	session := mustSession(t, svc, "R1")
	if session.State != domain.StatePlaying {
		t.Fatalf("state = %s, want playing", session.State)
	}
	if session.CurrentTurn != "alice" {
		t.Fatalf("current turn = %s, want alice", session.CurrentTurn)
	}
	if got := len(session.FindPlayer("bob").Rack); got != 14 {
		t.Fatalf("joiner rack = %d, want 14", got)
	}
	if len(session.Pool) != 78 {
		t.Fatalf("pool size = %d, want 78", len(session.Pool))
	}
	assertConservation(t, session)

	kinds := make(map[EventKind]int)
	for _, ev := range events {
		kinds[ev.Kind]++
	}
	if kinds[EventRoomJoined] != 1 || kinds[EventPlayerJoined] != 1 || kinds[EventGameState] != 2 {
		t.Fatalf("event kinds = %v", kinds)
	}
}

func TestJoinRoomErrors(t *testing.T) {
	svc := newTestService()

	if _, err := svc.JoinRoom("missing", "bob", ""); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("join missing room error = %v, want ErrRoomNotFound", err)
	}

	if _, err := svc.CreateRoom("R1", "alice", ""); err != nil {
		t.Fatalf("create room error: %v", err)
	}
	if _, err := svc.JoinRoom("R1", "bob", ""); err != nil {
		t.Fatalf("join room error: %v", err)
	}
	if _, err := svc.JoinRoom("R1", "carol", ""); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("third join error = %v, want ErrRoomFull", err)
	}
}

func TestMoveRejectedOffTurn(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")
	session := mustSession(t, svc, "R1")

	tileID := session.FindPlayer("bob").Rack[0]
	events, err := svc.MoveTile("R1", "bob", tileID, domain.ZoneRack, domain.ZoneTable, 0)
	if !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("off-turn move error = %v, want ErrNotYourTurn", err)
	}
	if events != nil {
		t.Fatalf("off-turn move produced events: %+v", events)
	}
	if len(session.FindPlayer("bob").Rack) != 14 || len(session.Table) != 0 {
		t.Fatalf("off-turn move mutated state")
	}
}

func TestMoveRejectedBeforePlay(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	session := mustSession(t, svc, "R1")

	tileID := session.Players[0].Rack[0]
	if _, err := svc.MoveTile("R1", "alice", tileID, domain.ZoneRack, domain.ZoneTable, 0); !errors.Is(err, ErrGameNotInPlay) {
		t.Fatalf("waiting-state move error = %v, want ErrGameNotInPlay", err)
	}
	if _, err := svc.MoveTile("nowhere", "alice", tileID, domain.ZoneRack, domain.ZoneTable, 0); !errors.Is(err, ErrGameNotInPlay) {
		t.Fatalf("unknown-room move error = %v, want ErrGameNotInPlay", err)
	}
}

func TestMoveRackToTableRoundTrip(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")
	session := mustSession(t, svc, "R1")

	host := session.FindPlayer("alice")
	original := make(map[domain.TileID]bool, len(host.Rack))
	for _, id := range host.Rack {
		original[id] = true
	}
	tileID := host.Rack[5]

	events, err := svc.MoveTile("R1", "alice", tileID, domain.ZoneRack, domain.ZoneTable, 0)
	if err != nil {
		t.Fatalf("rack->table error: %v", err)
	}
	if len(session.Table) != 1 || len(session.Table[0]) != 1 || session.Table[0][0] != tileID {
		t.Fatalf("table = %v after rack->table", session.Table)
	}
	moved := events[0].Payload.(TileMovedPayload)
	if moved.TileID != tileID || moved.Tile.ID != tileID || moved.SourceRowIndex != nil {
		t.Fatalf("tile-moved payload = %+v", moved)
	}
	assertConservation(t, session)

	events, err = svc.MoveTile("R1", "alice", tileID, domain.ZoneTable, domain.ZoneRack, 0)
	if err != nil {
		t.Fatalf("table->rack error: %v", err)
	}
	moved = events[0].Payload.(TileMovedPayload)
	if moved.SourceRowIndex == nil || *moved.SourceRowIndex != 0 {
		t.Fatalf("tile-moved payload lacks source row: %+v", moved)
	}

	// The rack holds exactly its original membership again and the
	// emptied row stays in place.
	if len(host.Rack) != 14 {
		t.Fatalf("rack size = %d after round trip, want 14", len(host.Rack))
	}
	for _, id := range host.Rack {
		if !original[id] {
			t.Fatalf("rack gained foreign tile %d", id)
		}
	}
	if len(session.Table) != 1 || len(session.Table[0]) != 0 {
		t.Fatalf("table = %v after round trip, want one empty row", session.Table)
	}
	assertConservation(t, session)
}

func TestMoveTableToTable(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")
	session := mustSession(t, svc, "R1")

	tileID := session.FindPlayer("alice").Rack[0]
	if _, err := svc.MoveTile("R1", "alice", tileID, domain.ZoneRack, domain.ZoneTable, 0); err != nil {
		t.Fatalf("rack->table error: %v", err)
	}

	events, err := svc.MoveTile("R1", "alice", tileID, domain.ZoneTable, domain.ZoneTable, 2)
	if err != nil {
		t.Fatalf("table->table error: %v", err)
	}
	if len(session.Table) != 3 {
		t.Fatalf("row count = %d, want 3", len(session.Table))
	}
	if len(session.Table[0]) != 0 || len(session.Table[2]) != 1 {
		t.Fatalf("table = %v", session.Table)
	}
	moved := events[0].Payload.(TileMovedPayload)
	if moved.SourceRowIndex == nil || *moved.SourceRowIndex != 0 || moved.RowIndex != 2 {
		t.Fatalf("tile-moved payload = %+v", moved)
	}
	assertConservation(t, session)
}

func TestMoveMissingTileIsSilent(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")
	session := mustSession(t, svc, "R1")

	// A tile the host does not hold: take one from the joiner's rack.
	foreign := session.FindPlayer("bob").Rack[0]
	events, err := svc.MoveTile("R1", "alice", foreign, domain.ZoneRack, domain.ZoneTable, 0)
	if err != nil || events != nil {
		t.Fatalf("missing-tile move = (%+v, %v), want silent no-op", events, err)
	}
	if len(session.Table) != 0 {
		t.Fatalf("silent no-op mutated the table: %v", session.Table)
	}

	// Same for a tile that is not on the table.
	events, err = svc.MoveTile("R1", "alice", foreign, domain.ZoneTable, domain.ZoneRack, 0)
	if err != nil || events != nil {
		t.Fatalf("missing-table-tile move = (%+v, %v), want silent no-op", events, err)
	}
}

func TestDrawEndsTurn(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")
	session := mustSession(t, svc, "R1")

	events, err := svc.DrawTile("R1", "alice")
	if err != nil {
		t.Fatalf("draw error: %v", err)
	}
	if got := len(session.FindPlayer("alice").Rack); got != 15 {
		t.Fatalf("rack size = %d after draw, want 15", got)
	}
	if len(session.Pool) != 77 {
		t.Fatalf("pool size = %d, want 77", len(session.Pool))
	}
	if session.CurrentTurn != "bob" {
		t.Fatalf("current turn = %s after draw, want bob", session.CurrentTurn)
	}
	drawn := events[0].Payload.(TileDrawnPayload)
	if drawn.PlayerID != "alice" || drawn.PoolCount != 77 {
		t.Fatalf("tile-drawn payload = %+v", drawn)
	}
	assertConservation(t, session)
}

func TestDrawFromEmptyPool(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")
	session := mustSession(t, svc, "R1")

	// Park the pool on the host's rack to empty it without breaking
	// conservation.
	host := session.FindPlayer("alice")
	host.Rack = append(host.Rack, session.Pool...)
	session.Pool = nil

	events, err := svc.DrawTile("R1", "alice")
	if !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("empty-pool draw error = %v, want ErrEmptyPool", err)
	}
	if events != nil {
		t.Fatalf("empty-pool draw produced events: %+v", events)
	}
	if session.CurrentTurn != "alice" {
		t.Fatalf("current turn changed on rejected draw")
	}
	assertConservation(t, session)
}

func TestEndTurnSwaps(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")
	session := mustSession(t, svc, "R1")

	events, err := svc.EndTurn("R1", "alice")
	if err != nil {
		t.Fatalf("end turn error: %v", err)
	}
	if session.CurrentTurn != "bob" {
		t.Fatalf("current turn = %s, want bob", session.CurrentTurn)
	}
	ended := events[0].Payload.(TurnEndedPayload)
	if ended.NewTurn != "bob" {
		t.Fatalf("turn-ended payload = %+v", ended)
	}

	if _, err := svc.EndTurn("R1", "alice"); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("double end-turn error = %v, want ErrNotYourTurn", err)
	}
}

func TestAddRowIgnoresTurn(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")
	session := mustSession(t, svc, "R1")

	// bob is not on turn; add-row is exempt from turn enforcement.
	events := svc.AddRow("R1", "bob")
	if len(session.Table) != 1 {
		t.Fatalf("row count = %d, want 1", len(session.Table))
	}
	added := events[0].Payload.(RowAddedPayload)
	if added.RowCount != 1 {
		t.Fatalf("row-added payload = %+v", added)
	}

	// Unknown rooms are ignored for exempt operations.
	if events := svc.AddRow("nowhere", "bob"); events != nil {
		t.Fatalf("unknown-room add row = %+v, want silent no-op", events)
	}
}

func TestValidateTableAlwaysValid(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")
	session := mustSession(t, svc, "R1")

	tileID := session.FindPlayer("alice").Rack[0]
	_, _ = svc.MoveTile("R1", "alice", tileID, domain.ZoneRack, domain.ZoneTable, 0)

	events := svc.ValidateTable("R1", "bob")
	validated := events[0].Payload.(TableValidatedPayload)
	if !validated.Valid {
		t.Fatalf("stubbed validation reported invalid")
	}
	if len(validated.Rows) != 1 || validated.Rows[0][0] != tileID {
		t.Fatalf("validated rows = %v", validated.Rows)
	}

	if events := svc.ValidateTable("nowhere", "bob"); events != nil {
		t.Fatalf("unknown-room validate = %+v, want silent no-op", events)
	}
}

func TestDisconnectHostDestroysSession(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")

	roomID, events, destroyed := svc.Disconnect("alice")
	if roomID != "R1" || !destroyed {
		t.Fatalf("disconnect = (%s, %v), want R1 destroyed", roomID, destroyed)
	}
	if len(events) != 1 || events[0].Kind != EventPlayerLeft {
		t.Fatalf("events = %+v, want one player-left", events)
	}

	// The room is gone for good; it is never silently revived.
	if _, err := svc.JoinRoom("R1", "carol", ""); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("join after destroy error = %v, want ErrRoomNotFound", err)
	}
}

func TestDisconnectGuestKeepsSession(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")
	session := mustSession(t, svc, "R1")
	_, _ = svc.EndTurn("R1", "alice") // turn now on bob

	roomID, _, destroyed := svc.Disconnect("bob")
	if roomID != "R1" || destroyed {
		t.Fatalf("guest disconnect = (%s, %v), want R1 kept", roomID, destroyed)
	}
	if len(session.Players) != 1 || session.Players[0].ID != "alice" {
		t.Fatalf("players = %+v, want just alice", session.Players)
	}
	// The stale turn pointer is left as-is; no recovery is attempted.
	if session.CurrentTurn != "bob" {
		t.Fatalf("current turn = %s, want stale bob", session.CurrentTurn)
	}
}

func TestDisconnectUnknownPlayer(t *testing.T) {
	svc := newTestService()
	roomID, events, destroyed := svc.Disconnect("ghost")
	if roomID != "" || events != nil || destroyed {
		t.Fatalf("unknown disconnect = (%s, %+v, %v)", roomID, events, destroyed)
	}
}

func TestDisconnectMarksRoomClosed(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")
	room, _ := svc.rooms.Get("R1")

	svc.Disconnect("alice")

	room.mu.Lock()
	closed := room.closed
	room.mu.Unlock()
	if !closed {
		t.Fatalf("destroyed room not marked closed")
	}
}

// A caller may fetch a room and only lock it after the session was
// destroyed. The closed flag makes every operation treat such a room as
// unknown instead of mutating the orphan.
func TestClosedRoomBehavesAsDestroyed(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")
	_, _ = svc.JoinRoom("R1", "bob", "")
	room, _ := svc.rooms.Get("R1")
	tileID := room.Session.FindPlayer("alice").Rack[0]

	room.mu.Lock()
	room.closed = true
	room.mu.Unlock()

	if _, err := svc.JoinRoom("R1", "carol", ""); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("join closed room error = %v, want ErrRoomNotFound", err)
	}
	if _, err := svc.MoveTile("R1", "alice", tileID, domain.ZoneRack, domain.ZoneTable, 0); !errors.Is(err, ErrGameNotInPlay) {
		t.Fatalf("move in closed room error = %v, want ErrGameNotInPlay", err)
	}
	if _, err := svc.DrawTile("R1", "alice"); !errors.Is(err, ErrGameNotInPlay) {
		t.Fatalf("draw in closed room error = %v, want ErrGameNotInPlay", err)
	}
	if _, err := svc.EndTurn("R1", "alice"); !errors.Is(err, ErrGameNotInPlay) {
		t.Fatalf("end turn in closed room error = %v, want ErrGameNotInPlay", err)
	}
	if events := svc.AddRow("R1", "alice"); events != nil {
		t.Fatalf("add row in closed room = %+v, want silent no-op", events)
	}
	if events := svc.ValidateTable("R1", "alice"); events != nil {
		t.Fatalf("validate in closed room = %+v, want silent no-op", events)
	}
	if roomID, events, destroyed := svc.Disconnect("alice"); roomID != "" || events != nil || destroyed {
		t.Fatalf("disconnect in closed room = (%s, %+v, %v), want no-op", roomID, events, destroyed)
	}

	if len(room.Session.Players) != 2 || len(room.Session.Table) != 0 {
		t.Fatalf("closed room was mutated")
	}
}

func TestDisconnectSolePlayerDestroysSession(t *testing.T) {
	svc := newTestService()
	_, _ = svc.CreateRoom("R1", "alice", "")

	_, _, destroyed := svc.Disconnect("alice")
	if !destroyed {
		t.Fatalf("sole-player disconnect should destroy the session")
	}
	if _, ok := svc.rooms.Get("R1"); ok {
		t.Fatalf("room survived sole-player disconnect")
	}
}
