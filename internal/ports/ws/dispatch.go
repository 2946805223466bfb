package ws

import (
	"encoding/json"
	"errors"
	"sync"

	"rummikub/internal/app"
	"rummikub/internal/ports"

	"go.uber.org/zap"
)

// Dispatcher translates inbound wire messages into app operations and
// delivers the resulting events through the gateway. The connection id
// doubles as the acting player identity.
//
// Handling is serialized per room across the operation and the delivery
// of its broadcasts: an inbound event is processed to completion before
// the next event for the same room begins, so delivered frames never
// reorder against mutations.
type Dispatcher struct {
	svc *app.Service
	gw  ports.Gateway
	log *zap.Logger

	mu    sync.Mutex
	rooms map[string]*sync.Mutex
}

// NewDispatcher wires the app service to a gateway.
func NewDispatcher(svc *app.Service, gw ports.Gateway, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		svc:   svc,
		gw:    gw,
		log:   log,
		rooms: make(map[string]*sync.Mutex),
	}
}

// withRoom runs fn under the room's handling lock.
func (d *Dispatcher) withRoom(roomID string, fn func()) {
	d.mu.Lock()
	lock, ok := d.rooms[roomID]
	if !ok {
		lock = &sync.Mutex{}
		d.rooms[roomID] = lock
	}
	d.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	fn()
}

// forgetRoom drops a destroyed room's handling lock.
func (d *Dispatcher) forgetRoom(roomID string) {
	d.mu.Lock()
	delete(d.rooms, roomID)
	d.mu.Unlock()
}

// ConnectionOpened greets a new connection with its identity and the
// current lobby listing.
func (d *Dispatcher) ConnectionOpened(connID string) {
	d.sendTo(connID, OutMsg{T: MsgWelcome, P: WelcomePayload{PlayerID: connID}})
	d.sendTo(connID, d.roomsListMsg())
}

// HandleMessage decodes one inbound envelope, validates its payload and
// dispatches to the matching operation.
func (d *Dispatcher) HandleMessage(connID string, data []byte) {
	var in InMsg
	if err := json.Unmarshal(data, &in); err != nil {
		d.sendErr(connID, "", "bad-json", "invalid json")
		return
	}

	switch in.T {
	case MsgPing:
		d.sendTo(connID, OutMsg{T: MsgPong, ReqID: in.ReqID})

	case MsgCreateRoom:
		var p CreateRoomPayload
		if !d.decode(connID, &in, &p) {
			return
		}
		d.withRoom(p.RoomID, func() {
			events, err := d.svc.CreateRoom(p.RoomID, connID, p.Name)
			if err != nil {
				d.sendErr(connID, in.ReqID, errCode(err), err.Error())
				return
			}
			d.gw.AddToRoom(p.RoomID, connID)
			d.deliver(p.RoomID, events)
			d.broadcastRoomsList()
		})

	case MsgJoinRoom:
		var p JoinRoomPayload
		if !d.decode(connID, &in, &p) {
			return
		}
		d.withRoom(p.RoomID, func() {
			events, err := d.svc.JoinRoom(p.RoomID, connID, p.Name)
			if err != nil {
				d.sendErr(connID, in.ReqID, errCode(err), err.Error())
				return
			}
			d.gw.AddToRoom(p.RoomID, connID)
			d.deliver(p.RoomID, events)
			d.broadcastRoomsList()
		})

	case MsgMoveTile:
		var p MoveTilePayload
		if !d.decode(connID, &in, &p) {
			return
		}
		d.withRoom(p.RoomID, func() {
			events, err := d.svc.MoveTile(p.RoomID, connID, p.TileID, p.From, p.To, p.RowIndex)
			if err != nil {
				d.sendErr(connID, in.ReqID, errCode(err), err.Error())
				return
			}
			d.deliver(p.RoomID, events)
		})

	case MsgDrawTile:
		var p RoomPayload
		if !d.decode(connID, &in, &p) {
			return
		}
		d.withRoom(p.RoomID, func() {
			events, err := d.svc.DrawTile(p.RoomID, connID)
			if err != nil {
				d.sendErr(connID, in.ReqID, errCode(err), err.Error())
				return
			}
			d.deliver(p.RoomID, events)
		})

	case MsgEndTurn:
		var p RoomPayload
		if !d.decode(connID, &in, &p) {
			return
		}
		d.withRoom(p.RoomID, func() {
			events, err := d.svc.EndTurn(p.RoomID, connID)
			if err != nil {
				d.sendErr(connID, in.ReqID, errCode(err), err.Error())
				return
			}
			d.deliver(p.RoomID, events)
		})

	case MsgAddRow:
		var p RoomPayload
		if !d.decode(connID, &in, &p) {
			return
		}
		d.withRoom(p.RoomID, func() {
			d.deliver(p.RoomID, d.svc.AddRow(p.RoomID, connID))
		})

	case MsgValidateTable:
		var p RoomPayload
		if !d.decode(connID, &in, &p) {
			return
		}
		d.withRoom(p.RoomID, func() {
			d.deliver(p.RoomID, d.svc.ValidateTable(p.RoomID, connID))
		})

	case MsgListRooms:
		d.sendTo(connID, d.roomsListMsg())

	default:
		d.sendErr(connID, in.ReqID, "unknown-type", "unknown message type: "+in.T)
	}
}

// ConnectionClosed runs the disconnect flow under the room's handling
// lock: the player-left broadcast reaches the remaining members before
// the room group is dissolved and before any later event for the room.
func (d *Dispatcher) ConnectionClosed(connID string) {
	roomID, ok := d.svc.RoomOfPlayer(connID)
	if !ok {
		return
	}

	var destroyed bool
	d.withRoom(roomID, func() {
		id, events, gone := d.svc.Disconnect(connID)
		if id == "" {
			return
		}
		d.deliver(id, events)
		if gone {
			d.gw.DropRoom(id)
		}
		destroyed = gone
		d.broadcastRoomsList()
	})
	if destroyed {
		d.forgetRoom(roomID)
	}
}

// deliver marshals each event and sends it room-wide or to its targeted
// recipients. Delivery is fire-and-forget.
func (d *Dispatcher) deliver(roomID string, events []app.Event) {
	for _, ev := range events {
		frame, err := json.Marshal(OutMsg{T: string(ev.Kind), P: ev.Payload})
		if err != nil {
			d.log.Error("marshal event failed",
				zap.String("kind", string(ev.Kind)),
				zap.Error(err))
			continue
		}
		if len(ev.Recipients) == 0 {
			d.gw.SendToRoom(roomID, frame)
			continue
		}
		for _, id := range ev.Recipients {
			d.gw.SendToConn(id, frame)
		}
	}
}

// decode unmarshals and validates an inbound payload, reporting failure
// to the sender.
func (d *Dispatcher) decode(connID string, in *InMsg, p interface{ Validate() error }) bool {
	if len(in.P) > 0 {
		if err := json.Unmarshal(in.P, p); err != nil {
			d.sendErr(connID, in.ReqID, "bad-payload", "invalid payload")
			return false
		}
	}
	if err := p.Validate(); err != nil {
		d.sendErr(connID, in.ReqID, "bad-payload", err.Error())
		return false
	}
	return true
}

func (d *Dispatcher) roomsListMsg() OutMsg {
	return OutMsg{T: MsgRoomsList, P: map[string]any{"rooms": d.svc.ListRooms()}}
}

func (d *Dispatcher) broadcastRoomsList() {
	frame, err := json.Marshal(d.roomsListMsg())
	if err != nil {
		d.log.Error("marshal rooms list failed", zap.Error(err))
		return
	}
	d.gw.SendToLobby(frame)
}

func (d *Dispatcher) sendTo(connID string, out OutMsg) {
	frame, err := json.Marshal(out)
	if err != nil {
		d.log.Error("marshal message failed", zap.String("t", out.T), zap.Error(err))
		return
	}
	d.gw.SendToConn(connID, frame)
}

func (d *Dispatcher) sendErr(connID, reqID, code, msg string) {
	d.sendTo(connID, OutMsg{T: MsgError, ReqID: reqID, P: ErrPayload{Code: code, Msg: msg}})
}

// errCode maps app errors to stable wire codes.
func errCode(err error) string {
	switch {
	case errors.Is(err, app.ErrRoomNotFound):
		return "room-not-found"
	case errors.Is(err, app.ErrRoomFull):
		return "room-full"
	case errors.Is(err, app.ErrGameNotInPlay):
		return "game-not-in-play"
	case errors.Is(err, app.ErrNotYourTurn):
		return "not-your-turn"
	case errors.Is(err, app.ErrEmptyPool):
		return "empty-pool"
	default:
		return "rejected"
	}
}
