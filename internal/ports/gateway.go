package ports

// Gateway is the connection/group-messaging collaborator. It maps
// connections to stable identities, groups them by room, and delivers
// frames fire-and-forget: no acknowledgment, no retry, and sends to an
// already-closed connection are dropped.
type Gateway interface {
	// AddToRoom moves a connection from the lobby into a room group.
	AddToRoom(roomID, connID string)

	// RemoveFromRoom returns a connection to the lobby.
	RemoveFromRoom(roomID, connID string)

	// DropRoom dissolves a room group, returning members to the lobby.
	DropRoom(roomID string)

	// SendToConn delivers one frame to a single connection.
	SendToConn(connID string, frame []byte)

	// SendToRoom delivers one frame to every member of a room group.
	SendToRoom(roomID string, frame []byte)

	// SendToLobby delivers one frame to every connection not in a room.
	SendToLobby(frame []byte)
}
