// Package protocol defines the wire types spoken between game clients, the
// lobby server, and spawned game-server processes, together with their JSON
// encoding and the two stream framings used on the QUIC links.
package protocol

import (
	"fmt"

	"github.com/google/uuid"
)

// PlayerID identifies a connected player. Minted by the lobby server when a
// connection is accepted; encoded as a canonical hyphenated UUID.
type PlayerID struct {
	uuid.UUID
}

// NewPlayerID mints a fresh random player id.
func NewPlayerID() PlayerID {
	return PlayerID{uuid.New()}
}

// IsZero reports whether the id is the zero value (no player).
func (id PlayerID) IsZero() bool {
	return id.UUID == uuid.Nil
}

// LobbyID identifies a lobby. Minted on CreateLobby.
type LobbyID struct {
	uuid.UUID
}

// NewLobbyID mints a fresh random lobby id.
func NewLobbyID() LobbyID {
	return LobbyID{uuid.New()}
}

// IsZero reports whether the id is the zero value (no lobby).
func (id LobbyID) IsZero() bool {
	return id.UUID == uuid.Nil
}

// Team indexes a team within a lobby. Indices are contiguous from 0 up to the
// lobby's team count. Encoded as a JSON number (or a decimal string when used
// as a map key).
type Team int

// The first two teams have traditional names.
const (
	TeamRed  Team = 0
	TeamBlue Team = 1
)

func (t Team) String() string {
	switch t {
	case TeamRed:
		return "Red Team"
	case TeamBlue:
		return "Blue Team"
	default:
		return fmt.Sprintf("Team %d", int(t))
	}
}
