package protocol

import (
	"github.com/google/uuid"
)

// FromPlayer is a message sent by a game client to the lobby server.
type FromPlayer interface {
	fromPlayer()
}

// FromServer is a message sent by the lobby server to a game client.
type FromServer interface {
	fromServer()
}

// Client → server messages.

// InitialHandshake must be the first message on every new connection.
type InitialHandshake struct {
	Name string `json:"name"`
}

type CreateLobby struct{}

type JoinLobby struct {
	Lobby LobbyID
}

type LeaveLobby struct{}

// SwitchTeam moves Player to Team. Moving anyone but yourself requires
// lobby leadership.
type SwitchTeam struct {
	Player PlayerID
	Team   Team
}

// SwitchPlaces swaps the slots of two lobby members. Leader only.
type SwitchPlaces struct {
	A PlayerID
	B PlayerID
}

type GetLobbyInfo struct {
	Lobby LobbyID
}

type GetLobbyList struct{}

type GetPlayerInfo struct {
	Player PlayerID
}

type KickPlayer struct {
	Player PlayerID
}

type UpdateSettings struct {
	Settings LobbySettings
}

type EnterChampSelect struct{}

type SelectChampion struct {
	Champion string
}

type LockChampSelection struct{}

// StartGame is reserved; the server currently refuses it. Games start when
// every member locks a champion selection.
type StartGame struct{}

type Disconnecting struct{}

func (InitialHandshake) fromPlayer()   {}
func (CreateLobby) fromPlayer()        {}
func (JoinLobby) fromPlayer()          {}
func (LeaveLobby) fromPlayer()         {}
func (SwitchTeam) fromPlayer()         {}
func (SwitchPlaces) fromPlayer()       {}
func (GetLobbyInfo) fromPlayer()       {}
func (GetLobbyList) fromPlayer()       {}
func (GetPlayerInfo) fromPlayer()      {}
func (KickPlayer) fromPlayer()         {}
func (UpdateSettings) fromPlayer()     {}
func (EnterChampSelect) fromPlayer()   {}
func (SelectChampion) fromPlayer()     {}
func (LockChampSelection) fromPlayer() {}
func (StartGame) fromPlayer()          {}
func (Disconnecting) fromPlayer()      {}

// Server → client messages.

type InitialHandshakeResponse struct {
	ID PlayerID `json:"id"`
}

type YouJoinedLobby struct {
	Lobby LobbyID
}

type YouLeftLobby struct{}

type PlayerJoinedYourLobby struct {
	Player PlayerID
}

type PlayerLeftYourLobby struct {
	Player PlayerID
}

type PlayerSwitchedTeam struct {
	Player PlayerID
	Team   Team
}

type PlayersSwitched struct {
	A PlayerID
	B PlayerID
}

type LobbyInfo struct {
	Lobby LobbySnapshot
}

type LobbyList struct {
	Lobbies []LobbyShortInfo
}

// PlayerInfoReply answers GetPlayerInfo. Encoded with the "PlayerInfo" tag.
type PlayerInfoReply struct {
	Player PlayerInfo
}

type LobbyLeaderChanged struct {
	Leader PlayerID
}

// RequestRefused reports a failed validation guard; Reason is user-visible.
type RequestRefused struct {
	Reason string
}

type SettingsUpdated struct {
	Settings LobbySettings
}

type ChampSelectEntered struct{}

type PlayerSelectedChampion struct {
	Player   PlayerID
	Champion string
}

type ChampSelectionLocked struct {
	Player PlayerID
}

// GameStarted carries the opaque connect token minted by the game server for
// this player, forwarded verbatim.
type GameStarted struct {
	Token ConnectToken
}

type ServerShutdown struct{}

func (InitialHandshakeResponse) fromServer() {}
func (YouJoinedLobby) fromServer()           {}
func (YouLeftLobby) fromServer()             {}
func (PlayerJoinedYourLobby) fromServer()    {}
func (PlayerLeftYourLobby) fromServer()      {}
func (PlayerSwitchedTeam) fromServer()       {}
func (PlayersSwitched) fromServer()          {}
func (LobbyInfo) fromServer()                {}
func (LobbyList) fromServer()                {}
func (PlayerInfoReply) fromServer()          {}
func (LobbyLeaderChanged) fromServer()       {}
func (RequestRefused) fromServer()           {}
func (SettingsUpdated) fromServer()          {}
func (ChampSelectEntered) fromServer()       {}
func (PlayerSelectedChampion) fromServer()   {}
func (ChampSelectionLocked) fromServer()     {}
func (GameStarted) fromServer()              {}
func (ServerShutdown) fromServer()           {}

// Lobby to game-server bootstrap messages.

// ConnectToken is minted by the game-server process and forwarded to clients
// untouched. Rides JSON as base64.
type ConnectToken []byte

// LobbyInitialMessage is the first message the lobby sends to a freshly
// spawned game server.
type LobbyInitialMessage struct {
	Token   uuid.UUID                  `json:"token"`
	Players map[Team][]PlayerSelection `json:"players"`
}

// PlayerSelection pairs a lobby member with their locked champion.
type PlayerSelection struct {
	Player   PlayerInfo `json:"player"`
	Champion string     `json:"champion"`
}

// PlayerTokensGenerated is the game server's reply: one connect token per
// participating player.
type PlayerTokensGenerated struct {
	Players map[PlayerID]ConnectToken `json:"players"`
}

// Shared payload structs.

type PlayerInfo struct {
	ID   PlayerID `json:"id"`
	Name string   `json:"name"`
}

type LobbySettings struct {
	Name                 string `json:"name"`
	Map                  string `json:"map"`
	TeamCount            int    `json:"team_count"`
	PlayerLimitPerTeam   int    `json:"player_limit_per_team"`
	PlayersCanChangeTeam bool   `json:"players_can_change_team"`
	LobbyIsOpen          bool   `json:"lobby_is_open"`
}

type LobbyShortInfo struct {
	ID             LobbyID `json:"id"`
	Name           string  `json:"name"`
	PlayerCount    int     `json:"player_count"`
	MaxPlayerCount int     `json:"max_player_count"`
}

// LobbySnapshot is the full lobby view sent in LobbyInfo.
type LobbySnapshot struct {
	ID       LobbyID              `json:"id"`
	Settings LobbySettings        `json:"settings"`
	Leader   PlayerID             `json:"leader"`
	Players  map[Team][]PlayerID  `json:"players"`
	State    LobbyStateSnapshot   `json:"lobby_state"`
}

// ChampionSelection is one player's pick during champion select.
type ChampionSelection struct {
	Champion string `json:"champion"`
	Locked   bool   `json:"locked"`
}

// ChampSelectSnapshot mirrors the champion-select phase state.
type ChampSelectSnapshot struct {
	AvailableChamps []string                        `json:"available_champs"`
	SelectedChamps  map[PlayerID]*ChampionSelection `json:"selected_champs"`
}

// PhaseKind discriminates LobbyStateSnapshot.
type PhaseKind int

const (
	PhaseNormal PhaseKind = iota
	PhaseChampSelect
	PhaseInGame
)

// LobbyStateSnapshot is the tagged lifecycle phase carried in LobbySnapshot:
// "Normal", {"ChampSelect": {...}} or "InGame" on the wire.
type LobbyStateSnapshot struct {
	Kind        PhaseKind
	ChampSelect *ChampSelectSnapshot
}
