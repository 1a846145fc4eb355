package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Messages are externally tagged: a unit variant is a bare JSON string
// ("CreateLobby"), anything else a single-key object whose key is the tag.
// Tuple-shaped variants carry a two-element array.

func tagUnit(tag string) ([]byte, error) {
	return json.Marshal(tag)
}

func tagValue(tag string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]json.RawMessage{tag: raw})
}

func tagTuple(tag string, vs ...any) ([]byte, error) {
	parts := make([]json.RawMessage, len(vs))
	for i, v := range vs {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		parts[i] = raw
	}
	return tagValue(tag, parts)
}

// splitTag separates a tagged message into its tag and payload. The payload
// is nil for unit variants.
func splitTag(data []byte) (string, json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", nil, fmt.Errorf("empty message")
	}
	if trimmed[0] == '"' {
		var tag string
		if err := json.Unmarshal(trimmed, &tag); err != nil {
			return "", nil, err
		}
		return tag, nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return "", nil, err
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("expected exactly one message tag, got %d", len(obj))
	}
	for tag, payload := range obj {
		return tag, payload, nil
	}
	panic("unreachable")
}

func decodeTuple(payload json.RawMessage, outs ...any) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(payload, &parts); err != nil {
		return err
	}
	if len(parts) != len(outs) {
		return fmt.Errorf("expected %d tuple elements, got %d", len(outs), len(parts))
	}
	for i, out := range outs {
		if err := json.Unmarshal(parts[i], out); err != nil {
			return err
		}
	}
	return nil
}

func decodeValue[T any](payload json.RawMessage) (T, error) {
	var v T
	if payload == nil {
		return v, fmt.Errorf("missing message payload")
	}
	err := json.Unmarshal(payload, &v)
	return v, err
}

// DecodeFromPlayer parses one client → server message.
func DecodeFromPlayer(data []byte) (FromPlayer, error) {
	tag, payload, err := splitTag(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "InitialHandshake":
		v, err := decodeValue[InitialHandshake](payload)
		return v, err
	case "CreateLobby":
		return CreateLobby{}, nil
	case "JoinLobby":
		id, err := decodeValue[LobbyID](payload)
		return JoinLobby{Lobby: id}, err
	case "LeaveLobby":
		return LeaveLobby{}, nil
	case "SwitchTeam":
		var m SwitchTeam
		err := decodeTuple(payload, &m.Player, &m.Team)
		return m, err
	case "SwitchPlaces":
		var m SwitchPlaces
		err := decodeTuple(payload, &m.A, &m.B)
		return m, err
	case "GetLobbyInfo":
		id, err := decodeValue[LobbyID](payload)
		return GetLobbyInfo{Lobby: id}, err
	case "GetLobbyList":
		return GetLobbyList{}, nil
	case "GetPlayerInfo":
		id, err := decodeValue[PlayerID](payload)
		return GetPlayerInfo{Player: id}, err
	case "KickPlayer":
		id, err := decodeValue[PlayerID](payload)
		return KickPlayer{Player: id}, err
	case "UpdateSettings":
		s, err := decodeValue[LobbySettings](payload)
		return UpdateSettings{Settings: s}, err
	case "EnterChampSelect":
		return EnterChampSelect{}, nil
	case "SelectChampion":
		c, err := decodeValue[string](payload)
		return SelectChampion{Champion: c}, err
	case "LockChampSelection":
		return LockChampSelection{}, nil
	case "StartGame":
		return StartGame{}, nil
	case "Disconnecting":
		return Disconnecting{}, nil
	default:
		return nil, fmt.Errorf("unknown client message %q", tag)
	}
}

// EncodeFromPlayer serializes one client → server message. Used by test
// clients and the fixture tooling; the server itself only decodes.
func EncodeFromPlayer(m FromPlayer) ([]byte, error) {
	switch m := m.(type) {
	case InitialHandshake:
		return tagValue("InitialHandshake", m)
	case CreateLobby:
		return tagUnit("CreateLobby")
	case JoinLobby:
		return tagValue("JoinLobby", m.Lobby)
	case LeaveLobby:
		return tagUnit("LeaveLobby")
	case SwitchTeam:
		return tagTuple("SwitchTeam", m.Player, m.Team)
	case SwitchPlaces:
		return tagTuple("SwitchPlaces", m.A, m.B)
	case GetLobbyInfo:
		return tagValue("GetLobbyInfo", m.Lobby)
	case GetLobbyList:
		return tagUnit("GetLobbyList")
	case GetPlayerInfo:
		return tagValue("GetPlayerInfo", m.Player)
	case KickPlayer:
		return tagValue("KickPlayer", m.Player)
	case UpdateSettings:
		return tagValue("UpdateSettings", m.Settings)
	case EnterChampSelect:
		return tagUnit("EnterChampSelect")
	case SelectChampion:
		return tagValue("SelectChampion", m.Champion)
	case LockChampSelection:
		return tagUnit("LockChampSelection")
	case StartGame:
		return tagUnit("StartGame")
	case Disconnecting:
		return tagUnit("Disconnecting")
	default:
		return nil, fmt.Errorf("unknown client message type %T", m)
	}
}

// EncodeFromServer serializes one server → client message.
func EncodeFromServer(m FromServer) ([]byte, error) {
	switch m := m.(type) {
	case InitialHandshakeResponse:
		return tagValue("InitialHandshakeResponse", m)
	case YouJoinedLobby:
		return tagValue("YouJoinedLobby", m.Lobby)
	case YouLeftLobby:
		return tagUnit("YouLeftLobby")
	case PlayerJoinedYourLobby:
		return tagValue("PlayerJoinedYourLobby", m.Player)
	case PlayerLeftYourLobby:
		return tagValue("PlayerLeftYourLobby", m.Player)
	case PlayerSwitchedTeam:
		return tagTuple("PlayerSwitchedTeam", m.Player, m.Team)
	case PlayersSwitched:
		return tagTuple("PlayersSwitched", m.A, m.B)
	case LobbyInfo:
		return tagValue("LobbyInfo", m.Lobby)
	case LobbyList:
		return tagValue("LobbyList", m.Lobbies)
	case PlayerInfoReply:
		return tagValue("PlayerInfo", m.Player)
	case LobbyLeaderChanged:
		return tagValue("LobbyLeaderChanged", m.Leader)
	case RequestRefused:
		return tagValue("RequestRefused", m.Reason)
	case SettingsUpdated:
		return tagValue("SettingsUpdated", m.Settings)
	case ChampSelectEntered:
		return tagUnit("ChampSelectEntered")
	case PlayerSelectedChampion:
		return tagTuple("PlayerSelectedChampion", m.Player, m.Champion)
	case ChampSelectionLocked:
		return tagValue("ChampSelectionLocked", m.Player)
	case GameStarted:
		return tagValue("GameStarted", m.Token)
	case ServerShutdown:
		return tagUnit("ServerShutdown")
	default:
		return nil, fmt.Errorf("unknown server message type %T", m)
	}
}

// DecodeFromServer parses one server → client message. Used by test clients.
func DecodeFromServer(data []byte) (FromServer, error) {
	tag, payload, err := splitTag(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "InitialHandshakeResponse":
		v, err := decodeValue[InitialHandshakeResponse](payload)
		return v, err
	case "YouJoinedLobby":
		id, err := decodeValue[LobbyID](payload)
		return YouJoinedLobby{Lobby: id}, err
	case "YouLeftLobby":
		return YouLeftLobby{}, nil
	case "PlayerJoinedYourLobby":
		id, err := decodeValue[PlayerID](payload)
		return PlayerJoinedYourLobby{Player: id}, err
	case "PlayerLeftYourLobby":
		id, err := decodeValue[PlayerID](payload)
		return PlayerLeftYourLobby{Player: id}, err
	case "PlayerSwitchedTeam":
		var m PlayerSwitchedTeam
		err := decodeTuple(payload, &m.Player, &m.Team)
		return m, err
	case "PlayersSwitched":
		var m PlayersSwitched
		err := decodeTuple(payload, &m.A, &m.B)
		return m, err
	case "LobbyInfo":
		v, err := decodeValue[LobbySnapshot](payload)
		return LobbyInfo{Lobby: v}, err
	case "LobbyList":
		v, err := decodeValue[[]LobbyShortInfo](payload)
		return LobbyList{Lobbies: v}, err
	case "PlayerInfo":
		v, err := decodeValue[PlayerInfo](payload)
		return PlayerInfoReply{Player: v}, err
	case "LobbyLeaderChanged":
		id, err := decodeValue[PlayerID](payload)
		return LobbyLeaderChanged{Leader: id}, err
	case "RequestRefused":
		r, err := decodeValue[string](payload)
		return RequestRefused{Reason: r}, err
	case "SettingsUpdated":
		s, err := decodeValue[LobbySettings](payload)
		return SettingsUpdated{Settings: s}, err
	case "ChampSelectEntered":
		return ChampSelectEntered{}, nil
	case "PlayerSelectedChampion":
		var m PlayerSelectedChampion
		err := decodeTuple(payload, &m.Player, &m.Champion)
		return m, err
	case "ChampSelectionLocked":
		id, err := decodeValue[PlayerID](payload)
		return ChampSelectionLocked{Player: id}, err
	case "GameStarted":
		t, err := decodeValue[ConnectToken](payload)
		return GameStarted{Token: t}, err
	case "ServerShutdown":
		return ServerShutdown{}, nil
	default:
		return nil, fmt.Errorf("unknown server message %q", tag)
	}
}

// EncodeToGameServer serializes the lobby's bootstrap message.
func EncodeToGameServer(m LobbyInitialMessage) ([]byte, error) {
	return tagValue("LobbyInitialMessage", m)
}

// DecodeToGameServer parses the lobby's bootstrap message (game-server side).
func DecodeToGameServer(data []byte) (LobbyInitialMessage, error) {
	tag, payload, err := splitTag(data)
	if err != nil {
		return LobbyInitialMessage{}, err
	}
	if tag != "LobbyInitialMessage" {
		return LobbyInitialMessage{}, fmt.Errorf("unexpected game-server message %q", tag)
	}
	return decodeValue[LobbyInitialMessage](payload)
}

// EncodeFromGameServer serializes the game server's token reply.
func EncodeFromGameServer(m PlayerTokensGenerated) ([]byte, error) {
	return tagValue("PlayerTokensGenerated", m)
}

// DecodeFromGameServer parses the game server's token reply (lobby side).
func DecodeFromGameServer(data []byte) (PlayerTokensGenerated, error) {
	tag, payload, err := splitTag(data)
	if err != nil {
		return PlayerTokensGenerated{}, err
	}
	if tag != "PlayerTokensGenerated" {
		return PlayerTokensGenerated{}, fmt.Errorf("unexpected game-server message %q", tag)
	}
	return decodeValue[PlayerTokensGenerated](payload)
}

// MarshalJSON encodes the lifecycle phase as its tagged form.
func (s LobbyStateSnapshot) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case PhaseNormal:
		return tagUnit("Normal")
	case PhaseChampSelect:
		return tagValue("ChampSelect", s.ChampSelect)
	case PhaseInGame:
		return tagUnit("InGame")
	default:
		return nil, fmt.Errorf("unknown lobby phase %d", s.Kind)
	}
}

// UnmarshalJSON decodes the tagged lifecycle phase.
func (s *LobbyStateSnapshot) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTag(data)
	if err != nil {
		return err
	}
	switch tag {
	case "Normal":
		*s = LobbyStateSnapshot{Kind: PhaseNormal}
		return nil
	case "ChampSelect":
		cs, err := decodeValue[*ChampSelectSnapshot](payload)
		if err != nil {
			return err
		}
		*s = LobbyStateSnapshot{Kind: PhaseChampSelect, ChampSelect: cs}
		return nil
	case "InGame":
		*s = LobbyStateSnapshot{Kind: PhaseInGame}
		return nil
	default:
		return fmt.Errorf("unknown lobby phase %q", tag)
	}
}
