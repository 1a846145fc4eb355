package server

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Elekrisk/moba-try-5/internal/lobby"
	"github.com/Elekrisk/moba-try-5/internal/protocol"
)

// Every request runs a guard chain; the first failing guard answers
// RequestRefused with its reason and leaves all state untouched. Only fully
// validated requests mutate and broadcast.

// refuse answers a failed guard.
func (s *Server) refuse(id protocol.PlayerID, reason string) {
	s.send(id, protocol.RequestRefused{Reason: reason})
}

// lobbyOf resolves the requester's current lobby; reason is non-empty on
// guard failure.
func (s *Server) lobbyOf(p *player) (*lobby.Lobby, string) {
	if p.inLobby.IsZero() {
		return nil, "You are not in a lobby."
	}
	l, ok := s.lobbies[p.inLobby]
	if !ok {
		return nil, "That lobby does not exist."
	}
	return l, ""
}

func inNormalState(l *lobby.Lobby) bool {
	_, ok := l.Phase.(lobby.Normal)
	return ok
}

func (s *Server) handleMessage(id protocol.PlayerID, msg protocol.FromPlayer) {
	p, ok := s.players[id]
	if !ok {
		return
	}
	s.log.WithField("player", id).Debugf("message received: %T", msg)

	switch msg := msg.(type) {
	case protocol.InitialHandshake:
		// Consumed by the session task; ignore a repeat.
	case protocol.CreateLobby:
		s.handleCreateLobby(id, p)
	case protocol.JoinLobby:
		s.handleJoinLobby(id, p, msg.Lobby)
	case protocol.LeaveLobby:
		s.send(id, protocol.YouLeftLobby{})
		s.playerLeftLobby(id)
	case protocol.SwitchTeam:
		s.handleSwitchTeam(id, p, msg.Player, msg.Team)
	case protocol.SwitchPlaces:
		s.handleSwitchPlaces(id, p, msg.A, msg.B)
	case protocol.GetLobbyInfo:
		s.handleGetLobbyInfo(id, msg.Lobby)
	case protocol.GetLobbyList:
		s.handleGetLobbyList(id)
	case protocol.GetPlayerInfo:
		// An unknown id is silently dropped.
		if target, ok := s.players[msg.Player]; ok {
			s.send(id, protocol.PlayerInfoReply{Player: target.info})
		}
	case protocol.KickPlayer:
		s.handleKickPlayer(id, p, msg.Player)
	case protocol.UpdateSettings:
		s.handleUpdateSettings(id, p, msg.Settings)
	case protocol.EnterChampSelect:
		s.handleEnterChampSelect(id, p)
	case protocol.SelectChampion:
		s.handleSelectChampion(id, p, msg.Champion)
	case protocol.LockChampSelection:
		s.handleLockChampSelection(id, p)
	case protocol.StartGame:
		// Reserved; games start when every selection locks.
		s.refuse(id, "Lobby is in invalid state.")
	case protocol.Disconnecting:
		s.queue.push(connectionLost{player: id})
	}
}

func (s *Server) handleCreateLobby(id protocol.PlayerID, p *player) {
	if !p.inLobby.IsZero() {
		s.refuse(id, "You are already in a lobby.")
		return
	}

	lid := protocol.NewLobbyID()
	l := lobby.New(lid, id, p.info.Name)
	s.lobbies[lid] = l
	p.inLobby = lid

	s.log.WithFields(map[string]any{"player": id, "lobby": lid}).Info("lobby created")
	s.send(id, protocol.YouJoinedLobby{Lobby: lid})
	s.broadcastLobby(l, id, protocol.PlayerJoinedYourLobby{Player: id})
}

func (s *Server) handleJoinLobby(id protocol.PlayerID, p *player, lid protocol.LobbyID) {
	if !p.inLobby.IsZero() {
		s.refuse(id, "You are already in a lobby.")
		return
	}
	l, ok := s.lobbies[lid]
	if !ok {
		s.refuse(id, "That lobby does not exist.")
		return
	}
	if !inNormalState(l) {
		s.refuse(id, "Lobby is in invalid state.")
		return
	}
	if !l.Settings.LobbyIsOpen {
		s.refuse(id, "The lobby is closed.")
		return
	}
	if l.IsFull() {
		s.refuse(id, "The lobby is full")
		return
	}

	l.AddToSmallestTeam(id)
	p.inLobby = lid

	s.send(id, protocol.YouJoinedLobby{Lobby: lid})
	s.broadcastLobby(l, id, protocol.PlayerJoinedYourLobby{Player: id})
}

func (s *Server) handleSwitchTeam(id protocol.PlayerID, p *player, target protocol.PlayerID, team protocol.Team) {
	l, reason := s.lobbyOf(p)
	if reason != "" {
		s.refuse(id, reason)
		return
	}
	if !inNormalState(l) {
		s.refuse(id, "Lobby is in invalid state.")
		return
	}
	if !l.Settings.PlayersCanChangeTeam && l.Leader != id {
		s.refuse(id, "Team switching is disabled in this lobby.")
		return
	}
	if target != id && l.Leader != id {
		s.refuse(id, "Cannot switch team of other player.")
		return
	}
	if !l.HasTeam(team) {
		s.refuse(id, fmt.Sprintf("Team %d does not exist.", team))
		return
	}
	if l.TeamIsFull(team) {
		s.refuse(id, fmt.Sprintf("Team %d is full.", team))
		return
	}
	if !l.Contains(target) {
		s.refuse(id, "Player does not exist")
		return
	}

	l.MoveToTeam(target, team)
	s.broadcastAll(l, protocol.PlayerSwitchedTeam{Player: target, Team: team})
}

func (s *Server) handleSwitchPlaces(id protocol.PlayerID, p *player, a, b protocol.PlayerID) {
	l, reason := s.lobbyOf(p)
	if reason != "" {
		s.refuse(id, reason)
		return
	}
	if !inNormalState(l) {
		s.refuse(id, "Lobby is in invalid state.")
		return
	}
	if !l.Settings.PlayersCanChangeTeam && l.Leader != id {
		s.refuse(id, "Team switching is disabled in this lobby.")
		return
	}
	if l.Leader != id {
		s.refuse(id, "Non-leader cannot switch places of players.")
		return
	}
	if !l.Contains(a) || !l.Contains(b) {
		s.refuse(id, "Player does not exist")
		return
	}

	l.SwapPlaces(a, b)
	s.broadcastAll(l, protocol.PlayersSwitched{A: a, B: b})
}

func (s *Server) handleGetLobbyInfo(id protocol.PlayerID, lid protocol.LobbyID) {
	l, ok := s.lobbies[lid]
	if !ok {
		s.refuse(id, "That lobby does not exist.")
		return
	}
	s.send(id, protocol.LobbyInfo{Lobby: l.Snapshot()})
}

func (s *Server) handleGetLobbyList(id protocol.PlayerID) {
	list := make([]protocol.LobbyShortInfo, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		list = append(list, l.ShortInfo())
	}
	// Map order is random; keep the listing stable for clients.
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	s.send(id, protocol.LobbyList{Lobbies: list})
}

func (s *Server) handleKickPlayer(id protocol.PlayerID, p *player, target protocol.PlayerID) {
	l, reason := s.lobbyOf(p)
	if reason != "" {
		s.refuse(id, reason)
		return
	}
	if !inNormalState(l) {
		s.refuse(id, "Lobby is in invalid state.")
		return
	}
	if l.Leader != id {
		s.refuse(id, "You are not the lobby leader.")
		return
	}

	s.send(target, protocol.YouLeftLobby{})
	s.playerLeftLobby(target)
}

func (s *Server) handleUpdateSettings(id protocol.PlayerID, p *player, next protocol.LobbySettings) {
	l, reason := s.lobbyOf(p)
	if reason != "" {
		s.refuse(id, reason)
		return
	}
	if !inNormalState(l) {
		s.refuse(id, "Lobby is in invalid state.")
		return
	}
	if l.Leader != id {
		s.refuse(id, "You are not the lobby leader.")
		return
	}
	if next.Name == "" {
		s.refuse(id, "Lobby name cannot be empty.")
		return
	}
	if strings.TrimSpace(next.Name) == "" {
		s.refuse(id, "Lobby name cannot be only whitespace.")
		return
	}
	if !s.cfg.Catalog.HasMap(next.Map) {
		s.refuse(id, fmt.Sprintf("No map %q exists.", next.Map))
		return
	}
	if next.TeamCount < 1 {
		s.refuse(id, "There must be at least 1 team.")
		return
	}

	if !l.ApplySettings(next) {
		// Settings unchanged: no reshuffle, no broadcast.
		return
	}
	s.broadcastAll(l, protocol.SettingsUpdated{Settings: next})
}

func (s *Server) handleEnterChampSelect(id protocol.PlayerID, p *player) {
	l, reason := s.lobbyOf(p)
	if reason != "" {
		s.refuse(id, reason)
		return
	}
	if !inNormalState(l) {
		s.refuse(id, "Lobby is in invalid state.")
		return
	}
	if l.Leader != id {
		s.refuse(id, "You are not the lobby leader.")
		return
	}

	l.EnterChampSelect(append([]string{}, s.cfg.Catalog.Champions...))
	s.broadcastAll(l, protocol.ChampSelectEntered{})
}

func (s *Server) handleSelectChampion(id protocol.PlayerID, p *player, champion string) {
	l, reason := s.lobbyOf(p)
	if reason != "" {
		s.refuse(id, reason)
		return
	}
	cs, ok := l.Phase.(*lobby.ChampSelect)
	if !ok {
		s.refuse(id, "Lobby is in invalid state.")
		return
	}
	if !cs.HasChampion(champion) {
		s.refuse(id, "That champion does not exist.")
		return
	}
	if sel := cs.SelectionOf(id); sel != nil && sel.Locked {
		s.refuse(id, "You cannot change locked selection.")
		return
	}

	cs.Select(id, champion)
	s.broadcastAll(l, protocol.PlayerSelectedChampion{Player: id, Champion: champion})
}

func (s *Server) handleLockChampSelection(id protocol.PlayerID, p *player) {
	l, reason := s.lobbyOf(p)
	if reason != "" {
		s.refuse(id, reason)
		return
	}
	cs, ok := l.Phase.(*lobby.ChampSelect)
	if !ok {
		s.refuse(id, "Lobby is in invalid state.")
		return
	}
	sel := cs.SelectionOf(id)
	if sel == nil {
		s.refuse(id, "You have not selected a champion.")
		return
	}
	if sel.Locked {
		// Re-locking is a no-op; never retrigger the game start.
		return
	}

	cs.Lock(id)
	s.broadcastAll(l, protocol.ChampSelectionLocked{Player: id})

	if cs.AllLocked() {
		s.startGame(l, cs)
	}
}

// playerLeftLobby is the shared removal routine used by LeaveLobby, kicks,
// disconnects and forced teardown.
func (s *Server) playerLeftLobby(id protocol.PlayerID) {
	p, ok := s.players[id]
	if !ok {
		return
	}
	if p.inLobby.IsZero() {
		return
	}
	l, ok := s.lobbies[p.inLobby]
	if !ok {
		p.inLobby = protocol.LobbyID{}
		return
	}

	l.Remove(id)
	p.inLobby = protocol.LobbyID{}

	if l.MemberCount() == 0 {
		delete(s.lobbies, l.ID)
		s.log.WithField("lobby", l.ID).Info("lobby emptied, deleting")
		if h, ok := s.gameServers[l.ID]; ok {
			h.Cancel()
		}
		return
	}

	if l.Leader == id {
		next := l.PromoteNextLeader()
		s.broadcastAll(l, protocol.LobbyLeaderChanged{Leader: next})
	}
	s.broadcastAll(l, protocol.PlayerLeftYourLobby{Player: id})
}
