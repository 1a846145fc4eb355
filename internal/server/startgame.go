package server

import (
	"github.com/google/uuid"

	"github.com/Elekrisk/moba-try-5/internal/lobby"
	"github.com/Elekrisk/moba-try-5/internal/protocol"
	"github.com/Elekrisk/moba-try-5/internal/supervisor"
)

// startGame allocates a port, launches the game server for the lobby and
// wires the supervisor hooks back onto the event loop. Called when the last
// champion selection locks.
func (s *Server) startGame(l *lobby.Lobby, cs *lobby.ChampSelect) {
	port, ok := s.ports.Allocate()
	if !ok {
		s.log.WithField("lobby", l.ID).Warn("no free game server port")
		s.broadcastAll(l, protocol.RequestRefused{Reason: "Failed to start game server"})
		return
	}

	token := uuid.New()
	players := make(map[protocol.Team][]protocol.PlayerSelection, len(l.Teams))
	for ti, team := range l.Teams {
		sels := make([]protocol.PlayerSelection, 0, len(team))
		for _, pid := range team {
			sel := cs.SelectionOf(pid)
			if sel == nil {
				continue
			}
			info := protocol.PlayerInfo{ID: pid}
			if p, ok := s.players[pid]; ok {
				info = p.info
			}
			sels = append(sels, protocol.PlayerSelection{
				Player:   info,
				Champion: sel.Champion,
			})
		}
		players[protocol.Team(ti)] = sels
	}

	l.Phase = lobby.InGame{}
	lid := l.ID
	s.log.WithFields(map[string]any{"lobby": lid, "port": port}).Info("starting game server")

	handle := s.sup.Start(supervisor.StartSpec{
		Lobby:   lid,
		Token:   token,
		Port:    port,
		Players: players,
	}, supervisor.Hooks{
		TokensReady: func(tokens map[protocol.PlayerID]protocol.ConnectToken) {
			s.post(func() { s.deliverTokens(lid, tokens) })
		},
		Failed: func() {
			s.post(func() { s.gameServerFailed(lid) })
		},
		Done: func() {
			s.post(func() {
				delete(s.gameServers, lid)
				s.ports.Release(port)
			})
		},
	})
	s.gameServers[lid] = handle
}

// deliverTokens hands each member its connect token once the game server
// reports ready.
func (s *Server) deliverTokens(lid protocol.LobbyID, tokens map[protocol.PlayerID]protocol.ConnectToken) {
	l, ok := s.lobbies[lid]
	if !ok {
		return
	}
	s.log.WithField("lobby", lid).Info("game server ready, delivering tokens")
	for _, pid := range l.Members() {
		tok, ok := tokens[pid]
		if !ok {
			s.log.WithFields(map[string]any{"lobby": lid, "player": pid}).
				Warn("no connect token for player")
			continue
		}
		s.send(pid, protocol.GameStarted{Token: tok})
	}
}

// gameServerFailed tears the lobby down after a launch failure or an
// unexpected game server death. Every member is informed and evicted; the
// last eviction deletes the lobby.
func (s *Server) gameServerFailed(lid protocol.LobbyID) {
	l, ok := s.lobbies[lid]
	if !ok {
		return
	}
	s.log.WithField("lobby", lid).Error("game server failed")
	s.broadcastAll(l, protocol.RequestRefused{Reason: "Failed to start game server"})
	for _, pid := range l.Members() {
		s.send(pid, protocol.YouLeftLobby{})
		s.playerLeftLobby(pid)
	}
}
