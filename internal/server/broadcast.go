package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Elekrisk/moba-try-5/internal/lobby"
	"github.com/Elekrisk/moba-try-5/internal/protocol"
	"github.com/Elekrisk/moba-try-5/internal/transport"
)

// All outbound sends run in detached tasks so the loop never blocks on I/O.
// Send failures are dropped: a broken connection surfaces as its session's
// connectionLost.

// send serializes and sends one message to one player.
func (s *Server) send(id protocol.PlayerID, msg protocol.FromServer) {
	p, ok := s.players[id]
	if !ok {
		return
	}
	data, err := protocol.EncodeFromServer(msg)
	if err != nil {
		s.log.Errorf("encoding %T: %v", msg, err)
		return
	}
	go func() {
		_ = writeStream(p.conn, data)
	}()
}

// broadcastLobby sends one message to every lobby member except exclude.
// The payload is serialized once and shared.
func (s *Server) broadcastLobby(l *lobby.Lobby, exclude protocol.PlayerID, msg protocol.FromServer) {
	data, err := protocol.EncodeFromServer(msg)
	if err != nil {
		s.log.Errorf("encoding %T: %v", msg, err)
		return
	}
	for _, member := range l.Members() {
		if member == exclude {
			continue
		}
		p, ok := s.players[member]
		if !ok {
			continue
		}
		conn := p.conn
		go func() {
			_ = writeStream(conn, data)
		}()
	}
}

// broadcastAll is broadcastLobby without an exclusion.
func (s *Server) broadcastAll(l *lobby.Lobby, msg protocol.FromServer) {
	s.broadcastLobby(l, protocol.PlayerID{}, msg)
}

// broadcastGlobal sends one message to every connected player and returns
// the group to wait on; only shutdown does.
func (s *Server) broadcastGlobal(msg protocol.FromServer) *errgroup.Group {
	g := new(errgroup.Group)
	data, err := protocol.EncodeFromServer(msg)
	if err != nil {
		s.log.Errorf("encoding %T: %v", msg, err)
		return g
	}
	for _, p := range s.players {
		conn := p.conn
		g.Go(func() error {
			_ = writeStream(conn, data)
			return nil
		})
	}
	return g
}

func writeStream(conn transport.Conn, data []byte) error {
	w, err := conn.OpenUni(context.Background())
	if err != nil {
		return err
	}
	return protocol.WriteRaw(w, data)
}
