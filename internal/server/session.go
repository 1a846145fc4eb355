package server

import (
	"context"
	"fmt"

	"github.com/Elekrisk/moba-try-5/internal/protocol"
	"github.com/Elekrisk/moba-try-5/internal/transport"
)

// runSession is the per-client I/O task: handshake, then one message per
// accepted unidirectional stream. Any failure posts connectionLost and ends
// the task; the loop does the actual cleanup.
func (s *Server) runSession(id protocol.PlayerID, conn transport.Conn) {
	ctx := context.Background()

	if err := s.handshake(ctx, id, conn); err != nil {
		s.log.WithField("player", id).Warnf("handshake failed: %v", err)
		s.queue.push(connectionLost{player: id})
		return
	}

	for {
		msg, err := readMessage(ctx, conn)
		if err != nil {
			s.log.WithField("player", id).Debugf("read loop ended: %v", err)
			s.queue.push(connectionLost{player: id})
			return
		}
		s.queue.push(messageReceived{player: id, msg: msg})
	}
}

// handshake expects InitialHandshake as the very first message and answers
// with the minted player id.
func (s *Server) handshake(ctx context.Context, id protocol.PlayerID, conn transport.Conn) error {
	msg, err := readMessage(ctx, conn)
	if err != nil {
		return err
	}
	hs, ok := msg.(protocol.InitialHandshake)
	if !ok {
		return fmt.Errorf("expected InitialHandshake, got %T", msg)
	}

	s.queue.push(playerNameUpdated{player: id, name: hs.Name})

	response, err := protocol.EncodeFromServer(protocol.InitialHandshakeResponse{ID: id})
	if err != nil {
		return err
	}
	w, err := conn.OpenUni(ctx)
	if err != nil {
		return err
	}
	return protocol.WriteRaw(w, response)
}

// readMessage accepts the next unidirectional stream and parses the single
// message it carries.
func readMessage(ctx context.Context, conn transport.Conn) (protocol.FromPlayer, error) {
	r, err := conn.AcceptUni(ctx)
	if err != nil {
		return nil, err
	}
	data, err := protocol.ReadRaw(r)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeFromPlayer(data)
}
