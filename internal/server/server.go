// Package server is the lobby service: the QUIC listener, the per-session
// I/O tasks and the single-threaded event loop that owns every lobby and
// player. All state mutation happens on the loop; sessions and supervisor
// tasks only post events.
package server

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Elekrisk/moba-try-5/internal/config"
	"github.com/Elekrisk/moba-try-5/internal/lobby"
	"github.com/Elekrisk/moba-try-5/internal/protocol"
	"github.com/Elekrisk/moba-try-5/internal/supervisor"
	"github.com/Elekrisk/moba-try-5/internal/transport"
)

// player is the loop's record of one connected client.
type player struct {
	info protocol.PlayerInfo
	// inLobby is zero while the player is not in a lobby.
	inLobby protocol.LobbyID
	conn    transport.Conn
}

// Server owns all lobby service state. The maps are touched exclusively by
// the event loop goroutine.
type Server struct {
	log *logrus.Logger
	cfg *config.Config

	queue   *eventQueue
	lobbies map[protocol.LobbyID]*lobby.Lobby
	players map[protocol.PlayerID]*player

	sup         *supervisor.Supervisor
	gameServers map[protocol.LobbyID]*supervisor.Handle
	ports       *supervisor.PortPool

	shouldExit bool
}

// New assembles a server from its configuration.
func New(log *logrus.Logger, cfg *config.Config) *Server {
	return &Server{
		log:         log,
		cfg:         cfg,
		queue:       newEventQueue(),
		lobbies:     make(map[protocol.LobbyID]*lobby.Lobby),
		players:     make(map[protocol.PlayerID]*player),
		sup:         supervisor.New(log, cfg.Mode, cfg.GameServerPath),
		gameServers: make(map[protocol.LobbyID]*supervisor.Handle),
		ports:       supervisor.NewPortPool(cfg.GamePorts),
	}
}

// Shutdown posts the shutdown event; safe to call from any goroutine (the
// signal handler uses it).
func (s *Server) Shutdown() {
	s.queue.push(shutdownEvent{})
}

// Run binds the listener and drives the event loop until shutdown. Only the
// bind failure is returned; accept errors are logged and discarded.
func (s *Server) Run(ctx context.Context) error {
	listener, err := transport.Listen(s.cfg.ListenPort)
	if err != nil {
		return err
	}
	defer listener.Close()
	s.log.Infof("listening on %s", listener.Addr())

	acceptCtx, stopAccepting := context.WithCancel(ctx)
	defer stopAccepting()
	go s.acceptLoop(acceptCtx, listener)

	for !s.shouldExit {
		s.handleEvent(s.queue.pop())
	}
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, listener *transport.Listener) {
	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warnf("accept error: %v", err)
			continue
		}
		s.log.WithField("remote", conn.RemoteAddr()).Info("connection received")
		s.queue.push(connectionMade{conn: conn})
	}
}

func (s *Server) handleEvent(e event) {
	switch e := e.(type) {
	case connectionMade:
		s.handleConnectionMade(e.conn)
	case playerNameUpdated:
		if p, ok := s.players[e.player]; ok {
			p.info.Name = e.name
		}
	case messageReceived:
		s.handleMessage(e.player, e.msg)
	case connectionLost:
		s.handleConnectionLost(e.player)
	case callback:
		e.fn()
	case shutdownEvent:
		s.handleShutdown()
	}
}

// handleConnectionMade registers the player and detaches its session task.
func (s *Server) handleConnectionMade(conn transport.Conn) {
	id := protocol.NewPlayerID()
	s.players[id] = &player{
		info: protocol.PlayerInfo{ID: id},
		conn: conn,
	}
	go s.runSession(id, conn)
}

// handleConnectionLost runs the shared left-lobby routine and forgets the
// player. In-flight sends to the dead connection fail and are dropped.
func (s *Server) handleConnectionLost(id protocol.PlayerID) {
	s.playerLeftLobby(id)
	delete(s.players, id)
	s.log.WithField("player", id).Info("connection lost")
}

// handleShutdown tells every client, waits for those sends, then lets the
// loop drain.
func (s *Server) handleShutdown() {
	s.log.Info("shutting down, notifying clients")
	g := s.broadcastGlobal(protocol.ServerShutdown{})
	s.shouldExit = true
	_ = g.Wait()
}

// post schedules fn to run on the event loop.
func (s *Server) post(fn func()) {
	s.queue.push(callback{fn: fn})
}
