// Package supervisor spawns and babysits one game-server child process per
// in-game lobby: launch, bootstrap handshake, death watch, cleanup. It never
// touches lobby state itself; results are reported through hooks that the
// event loop turns into callback events.
package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Elekrisk/moba-try-5/internal/config"
	"github.com/Elekrisk/moba-try-5/internal/protocol"
	"github.com/Elekrisk/moba-try-5/internal/transport"
)

const dialRetryInterval = 250 * time.Millisecond

// StartSpec is everything needed to launch one match.
type StartSpec struct {
	Lobby   protocol.LobbyID
	Token   uuid.UUID
	Port    uint16
	Players map[protocol.Team][]protocol.PlayerSelection
}

// Hooks are invoked from the supervisor task; implementations must be safe
// to call from there (the server wraps them into posted callbacks).
type Hooks struct {
	// TokensReady fires when the child returned its connect tokens.
	TokensReady func(tokens map[protocol.PlayerID]protocol.ConnectToken)
	// Failed fires when the child could not be started or bootstrapped, or
	// died while its lobby was still alive.
	Failed func()
	// Done always fires last, after the child has been reaped.
	Done func()
}

// Handle is the loop's side of a running game server. Cancelling it kills
// the child; safe to call more than once.
type Handle struct {
	Lobby  protocol.LobbyID
	Port   uint16
	cancel chan struct{}
	once   sync.Once
}

// Cancel asks the supervisor task to kill and reap the child.
func (h *Handle) Cancel() {
	h.once.Do(func() { close(h.cancel) })
}

type dialFunc func(ctx context.Context, addr string) (transport.Conn, error)

// Supervisor launches game-server children according to the configured
// launch mode.
type Supervisor struct {
	log  *logrus.Logger
	mode config.LaunchMode
	path string

	// Overridable in tests.
	dial    dialFunc
	command func(token uuid.UUID, port uint16) *exec.Cmd
}

// New builds a supervisor for the given launch mode and game-server path.
func New(log *logrus.Logger, mode config.LaunchMode, path string) *Supervisor {
	s := &Supervisor{log: log, mode: mode, path: path, dial: transport.Dial}
	s.command = s.launchCommand
	return s
}

// Start launches the child and runs the bootstrap choreography in a
// detached task. The returned handle is stored by the event loop.
func (s *Supervisor) Start(spec StartSpec, hooks Hooks) *Handle {
	h := &Handle{Lobby: spec.Lobby, Port: spec.Port, cancel: make(chan struct{})}
	go s.run(spec, hooks, h)
	return h
}

func (s *Supervisor) run(spec StartSpec, hooks Hooks, h *Handle) {
	defer hooks.Done()

	log := s.log.WithFields(logrus.Fields{
		"lobby": spec.Lobby,
		"port":  spec.Port,
	})

	cmd := s.command(spec.Token, spec.Port)
	if err := cmd.Start(); err != nil {
		log.Warnf("failed to launch game server: %v", err)
		hooks.Failed()
		return
	}
	log.Infof("game server launched (pid %d)", cmd.Process.Pid)

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	ctx, stopBootstrap := context.WithCancel(context.Background())
	defer stopBootstrap()

	type bootstrapResult struct {
		tokens map[protocol.PlayerID]protocol.ConnectToken
		err    error
	}
	bootstrapped := make(chan bootstrapResult, 1)
	go func() {
		tokens, err := s.bootstrap(ctx, spec)
		bootstrapped <- bootstrapResult{tokens, err}
	}()

	select {
	case res := <-bootstrapped:
		if res.err != nil {
			log.Warnf("game server bootstrap failed: %v", res.err)
			s.kill(cmd)
			<-exited
			hooks.Failed()
			return
		}
		log.Infof("game server bootstrapped, %d connect tokens", len(res.tokens))
		hooks.TokensReady(res.tokens)
	case err := <-exited:
		log.Warnf("game server exited during bootstrap: %v", err)
		hooks.Failed()
		return
	case <-h.cancel:
		log.Info("game server cancelled during bootstrap")
		s.kill(cmd)
		<-exited
		return
	}

	// The match is running; stay around to reap the child.
	select {
	case err := <-exited:
		if err != nil {
			log.Warnf("game server died: %v", err)
		} else {
			log.Info("game server exited")
		}
		hooks.Failed()
	case <-h.cancel:
		log.Info("lobby emptied, killing game server")
		s.kill(cmd)
		<-exited
	}
}

// bootstrap connects to the freshly spawned child and exchanges the two
// bootstrap messages. The child needs time to bind its socket, so the dial
// retries until the context is cancelled.
func (s *Supervisor) bootstrap(ctx context.Context, spec StartSpec) (map[protocol.PlayerID]protocol.ConnectToken, error) {
	addr := fmt.Sprintf("localhost:%d", spec.Port)

	var conn transport.Conn
	for {
		var err error
		conn, err = s.dial(ctx, addr)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dialRetryInterval):
		}
	}
	defer conn.Close()

	initial, err := protocol.EncodeToGameServer(protocol.LobbyInitialMessage{
		Token:   spec.Token,
		Players: spec.Players,
	})
	if err != nil {
		return nil, err
	}
	w, err := conn.OpenUni(ctx)
	if err != nil {
		return nil, err
	}
	if err := protocol.WriteFramed(w, initial); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	r, err := conn.AcceptUni(ctx)
	if err != nil {
		return nil, err
	}
	replyData, err := protocol.ReadFramed(r)
	if err != nil {
		return nil, err
	}
	reply, err := protocol.DecodeFromGameServer(replyData)
	if err != nil {
		return nil, err
	}
	return reply.Players, nil
}

func (s *Supervisor) launchCommand(token uuid.UUID, port uint16) *exec.Cmd {
	var cmd *exec.Cmd
	switch s.mode {
	case config.LaunchCargo:
		cmd = exec.Command("cargo", "run", "--release", "--", token.String(), strconv.Itoa(int(port)))
		cmd.Dir = s.path
	default:
		cmd = exec.Command(s.path, token.String(), strconv.Itoa(int(port)))
		cmd.Dir = filepath.Dir(s.path)
	}
	cmd.Stdout = s.log.WriterLevel(logrus.DebugLevel)
	cmd.Stderr = s.log.WriterLevel(logrus.DebugLevel)
	return cmd
}

func (s *Supervisor) kill(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
