package supervisor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elekrisk/moba-try-5/internal/config"
	"github.com/Elekrisk/moba-try-5/internal/protocol"
	"github.com/Elekrisk/moba-try-5/internal/transport"
)

const hookTimeout = 10 * time.Second

func TestPortPoolAllocatesSmallestFree(t *testing.T) {
	pool := NewPortPool(config.PortRange{Lo: 4000, Hi: 4002})

	p1, ok := pool.Allocate()
	require.True(t, ok)
	assert.Equal(t, uint16(4000), p1)

	p2, ok := pool.Allocate()
	require.True(t, ok)
	assert.Equal(t, uint16(4001), p2)

	pool.Release(p1)
	p3, ok := pool.Allocate()
	require.True(t, ok)
	assert.Equal(t, uint16(4000), p3, "released port is reused first")

	_, ok = pool.Allocate()
	require.True(t, ok)
	_, ok = pool.Allocate()
	assert.False(t, ok, "range exhausted")
	assert.Equal(t, 3, pool.InUse())
}

func TestLaunchCommandArgv(t *testing.T) {
	log := logrus.New()
	token := uuid.New()

	s := New(log, config.LaunchExecutable, "/opt/game/server")
	cmd := s.command(token, 4001)
	assert.Equal(t, []string{"/opt/game/server", token.String(), "4001"}, cmd.Args)
	assert.Equal(t, "/opt/game", cmd.Dir)

	s = New(log, config.LaunchCargo, "/src/game-server")
	cmd = s.command(token, 4001)
	assert.Equal(t, []string{"cargo", "run", "--release", "--", token.String(), "4001"}, cmd.Args)
	assert.Equal(t, "/src/game-server", cmd.Dir)
}

// writeScript drops an executable shell script and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gameserver.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

type fakeAddr struct{}

func (fakeAddr) Network() string { return "fake" }
func (fakeAddr) String() string  { return "fake" }

// fakeConn scripts the game-server side of the bootstrap link.
type fakeConn struct {
	reply    []byte
	received chan []byte
}

func (c *fakeConn) AcceptUni(ctx context.Context) (io.Reader, error) {
	return bytes.NewReader(c.reply), nil
}

func (c *fakeConn) OpenUni(ctx context.Context) (io.WriteCloser, error) {
	return &recordingStream{sink: c.received}, nil
}

func (c *fakeConn) Close() error         { return nil }
func (c *fakeConn) RemoteAddr() net.Addr { return fakeAddr{} }

type recordingStream struct {
	buf  bytes.Buffer
	sink chan []byte
}

func (s *recordingStream) Write(p []byte) (int, error) { return s.buf.Write(p) }

func (s *recordingStream) Close() error {
	s.sink <- s.buf.Bytes()
	return nil
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestStartHappyPathThenCancel(t *testing.T) {
	pid := protocol.NewPlayerID()
	reply, err := protocol.EncodeFromGameServer(protocol.PlayerTokensGenerated{
		Players: map[protocol.PlayerID]protocol.ConnectToken{pid: protocol.ConnectToken("tok")},
	})
	require.NoError(t, err)
	var framed bytes.Buffer
	require.NoError(t, protocol.WriteFramed(&framed, reply))

	conn := &fakeConn{reply: framed.Bytes(), received: make(chan []byte, 1)}

	s := New(newTestLogger(), config.LaunchExecutable, writeScript(t, "exec sleep 30"))
	s.dial = func(ctx context.Context, addr string) (transport.Conn, error) { return conn, nil }

	tokens := make(chan map[protocol.PlayerID]protocol.ConnectToken, 1)
	failed := make(chan struct{}, 1)
	done := make(chan struct{}, 1)
	spec := StartSpec{
		Lobby: protocol.NewLobbyID(),
		Token: uuid.New(),
		Port:  4000,
		Players: map[protocol.Team][]protocol.PlayerSelection{
			0: {{Player: protocol.PlayerInfo{ID: pid, Name: "A"}, Champion: "Champ 1"}},
		},
	}
	h := s.Start(spec, Hooks{
		TokensReady: func(tk map[protocol.PlayerID]protocol.ConnectToken) { tokens <- tk },
		Failed:      func() { failed <- struct{}{} },
		Done:        func() { done <- struct{}{} },
	})

	select {
	case sent := <-conn.received:
		body, err := protocol.ReadFramed(bytes.NewReader(sent))
		require.NoError(t, err)
		initial, err := protocol.DecodeToGameServer(body)
		require.NoError(t, err)
		assert.Equal(t, spec.Token, initial.Token)
		assert.Len(t, initial.Players[0], 1)
	case <-time.After(hookTimeout):
		t.Fatal("initial message never sent")
	}

	select {
	case tk := <-tokens:
		assert.Equal(t, protocol.ConnectToken("tok"), tk[pid])
	case <-time.After(hookTimeout):
		t.Fatal("TokensReady never fired")
	}

	h.Cancel()
	h.Cancel() // idempotent

	select {
	case <-done:
	case <-time.After(hookTimeout):
		t.Fatal("Done never fired after cancel")
	}
	select {
	case <-failed:
		t.Fatal("cancel must not count as failure")
	default:
	}
}

func TestStartChildExitsDuringBootstrap(t *testing.T) {
	s := New(newTestLogger(), config.LaunchExecutable, writeScript(t, "exit 7"))
	s.dial = func(ctx context.Context, addr string) (transport.Conn, error) {
		return nil, errors.New("connection refused")
	}

	failed := make(chan struct{}, 1)
	done := make(chan struct{}, 1)
	s.Start(StartSpec{Lobby: protocol.NewLobbyID(), Token: uuid.New(), Port: 4000}, Hooks{
		TokensReady: func(map[protocol.PlayerID]protocol.ConnectToken) { t.Error("unexpected TokensReady") },
		Failed:      func() { failed <- struct{}{} },
		Done:        func() { done <- struct{}{} },
	})

	select {
	case <-failed:
	case <-time.After(hookTimeout):
		t.Fatal("Failed never fired")
	}
	select {
	case <-done:
	case <-time.After(hookTimeout):
		t.Fatal("Done never fired")
	}
}

func TestStartCancelDuringBootstrap(t *testing.T) {
	s := New(newTestLogger(), config.LaunchExecutable, writeScript(t, "exec sleep 30"))
	s.dial = func(ctx context.Context, addr string) (transport.Conn, error) {
		return nil, errors.New("connection refused")
	}

	failed := make(chan struct{}, 1)
	done := make(chan struct{}, 1)
	h := s.Start(StartSpec{Lobby: protocol.NewLobbyID(), Token: uuid.New(), Port: 4000}, Hooks{
		TokensReady: func(map[protocol.PlayerID]protocol.ConnectToken) { t.Error("unexpected TokensReady") },
		Failed:      func() { failed <- struct{}{} },
		Done:        func() { done <- struct{}{} },
	})

	h.Cancel()

	select {
	case <-done:
	case <-time.After(hookTimeout):
		t.Fatal("Done never fired after cancel")
	}
	select {
	case <-failed:
		t.Fatal("cancel must not count as failure")
	default:
	}
}

func TestStartChildDeathAfterBootstrapFails(t *testing.T) {
	pid := protocol.NewPlayerID()
	reply, err := protocol.EncodeFromGameServer(protocol.PlayerTokensGenerated{
		Players: map[protocol.PlayerID]protocol.ConnectToken{pid: protocol.ConnectToken("tok")},
	})
	require.NoError(t, err)
	var framed bytes.Buffer
	require.NoError(t, protocol.WriteFramed(&framed, reply))
	conn := &fakeConn{reply: framed.Bytes(), received: make(chan []byte, 1)}

	// Child lives just long enough to bootstrap, then dies non-zero.
	s := New(newTestLogger(), config.LaunchExecutable, writeScript(t, "sleep 2; exit 3"))
	s.dial = func(ctx context.Context, addr string) (transport.Conn, error) { return conn, nil }

	tokens := make(chan map[protocol.PlayerID]protocol.ConnectToken, 1)
	failed := make(chan struct{}, 1)
	done := make(chan struct{}, 1)
	s.Start(StartSpec{Lobby: protocol.NewLobbyID(), Token: uuid.New(), Port: 4000}, Hooks{
		TokensReady: func(tk map[protocol.PlayerID]protocol.ConnectToken) { tokens <- tk },
		Failed:      func() { failed <- struct{}{} },
		Done:        func() { done <- struct{}{} },
	})

	select {
	case <-tokens:
	case <-time.After(hookTimeout):
		t.Fatal("TokensReady never fired")
	}
	select {
	case <-failed:
	case <-time.After(hookTimeout):
		t.Fatal("Failed never fired after child death")
	}
	select {
	case <-done:
	case <-time.After(hookTimeout):
		t.Fatal("Done never fired")
	}
}
