// Package transport wraps the QUIC layer behind a small Conn interface so
// the state engine, the supervisor and the tests never depend on quic-go
// directly. Every logical message rides its own unidirectional stream.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// ALPN identifies the lobby protocol during the TLS handshake.
const ALPN = "moba-lobby"

const keepAliveInterval = 15 * time.Second

// Conn is one live peer connection.
type Conn interface {
	// AcceptUni waits for the peer to open a unidirectional stream and
	// returns its read side. The stream ends at EOF.
	AcceptUni(ctx context.Context) (io.Reader, error)
	// OpenUni opens a unidirectional stream towards the peer. Closing the
	// writer finishes the stream.
	OpenUni(ctx context.Context) (io.WriteCloser, error)
	Close() error
	RemoteAddr() net.Addr
}

// Listener accepts inbound lobby connections.
type Listener struct {
	ql *quic.Listener
}

// Listen binds the dual-stack UDP listener with a fresh self-signed TLS
// identity for localhost.
func Listen(port int) (*Listener, error) {
	ident, err := selfSignedIdentity()
	if err != nil {
		return nil, fmt.Errorf("generating TLS identity: %w", err)
	}
	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{ident},
		NextProtos:   []string{ALPN},
	}
	ql, err := quic.ListenAddr(fmt.Sprintf("[::]:%d", port), tlsConf, quicConfig())
	if err != nil {
		return nil, err
	}
	return &Listener{ql: ql}, nil
}

// Accept waits for the next inbound connection.
func (l *Listener) Accept(ctx context.Context) (Conn, error) {
	qc, err := l.ql.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return &quicConn{qc}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ql.Addr()
}

// Close stops accepting; live connections survive.
func (l *Listener) Close() error {
	return l.ql.Close()
}

// Dial opens an outbound connection, used for the lobby → game-server
// bootstrap link. The peer's self-signed identity is not verified.
func Dial(ctx context.Context, addr string) (Conn, error) {
	tlsConf := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{ALPN},
	}
	qc, err := quic.DialAddr(ctx, addr, tlsConf, quicConfig())
	if err != nil {
		return nil, err
	}
	return &quicConn{qc}, nil
}

func quicConfig() *quic.Config {
	return &quic.Config{
		KeepAlivePeriod: keepAliveInterval,
		MaxIdleTimeout:  4 * keepAliveInterval,
	}
}

type quicConn struct {
	qc quic.Connection
}

func (c *quicConn) AcceptUni(ctx context.Context) (io.Reader, error) {
	return c.qc.AcceptUniStream(ctx)
}

func (c *quicConn) OpenUni(ctx context.Context) (io.WriteCloser, error) {
	return c.qc.OpenUniStreamSync(ctx)
}

func (c *quicConn) Close() error {
	return c.qc.CloseWithError(0, "")
}

func (c *quicConn) RemoteAddr() net.Addr {
	return c.qc.RemoteAddr()
}
