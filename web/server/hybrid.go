package server

import (
	"bufio"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

// DefaultPeekTimeout is how long a new connection has to send its first bytes
// before it's dropped.
const DefaultPeekTimeout = 10 * time.Second

// PeekConn is a buffered Conn for peeking into the connection.
type PeekConn struct {
	net.Conn
	r *bufio.Reader
}

// Read reads data from the connection using the buffered reader.
// This ensures that any data previously peeked is properly read from the buffer.
func (c *PeekConn) Read(b []byte) (int, error) {
	return c.r.Read(b) //nolint:wrapcheck // Conn errors are returned as is.
}

// Peek returns the next n bytes without advancing the reader.
// The bytes stop being valid at the next read call.
func (c *PeekConn) Peek(n int) ([]byte, error) {
	return c.r.Peek(n) //nolint:wrapcheck // Conn errors are returned as is.
}

func newPeekConn(c net.Conn) *PeekConn {
	return &PeekConn{c, bufio.NewReader(c)}
}

// HybridListener inspects the first bytes of every connection to determine
// whether to serve unencrypted HTTP or TLS. This allows using the same TCP port
// for both. Detection happens in a separate goroutine per connection, so that
// slow or idle clients don't block Accept.
// Source: https://github.com/foreverzmy/http-s-listen-same-port/
type HybridListener struct {
	net.Listener
	tlsConfig   *tls.Config
	logger      *slog.Logger
	peekTimeout time.Duration

	conns     chan net.Conn
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

// NewHybridListener starts accepting connections on ln.
func NewHybridListener(
	ln net.Listener, tlsConfig *tls.Config, peekTimeout time.Duration, logger *slog.Logger,
) *HybridListener {
	if peekTimeout <= 0 {
		peekTimeout = DefaultPeekTimeout
	}
	hl := &HybridListener{
		Listener:    ln,
		tlsConfig:   tlsConfig,
		logger:      logger,
		peekTimeout: peekTimeout,
		conns:       make(chan net.Conn),
		errs:        make(chan error),
		done:        make(chan struct{}),
	}
	go hl.acceptLoop()

	return hl
}

// Accept waits for and returns the next connection to the listener. The
// connection is either a TLS connection or a plain one, depending on whether
// the client started a TLS handshake.
func (ln *HybridListener) Accept() (net.Conn, error) {
	select {
	case c := <-ln.conns:
		return c, nil
	case err := <-ln.errs:
		return nil, err
	case <-ln.done:
		return nil, net.ErrClosed
	}
}

// Close stops accepting connections. Connections still being inspected are
// closed.
func (ln *HybridListener) Close() error {
	ln.closeOnce.Do(func() { close(ln.done) })
	return ln.Listener.Close() //nolint:wrapcheck // Listener errors are returned as is.
}

func (ln *HybridListener) acceptLoop() {
	for {
		conn, err := ln.Listener.Accept()
		if err != nil {
			select {
			case ln.errs <- err:
			case <-ln.done:
				return
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		go ln.detect(conn)
	}
}

func (ln *HybridListener) detect(conn net.Conn) {
	pc := newPeekConn(conn)

	_ = conn.SetReadDeadline(time.Now().Add(ln.peekTimeout))
	b, err := pc.Peek(3)
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil {
		ln.logger.Debug("dropping connection", "remote_addr", conn.RemoteAddr().String(), "error", err.Error())
		_ = conn.Close()
		return
	}

	var c net.Conn = pc
	if isTLSHandshake(b) {
		ln.logger.Debug("accepting TLS connection", "remote_addr", conn.RemoteAddr().String())
		c = tls.Server(pc, ln.tlsConfig)
	} else {
		ln.logger.Debug("accepting HTTP connection", "remote_addr", conn.RemoteAddr().String())
	}

	select {
	case ln.conns <- c:
	case <-ln.done:
		_ = c.Close()
	}
}

// isTLSHandshake returns true if b starts a TLS handshake record (SSL 3.0 up
// to TLS 1.3).
func isTLSHandshake(b []byte) bool {
	return len(b) >= 3 && b[0] == 0x16 && b[1] == 0x03 && b[2] <= 0x04
}
