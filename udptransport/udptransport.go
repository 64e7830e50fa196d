// Package udptransport adapts a bare UDP socket to the one-shot
// send/receive-with-timeout contract the discovery engine needs: bind to
// an ephemeral local port, point it at a resolved remote endpoint, and
// exchange single datagrams without buffering or background goroutines.
package udptransport

import (
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Error is a constant, control-flow error.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrTimeout is returned by Recv when no datagram arrives within the
	// requested deadline.
	ErrTimeout Error = "udptransport: receive timed out"
)

const resolveRetries = 5
const resolveBackoff = 100 * time.Millisecond

// Endpoint is a bound UDP socket with a settable remote peer, mirroring
// the original UdpSocket's localAddress/remoteAddress/setRemoteAddress/
// write/read contract.
type Endpoint struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
}

// Listen binds an Endpoint to an ephemeral local UDP port on all
// interfaces. The remote peer is set later with SetRemoteAddress.
func Listen() (*Endpoint, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, errors.Wrap(err, "udptransport: listen")
	}
	return &Endpoint{conn: conn}, nil
}

// Close releases the underlying socket.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}

// LocalAddress returns the socket's bound local address.
func (e *Endpoint) LocalAddress() *net.UDPAddr {
	return e.conn.LocalAddr().(*net.UDPAddr)
}

// RemoteAddress returns the currently configured remote peer, or nil if
// none has been set yet.
func (e *Endpoint) RemoteAddress() *net.UDPAddr {
	return e.remote
}

// SetRemoteAddress resolves host:port and sets it as the peer subsequent
// Send calls target. Resolution is retried up to resolveRetries times with
// a short backoff, since a transient resolver hiccup should not fail a
// discovery run outright.
func (e *Endpoint) SetRemoteAddress(host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var resolved *net.UDPAddr
	var err error
	for attempt := 0; attempt < resolveRetries; attempt++ {
		resolved, err = net.ResolveUDPAddr("udp4", addr)
		if err == nil {
			break
		}
		time.Sleep(resolveBackoff)
	}
	if err != nil {
		return errors.Wrapf(err, "udptransport: resolve %s after %d attempts", addr, resolveRetries)
	}
	e.remote = resolved
	return nil
}

// SetRemoteAddr sets an already-resolved remote peer directly, skipping
// hostname resolution (used when the discovery engine pivots to a changed
// address reported by the server).
func (e *Endpoint) SetRemoteAddr(addr *net.UDPAddr) {
	e.remote = addr
}

// Send writes p as a single datagram to the configured remote peer.
func (e *Endpoint) Send(p []byte) error {
	if e.remote == nil {
		return errors.New("udptransport: send with no remote address set")
	}
	_, err := e.conn.WriteToUDP(p, e.remote)
	return errors.Wrap(err, "udptransport: send")
}

// Recv blocks for up to timeout waiting for a single datagram from any
// source, returning its payload and source address. It returns ErrTimeout
// if no datagram arrives in time, matching the original UdpSocket::read
// timeout overload.
func (e *Endpoint) Recv(buf []byte, timeout time.Duration) (int, *net.UDPAddr, error) {
	if err := e.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, nil, errors.Wrap(err, "udptransport: set read deadline")
	}
	n, from, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, nil, ErrTimeout
		}
		return 0, nil, errors.Wrap(err, "udptransport: recv")
	}
	return n, from, nil
}
