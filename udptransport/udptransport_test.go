package udptransport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendRecvLoopback(t *testing.T) {
	server, err := Listen()
	require.NoError(t, err)
	defer server.Close()

	client, err := Listen()
	require.NoError(t, err)
	defer client.Close()

	serverAddr := server.LocalAddress()
	require.NoError(t, client.SetRemoteAddress("127.0.0.1", serverAddr.Port))
	require.NoError(t, client.Send([]byte("ping")))

	buf := make([]byte, 64)
	n, from, err := server.Recv(buf, time.Second)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))

	server.SetRemoteAddr(from)
	require.NoError(t, server.Send([]byte("pong")))

	n, _, err = client.Recv(buf, time.Second)
	require.NoError(t, err)
	require.Equal(t, "pong", string(buf[:n]))
}

func TestRecvTimesOut(t *testing.T) {
	ep, err := Listen()
	require.NoError(t, err)
	defer ep.Close()

	buf := make([]byte, 64)
	_, _, err = ep.Recv(buf, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}
