package notifications

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_SilentRelayRespectsDeadline(t *testing.T) {
	t.Parallel()

	// A relay that accepts the TCP connection but never sends an SMTP
	// greeting. Without a connection deadline, Send would block on the
	// greeting read forever.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()
	t.Cleanup(func() {
		select {
		case conn := <-accepted:
			conn.Close()
		default:
		}
	})

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	mailer := NewSMTPMailer(host, port, "haven@localhost")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- mailer.Send(ctx, "member@example.org", "Welcome", "hello")
	}()

	select {
	case err := <-done:
		require.Error(t, err, "a silent relay must fail the send, not hang it")
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after the context deadline expired")
	}
}

func TestSMTPMailer_RefusedConnectionFails(t *testing.T) {
	t.Parallel()

	// Grab a port and close it again so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	mailer := NewSMTPMailer(host, port, "haven@localhost")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.Error(t, mailer.Send(ctx, "member@example.org", "Welcome", "hello"))
}
