package imap

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rvashist/mailwatch/internal/source"
)

// silentServer accepts TCP connections and never speaks, so the TLS
// handshake can only end when the caller's context does.
func silentServer(t *testing.T) (host, port string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				c.Close()
			}
		}()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
		}
	}()

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

func TestFetchMessages_HonorsContextDeadline(t *testing.T) {
	host, port := silentServer(t)
	client := New(host, port, "user", "pass", "", zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := client.FetchMessages(ctx, time.Now().Add(-24*time.Hour))
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		fe, ok := source.AsFetchError(err)
		require.True(t, ok, "expected FetchError, got %v", err)
		assert.Equal(t, source.KindNetwork, fe.Kind)
	case <-time.After(3 * time.Second):
		t.Fatal("FetchMessages still blocked after its context expired")
	}
}

func TestFetchMessages_HonorsCancellation(t *testing.T) {
	host, port := silentServer(t)
	client := New(host, port, "user", "pass", "", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := client.FetchMessages(ctx, time.Now().Add(-24*time.Hour))
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("FetchMessages still blocked after cancellation")
	}
}

func TestNew_DefaultsMailboxToInbox(t *testing.T) {
	c := New("mail.example.com", "993", "u", "p", "", zap.NewNop())
	assert.Equal(t, "INBOX", c.mailbox)

	c = New("mail.example.com", "993", "u", "p", "Archive", zap.NewNop())
	assert.Equal(t, "Archive", c.mailbox)
}
