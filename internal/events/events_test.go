package events

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "tutor.session.started", Subject(TypeSessionStarted))
	assert.Equal(t, "tutor.session.transition", Subject(TypeSessionTransition))
	assert.Equal(t, "tutor.session.ended", Subject(TypeSessionEnded))
}

func TestNew_DisabledIsNop(t *testing.T) {
	p, err := New(Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeSessionStarted}))
	assert.NoError(t, p.Close())
}

func TestNATSPublisher_Publish(t *testing.T) {
	server := startTestNATSServer(t)

	sub, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	received := make(chan Event, 3)
	_, err = Subscribe(sub, SubjectPrefix+"session.>", func(e Event) { received <- e })
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	p, err := New(Config{URL: server.ClientURL()}, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, Event{
		Type:      TypeSessionStarted,
		SessionID: "s-1",
		UserID:    "u-1",
		Data:      map[string]any{"topic": "Python"},
	}))
	require.NoError(t, p.Publish(ctx, Event{Type: TypeSessionEnded, SessionID: "s-1"}))
	require.NoError(t, p.(*NATSPublisher).Flush(ctx))

	var got []Event
	for len(got) < 2 {
		select {
		case e := <-received:
			got = append(got, e)
		case <-time.After(5 * time.Second):
			t.Fatalf("received %d of 2 events", len(got))
		}
	}

	assert.Equal(t, TypeSessionStarted, got[0].Type)
	assert.Equal(t, "s-1", got[0].SessionID)
	assert.Equal(t, "u-1", got[0].UserID)
	assert.Equal(t, "Python", got[0].Data["topic"])
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Equal(t, TypeSessionEnded, got[1].Type)
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	p := NewNATSPublisher(nc, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, Event{Type: TypeSessionStarted}), context.Canceled)

	// Close on a borrowed connection leaves it usable.
	require.NoError(t, p.Close())
	assert.True(t, nc.IsConnected())
}
