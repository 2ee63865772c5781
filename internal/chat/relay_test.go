package chat

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopnearby-backend/pkg/enums"
	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
	"github.com/angelmondragon/shopnearby-backend/pkg/redis"
)

func TestRedisRelayBetweenHubs(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewFromRaw(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})

	relay, err := NewRedisRelay(client, "chat", logg)
	require.NoError(t, err)

	sender, err := NewHub(HubParams{AutoReply: "auto", Relay: relay, Logger: logg})
	require.NoError(t, err)
	receiver, err := NewHub(HubParams{Logger: logg})
	require.NoError(t, err)

	sub, err := receiver.Subscribe("conv-1", 4)
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx, receiver) }()

	// Run subscribes asynchronously; wait until miniredis sees the subscriber.
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("sn:channel:*")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = sender.Send(ctx, "conv-1", enums.ChatSenderUser, "hello from another node")
	require.NoError(t, err)

	for _, want := range []string{"hello from another node", "auto"} {
		select {
		case msg := <-sub.C:
			require.Equal(t, want, msg.Body)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	cancel()
	require.NoError(t, <-done)
}

func TestNewRedisRelayValidates(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	_, err := NewRedisRelay(nil, "chat", logg)
	require.Error(t, err)
}
