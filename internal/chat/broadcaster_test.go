package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"intern-portal/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestLocalBroadcaster_DeliverRacesUnsubscribeAll(t *testing.T) {
	const (
		n       = 40
		senders = 8
		rounds  = 50
	)
	reg := NewRegistry()
	lb := NewLocalBroadcaster(reg, logger.Discard(), nil)
	ctx := context.Background()

	conns := make([]*fakeConn, n)
	for i := range conns {
		conns[i] = newConn(fmt.Sprintf("c%d", i), uint(i+1))
		reg.Register(conns[i])
		require.NoError(t, reg.Subscribe(conns[i], 1))
	}
	msg := &Delivered{ChatMessage: ChatMessage{ID: 1, ProjectID: 1, Text: "x"}}
	frame, err := EncodeDelivered(msg)
	require.NoError(t, err)

	// the even half leaves while broadcasts are in flight
	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				if s%2 == 0 {
					lb.Deliver(ctx, 1, frame)
				} else {
					assert.NoError(t, lb.Broadcast(ctx, 1, msg))
				}
			}
		}(s)
	}
	for i := 0; i < n; i += 2 {
		wg.Add(1)
		go func(c *fakeConn) {
			defer wg.Done()
			reg.UnsubscribeAll(c)
		}(conns[i])
	}
	wg.Wait()

	before := make([]int, n)
	for i, c := range conns {
		before[i] = c.frameCount()
	}

	assert.Equal(t, n/2, lb.Deliver(ctx, 1, frame))
	require.NoError(t, lb.Broadcast(ctx, 1, msg))

	for i, c := range conns {
		if i%2 == 0 {
			assert.Equal(t, before[i], c.frameCount(), "%s received after leaving", c.id)
		} else {
			assert.Equal(t, before[i]+2, c.frameCount(), c.id)
		}
	}
	assert.Len(t, reg.SubscribersOf(1), n/2)
}
