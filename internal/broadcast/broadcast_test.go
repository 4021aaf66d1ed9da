package broadcast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/internal/broadcast"
)

func TestSendFansOutToAllSubscribers(t *testing.T) {
	b := broadcast.New[int]()
	r1 := b.Subscribe(4)
	r2 := b.Subscribe(4)

	b.Send(42)

	assert.Equal(t, 42, <-r1.C())
	assert.Equal(t, 42, <-r2.C())
}

func TestLaggedDropsOldestAndKeepsNewest(t *testing.T) {
	b := broadcast.New[int]()
	r := b.Subscribe(1)

	b.Send(1)
	b.Send(2) // buffer full: 1 is evicted, lagged++, then 2 is enqueued

	require.Equal(t, 2, <-r.C())
	assert.Equal(t, uint64(1), r.TakeLagged())
	assert.Equal(t, uint64(0), r.TakeLagged())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := broadcast.New[int]()
	r := b.Subscribe(1)
	r.Unsubscribe()

	_, ok := <-r.C()
	assert.False(t, ok)
}
