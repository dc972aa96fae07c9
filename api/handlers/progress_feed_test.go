package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/videold-go/internal/app"
	"github.com/yourusername/videold-go/internal/domain"
	"go.uber.org/zap"
)

func newTestFeed() (*ProgressFeed, *feedClient) {
	client := newFeedClient()
	f := &ProgressFeed{
		logger:  zap.NewNop(),
		clients: map[*feedClient]struct{}{client: {}},
	}
	return f, client
}

func TestBroadcast_SlowClientGetsLatestSnapshot(t *testing.T) {
	f, client := newTestFeed()

	for i := 1; i <= 100; i++ {
		state := domain.StateStreaming
		if i == 100 {
			state = domain.StateCompleted
		}
		f.Broadcast(app.Snapshot{
			Generation: uint64(i),
			Sessions: map[string]domain.TransferSession{
				"single": {Key: "single", State: state, BytesLoaded: int64(i)},
			},
		})
	}

	require.Len(t, client.wake, 1)
	<-client.wake

	var snap app.Snapshot
	require.NoError(t, json.Unmarshal(client.take(), &snap))
	assert.Equal(t, uint64(100), snap.Generation)
	assert.Equal(t, domain.StateCompleted, snap.Sessions["single"].State)

	assert.Nil(t, client.take(), "a delivered snapshot is not sent twice")
}

func TestBroadcast_NoClients(t *testing.T) {
	f := &ProgressFeed{logger: zap.NewNop(), clients: map[*feedClient]struct{}{}}

	assert.NotPanics(t, func() { f.Broadcast(app.Snapshot{}) })
	assert.Equal(t, 0, f.Clients())
}
