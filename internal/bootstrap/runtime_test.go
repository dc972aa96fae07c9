package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/videold-go/internal/domain"
	"github.com/yourusername/videold-go/internal/infrastructure"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type refusingDialer struct{}

func (refusingDialer) Dial(ctx context.Context, rawURL string) (infrastructure.WSConn, error) {
	return nil, errors.New("connection refused")
}

func testConfig(t *testing.T) *domain.Config {
	t.Helper()
	config := domain.DefaultConfig()
	config.Backend.BaseURL = "http://localhost:9"
	config.Download.OutputDir = t.TempDir()
	return config
}

func TestBuild_Minimal(t *testing.T) {
	rt, err := Build(context.Background(), testConfig(t), zap.NewNop(), Options{})
	require.NoError(t, err)

	assert.NotNil(t, rt.Orchestrator)
	assert.Nil(t, rt.Channel)
	assert.Nil(t, rt.EventLogger)
	assert.NotNil(t, rt.Saver)
	assert.NoError(t, rt.Close())
}

func TestBuild_WithEventLogsAndProgressChannel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	config := testConfig(t)
	config.Logging.LogsDir = t.TempDir()
	config.Progress.Enabled = true

	rt, err := Build(context.Background(), config, zap.NewNop(), Options{Dialer: refusingDialer{}})
	require.NoError(t, err)

	assert.NotNil(t, rt.EventLogger)
	require.NotNil(t, rt.Channel)
	assert.False(t, rt.Channel.Connected())

	assert.NoError(t, rt.Close())
	assert.NoError(t, rt.Close())
}

func TestBuild_InvalidProgressEndpoint(t *testing.T) {
	config := testConfig(t)
	config.Progress.Enabled = true
	config.Backend.SocketURL = "ftp://push.example.com"

	_, err := Build(context.Background(), config, zap.NewNop(), Options{Dialer: refusingDialer{}})
	assert.ErrorContains(t, err, "failed to create progress channel")
}
