package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestNewTransferSession(t *testing.T) {
	s := NewTransferSession("m1", "https://youtube.com/watch?v=m1", "18", "First")

	assert.Equal(t, StateIdle, s.State)
	assert.Equal(t, "m1", s.Key)
	assert.Equal(t, "18", s.FormatID)
	assert.Empty(t, s.ID)
	assert.True(t, s.CanStart())
}

func TestTransferSession_Begin(t *testing.T) {
	s := NewTransferSession(SingleSessionKey, "https://example.com/v", "", "")

	require.NoError(t, s.Begin("tx-1", SourceLocal, t0))

	assert.Equal(t, StateInitiating, s.State)
	assert.Equal(t, "tx-1", s.ID)
	assert.Equal(t, t0, s.LastSampleAt)
	assert.NotNil(t, s.StartedAt)
	assert.ErrorIs(t, s.Begin("tx-2", SourceLocal, t0), ErrTransferInProgress)
	assert.Equal(t, "tx-1", s.ID)
}

func TestTransferSession_RestartAfterTerminal(t *testing.T) {
	s := NewTransferSession(SingleSessionKey, "https://example.com/v", "", "")
	require.NoError(t, s.Begin("tx-1", SourceLocal, t0))
	s.AddBytes(10, t0, DefaultSampleInterval)
	s.MarkFailed(&TransferError{Key: s.Key, TransferID: "tx-1", Err: errors.New("boom")}, t0)

	require.NoError(t, s.Begin("tx-2", SourceLocal, t0.Add(time.Second)))

	assert.Equal(t, StateInitiating, s.State)
	assert.Equal(t, int64(0), s.BytesLoaded)
	assert.Empty(t, s.ErrorMessage)
	assert.Nil(t, s.CompletedAt)
}

func TestTransferSession_ThroughputSampling(t *testing.T) {
	s := NewTransferSession(SingleSessionKey, "https://example.com/v", "", "")
	require.NoError(t, s.Begin("tx", SourceLocal, t0.Add(-500*time.Millisecond)))
	s.MarkStreaming(1_000_000)

	// first sample at 200,000 bytes
	require.True(t, s.AddBytes(200_000, t0, DefaultSampleInterval))
	assert.InDelta(t, 20.0, s.Percent, 1e-9)
	assert.InDelta(t, 400_000, s.SpeedBps, 1)

	// second sample 500ms later at 450,000 bytes
	require.True(t, s.AddBytes(250_000, t0.Add(500*time.Millisecond), DefaultSampleInterval))
	assert.InDelta(t, 500_000, s.SpeedBps, 1)
	assert.InDelta(t, 1.1, s.ETASeconds, 0.01)
	assert.InDelta(t, 45.0, s.Percent, 1e-9)
	assert.Equal(t, int64(450_000), s.LastSampleBytes)
}

func TestComputeThroughput_ReferenceSamples(t *testing.T) {
	speed, eta := ComputeThroughput(t0, 200_000, t0.Add(500*time.Millisecond), 450_000, 1_000_000)

	assert.InDelta(t, 500_000, speed, 1)
	assert.InDelta(t, 1.1, eta, 0.01)
}

func TestComputeThroughput_EdgeCases(t *testing.T) {
	// unknown total: no eta
	speed, eta := ComputeThroughput(t0, 0, t0.Add(time.Second), 1000, 0)
	assert.InDelta(t, 1000, speed, 1e-9)
	assert.Zero(t, eta)

	// no progress: no eta
	speed, eta = ComputeThroughput(t0, 500, t0.Add(time.Second), 500, 1000)
	assert.Zero(t, speed)
	assert.Zero(t, eta)

	// zero elapsed is clamped instead of dividing by zero
	speed, _ = ComputeThroughput(t0, 0, t0, 10, 100)
	assert.InDelta(t, 10_000, speed, 1e-6)
}

func TestTransferSession_SamplingIsThrottled(t *testing.T) {
	s := NewTransferSession(SingleSessionKey, "https://example.com/v", "", "")
	require.NoError(t, s.Begin("tx", SourceLocal, t0))

	assert.False(t, s.AddBytes(100, t0.Add(100*time.Millisecond), DefaultSampleInterval))
	assert.Zero(t, s.SpeedBps)
	assert.Equal(t, StateStreaming, s.State)

	assert.True(t, s.AddBytes(100, t0.Add(600*time.Millisecond), DefaultSampleInterval))
	assert.Greater(t, s.SpeedBps, 0.0)
	assert.Equal(t, int64(200), s.LastSampleBytes)
}

func TestTransferSession_BytesMonotonic(t *testing.T) {
	s := NewTransferSession(SingleSessionKey, "https://example.com/v", "", "")
	require.NoError(t, s.Begin("tx", SourceLocal, t0))

	s.AddBytes(100, t0, DefaultSampleInterval)
	s.AddBytes(-50, t0, DefaultSampleInterval)
	assert.Equal(t, int64(100), s.BytesLoaded)

	s.MarkCompleted("/tmp/v.mp4", t0)
	s.AddBytes(100, t0, DefaultSampleInterval)
	assert.Equal(t, int64(100), s.BytesLoaded)
}

func TestTransferSession_PushSourceIgnoresLocalSampling(t *testing.T) {
	s := NewTransferSession(SingleSessionKey, "https://example.com/v", "", "")
	require.NoError(t, s.Begin("tx", SourcePush, t0))
	s.MarkStreaming(1000)

	assert.False(t, s.AddBytes(500, t0.Add(time.Second), DefaultSampleInterval))
	assert.Equal(t, int64(500), s.BytesLoaded)
	assert.Zero(t, s.Percent)

	assert.False(t, s.ApplyPush(ProgressEvent{TransferID: "other", Percent: 10}))
	assert.True(t, s.ApplyPush(ProgressEvent{TransferID: "tx", Percent: 42, Speed: 1000, ETASeconds: 3}))
	assert.Equal(t, 42.0, s.Percent)
	assert.Equal(t, 1000.0, s.SpeedBps)
	assert.Equal(t, 3.0, s.ETASeconds)
}

func TestTransferSession_LocalSourceIgnoresPush(t *testing.T) {
	s := NewTransferSession(SingleSessionKey, "https://example.com/v", "", "")
	require.NoError(t, s.Begin("tx", SourceLocal, t0))

	assert.False(t, s.ApplyPush(ProgressEvent{TransferID: "tx", Percent: 50}))
	assert.Zero(t, s.Percent)
}

func TestTransferSession_MarkCompleted(t *testing.T) {
	s := NewTransferSession(SingleSessionKey, "https://example.com/v", "", "")
	require.NoError(t, s.Begin("tx", SourceLocal, t0))

	s.MarkCompleted("/path/to/file.mp4", t0)

	assert.Equal(t, StateCompleted, s.State)
	assert.Equal(t, "/path/to/file.mp4", s.SavedPath)
	assert.Equal(t, 100.0, s.Percent)
	assert.NotNil(t, s.CompletedAt)
	assert.True(t, s.CanStart())
}

func TestTransferSession_MarkFailed(t *testing.T) {
	s := NewTransferSession("m1", "https://example.com/v", "", "")
	require.NoError(t, s.Begin("tx", SourceLocal, t0))

	s.MarkFailed(&TransferError{Key: "m1", TransferID: "tx", Err: errors.New("reset by peer")}, t0)

	assert.Equal(t, StateFailed, s.State)
	assert.Equal(t, "Download failed.", s.ErrorMessage)
}

func TestTransferState_Predicates(t *testing.T) {
	assert.True(t, StateInitiating.IsActive())
	assert.True(t, StateStreaming.IsActive())
	assert.False(t, StateIdle.IsActive())
	assert.True(t, StateCompleted.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StateStreaming.IsTerminal())
}
