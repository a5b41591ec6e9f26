package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noakmilo/qventory-backend/pkg/logger"
)

func TestNewScheduler(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(newFakeStore(), &fakeExecutor{}, nil, &recordingNotifier{})
	log := logger.New("error", "text")

	s, err := NewScheduler(eng, time.Hour, time.Minute, log)
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 2)
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(newFakeStore(), &fakeExecutor{}, nil, &recordingNotifier{})
	log := logger.New("error", "text")

	s, err := NewScheduler(eng, time.Hour, time.Hour, log)
	require.NoError(t, err)

	s.Start()
	done := s.Stop()

	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}
