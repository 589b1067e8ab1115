package sampler

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"testing"
	"time"
)

func TestProcessSamplerImpl(t *testing.T) {
	s, err := NewProcessSamplerImpl(zap.NewNop())
	require.Nil(t, err)

	t.Run("Reports a non zero current and peak memory", func(t *testing.T) {
		current := s.CurrentMemory()
		peak := s.PeakMemory()
		assert.Greater(t, current, uint64(0))
		assert.Greater(t, peak, uint64(0))
	})

	t.Run("Measures elapsed time from the given start", func(t *testing.T) {
		start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		s.now = func() time.Time {
			return start.Add(1500 * time.Millisecond)
		}
		assert.Equal(t, 1500*time.Millisecond, s.ElapsedSinceStart(start))
	})
}
