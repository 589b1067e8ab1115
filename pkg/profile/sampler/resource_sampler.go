package sampler

import (
	"context"
	"fmt"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
	"os"
	"runtime"
	"time"
)

const sampleTimeout = 250 * time.Millisecond

// ResourceSampler reads process-wide counters. Implementations must be safe to call from any
// goroutine without external locking.
type ResourceSampler interface {
	// ElapsedSinceStart is the wall time since the given request start instant.
	ElapsedSinceStart(start time.Time) time.Duration
	// PeakMemory is the process memory high-water mark in bytes.
	PeakMemory() uint64
	// CurrentMemory is the process resident memory in bytes.
	CurrentMemory() uint64
}

// ProcessSamplerImpl samples the current process through gopsutil. When the platform does not
// expose a reading it falls back to the Go runtime's own accounting.
type ProcessSamplerImpl struct {
	proc   *process.Process
	now    func() time.Time
	logger *zap.Logger
}

func NewProcessSamplerImpl(logger *zap.Logger) (*ProcessSamplerImpl, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to open current process for sampling: %w", err)
	}
	return &ProcessSamplerImpl{
		proc:   proc,
		now:    time.Now,
		logger: logger,
	}, nil
}

func (s *ProcessSamplerImpl) ElapsedSinceStart(start time.Time) time.Duration {
	return s.now().Sub(start)
}

func (s *ProcessSamplerImpl) PeakMemory() uint64 {
	info, err := s.memoryInfo()
	if err != nil || info.HWM == 0 {
		return runtimeMemory().Sys
	}
	return info.HWM
}

func (s *ProcessSamplerImpl) CurrentMemory() uint64 {
	info, err := s.memoryInfo()
	if err != nil || info.RSS == 0 {
		return runtimeMemory().HeapInuse
	}
	return info.RSS
}

func (s *ProcessSamplerImpl) memoryInfo() (*process.MemoryInfoStat, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sampleTimeout)
	defer cancel()
	info, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		s.logger.Debug("Failed to read process memory, using runtime statistics", zap.Error(err))
		return nil, err
	}
	return info, nil
}

func runtimeMemory() runtime.MemStats {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats
}
