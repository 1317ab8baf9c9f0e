package service

import "time"

type Option func(*NotifyService)

func WithFanoutWorkers(workers int) Option {
	return func(s *NotifyService) {
		if workers > 0 {
			s.fanoutWorkers = workers
		}
	}
}

func WithFanoutBatch(size int) Option {
	return func(s *NotifyService) {
		if size > 0 {
			s.fanoutBatch = size
		}
	}
}

func WithSweepBatch(size int) Option {
	return func(s *NotifyService) {
		if size > 0 {
			s.sweepBatch = size
		}
	}
}

// WithClock overrides the service clock. Tests use it to drive
// scheduling deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *NotifyService) {
		if now != nil {
			s.now = now
		}
	}
}
