package bus

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/logica-lang/logica/infrastructure/logging"
)

// Sweeper runs CheckTimeouts on a cron schedule for hosts that want
// automatic timeout enforcement. Policy: timers fire only when a host
// constructs a sweeper with an explicit schedule; the kernel itself never
// advances time, and the manual CheckTimeouts sweep stays available (tests
// rely on it).
type Sweeper struct {
	bus      *Bus
	cron     *cron.Cron
	logger   *logging.Logger
	onExpire func([]*Request)
}

// NewSweeper validates the standard 5-field cron schedule (descriptors like
// "@every 30s" are accepted too) and prepares a stopped sweeper. onExpire,
// when non-nil, receives each non-empty expired batch.
func NewSweeper(b *Bus, schedule string, logger *logging.Logger, onExpire func([]*Request)) (*Sweeper, error) {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Sweeper{
		bus:      b,
		cron:     cron.New(),
		logger:   logger,
		onExpire: onExpire,
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("register sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins sweeping in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule. Already-running sweeps finish.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweep() {
	expired := s.bus.CheckTimeouts(time.Now())
	if len(expired) == 0 {
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"expired": len(expired),
	}).Info("request sweep expired pending requests")
	if s.onExpire != nil {
		s.onExpire(expired)
	}
}
