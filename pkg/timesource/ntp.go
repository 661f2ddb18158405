package timesource

import (
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/itohio/gohtu/pkg/config"
	"go.uber.org/zap"
)

// Layout is the format of NowFormatted.
const Layout = "15:04:05"

// QueryFunc asks an NTP server for the local clock's offset.
type QueryFunc func(host string) (*ntp.Response, error)

// NTP is a wall clock corrected by periodic NTP queries and shifted by a
// fixed UTC offset. A failed query keeps the previous correction.
type NTP struct {
	server    string
	utcOffset time.Duration
	interval  time.Duration
	query     QueryFunc
	now       func() time.Time
	logger    *zap.Logger

	mu         sync.Mutex
	correction time.Duration
	lastQuery  time.Time
	queried    bool
}

// New creates an NTP time source querying cfg.NTPServer.
func New(cfg *config.TimeConfig, logger *zap.Logger) *NTP {
	return NewWithQuery(cfg, ntp.Query, time.Now, logger)
}

// NewWithQuery creates an NTP time source with an explicit query function and system clock.
func NewWithQuery(cfg *config.TimeConfig, query QueryFunc, now func() time.Time, logger *zap.Logger) *NTP {
	return &NTP{
		server:    cfg.NTPServer,
		utcOffset: cfg.UTCOffset,
		interval:  cfg.UpdateInterval,
		query:     query,
		now:       now,
		logger:    logger,
	}
}

// Update queries the server and stores the clock correction.
func (s *NTP) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update()
}

func (s *NTP) update() error {
	s.lastQuery = s.now()
	s.queried = true

	resp, err := s.query(s.server)
	if err != nil {
		return fmt.Errorf("query %s: %w", s.server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("validate %s: %w", s.server, err)
	}

	s.correction = resp.ClockOffset
	s.logger.Debug("ntp updated",
		zap.String("server", s.server),
		zap.Duration("offset", resp.ClockOffset),
		zap.Duration("rtt", resp.RTT),
	)
	return nil
}

// Now returns the corrected local time, querying the server first when the
// update interval has passed.
func (s *NTP) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.queried || s.now().Sub(s.lastQuery) >= s.interval {
		if err := s.update(); err != nil {
			s.logger.Warn("ntp update failed", zap.Error(err))
		}
	}
	return s.now().Add(s.correction).UTC().Add(s.utcOffset)
}

// NowFormatted returns Now as HH:MM:SS.
func (s *NTP) NowFormatted() string {
	return s.Now().Format(Layout)
}
