package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"studentconnect/internal/domain"
	"studentconnect/internal/repository"
)

// Stats is the platform-wide snapshot broadcast to every connected client.
type Stats struct {
	TotalUsers           int            `json:"totalUsers"`
	OnlineUsers          int            `json:"onlineUsers"`
	TotalMessages        int            `json:"totalMessages"`
	TotalConsultancies   int            `json:"totalConsultancies"`
	TotalReferralCodes   int            `json:"totalReferralCodes"`
	UsedReferralCodes    int            `json:"usedReferralCodes"`
	ExpiredReferralCodes int            `json:"expiredReferralCodes"`
	PendingReports       int            `json:"pendingReports"`
	CountryStats         []CountryStats `json:"countryStats"`
	Timestamp            time.Time      `json:"timestamp"`
}

// CountryStats is the per-room slice of the snapshot.
type CountryStats struct {
	Country       string `json:"country"`
	Name          string `json:"name"`
	Flag          string `json:"flag"`
	ActiveUsers   int    `json:"activeUsers"`
	TotalMessages int    `json:"totalMessages"`
}

// StatsService recomputes the snapshot on a fixed interval and on demand
// after membership changes. Publishing goes through an injected func so the
// service stays transport-free.
type StatsService struct {
	users     *repository.UserRepository
	rooms     *repository.RoomRegistry
	referrals *repository.ReferralRepository
	reports   *repository.ReportRepository
	publish   func(Stats)
	interval  time.Duration
	kick      chan struct{}
}

func NewStatsService(
	users *repository.UserRepository,
	rooms *repository.RoomRegistry,
	referrals *repository.ReferralRepository,
	reports *repository.ReportRepository,
	interval time.Duration,
	publish func(Stats),
) *StatsService {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &StatsService{
		users:     users,
		rooms:     rooms,
		referrals: referrals,
		reports:   reports,
		publish:   publish,
		interval:  interval,
		kick:      make(chan struct{}, 1),
	}
}

// Compute assembles a fresh snapshot from the repositories.
func (s *StatsService) Compute() Stats {
	total, used, expired := s.referrals.CodeStats(time.Now())
	st := Stats{
		TotalUsers:           s.users.Count(),
		OnlineUsers:          s.users.CountOnline(),
		TotalMessages:        s.rooms.TotalMessages(),
		TotalConsultancies:   s.referrals.ConsultancyCount(),
		TotalReferralCodes:   total,
		UsedReferralCodes:    used,
		ExpiredReferralCodes: expired,
		PendingReports:       s.reports.CountPending(),
		Timestamp:            time.Now(),
	}
	for _, c := range domain.Countries {
		st.CountryStats = append(st.CountryStats, CountryStats{
			Country:       c.ID,
			Name:          c.Name,
			Flag:          c.Flag,
			ActiveUsers:   s.rooms.ActiveCount(c.ID),
			TotalMessages: s.rooms.MessageCount(c.ID),
		})
	}
	return st
}

// SetPublish installs the publish func. Called once during wiring, before
// Run starts; the gateway and the aggregator reference each other so one of
// them has to be completed late.
func (s *StatsService) SetPublish(fn func(Stats)) {
	s.publish = fn
}

// Kick requests an out-of-band publish. Multiple kicks between ticks
// coalesce into one.
func (s *StatsService) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run publishes once immediately, then on every tick and every kick until
// the context is cancelled.
func (s *StatsService) Run(ctx context.Context) {
	if s.publish == nil {
		s.publish = func(Stats) {}
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.publish(s.Compute())
	for {
		select {
		case <-ctx.Done():
			zap.S().Info("[stats] aggregator stopped")
			return
		case <-ticker.C:
			s.publish(s.Compute())
		case <-s.kick:
			s.publish(s.Compute())
		}
	}
}
