package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"studentconnect/internal/models"
	"studentconnect/internal/repository"
)

// ArchiveService persists durable records (users, codes, reports, sessions)
// to MySQL. Like the Firebase side channel the writes are asynchronous and
// best-effort; the in-memory repositories remain the source of truth while
// the process is up. At boot Load warms the repositories back from the
// archive so restarts keep accounts and referral state.
type ArchiveService struct {
	db *gorm.DB
}

// NewArchiveService wraps a gorm handle. A nil db disables archiving.
func NewArchiveService(db *gorm.DB) *ArchiveService {
	if db == nil {
		return nil
	}
	return &ArchiveService{db: db}
}

func (s *ArchiveService) async(op string, fn func(ctx context.Context) error) {
	if s == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			zap.S().Warnw("[archive] write failed", "op", op, "error", err)
		}
	}()
}

func (s *ArchiveService) SaveUser(u *models.User) {
	rec := *u
	s.async("save-user", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Save(&rec).Error
	})
}

func (s *ArchiveService) SaveReferralCode(rc *models.ReferralCode) {
	rec := *rc
	s.async("save-referral-code", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Save(&rec).Error
	})
}

func (s *ArchiveService) SaveConsultancy(c *models.Consultancy) {
	rec := *c
	s.async("save-consultancy", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Save(&rec).Error
	})
}

func (s *ArchiveService) SaveReport(r *models.Report) {
	rec := *r
	s.async("save-report", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Save(&rec).Error
	})
}

func (s *ArchiveService) SaveSession(sess *models.DeviceSession) {
	rec := *sess
	s.async("save-session", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Save(&rec).Error
	})
}

// Load warms the in-memory repositories from the archive. Users come back
// offline; chat history is deliberately not archived, rooms start empty.
func (s *ArchiveService) Load(
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	referrals *repository.ReferralRepository,
	reports *repository.ReportRepository,
) error {
	if s == nil {
		return nil
	}

	var storedUsers []models.User
	if err := s.db.Find(&storedUsers).Error; err != nil {
		return err
	}
	for i := range storedUsers {
		storedUsers[i].IsOnline = false
		users.Restore(&storedUsers[i])
	}

	var storedSessions []models.DeviceSession
	if err := s.db.Find(&storedSessions).Error; err != nil {
		return err
	}
	for i := range storedSessions {
		sessions.Restore(&storedSessions[i])
	}

	var consultancies []models.Consultancy
	if err := s.db.Find(&consultancies).Error; err != nil {
		return err
	}
	var codes []models.ReferralCode
	if err := s.db.Find(&codes).Error; err != nil {
		return err
	}
	byConsultancy := make(map[string][]*models.ReferralCode)
	for i := range codes {
		byConsultancy[codes[i].ConsultancyID] = append(byConsultancy[codes[i].ConsultancyID], &codes[i])
	}
	for i := range consultancies {
		c := &consultancies[i]
		referrals.Restore(c, byConsultancy[c.ID])
	}

	var storedReports []models.Report
	if err := s.db.Find(&storedReports).Error; err != nil {
		return err
	}
	for i := range storedReports {
		reports.Restore(&storedReports[i])
	}

	zap.S().Infow("[archive] state restored",
		"users", len(storedUsers),
		"sessions", len(storedSessions),
		"consultancies", len(consultancies),
		"codes", len(codes),
		"reports", len(storedReports),
	)
	return nil
}
