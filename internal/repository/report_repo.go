package repository

import (
	"sync"
	"time"

	"studentconnect/internal/domain"
	"studentconnect/internal/models"

	"github.com/google/uuid"
)

// ReportRepository stores explicit user reports. Review and resolution happen
// in the admin dashboard; here reports only accumulate.
type ReportRepository struct {
	mu      sync.RWMutex
	reports map[string]*models.Report
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{reports: make(map[string]*models.Report)}
}

func (r *ReportRepository) Create(reporterID, reportedUserID, reason, message string) *models.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep := &models.Report{
		ID:             uuid.NewString(),
		ReporterID:     reporterID,
		ReportedUserID: reportedUserID,
		Reason:         reason,
		Message:        message,
		Status:         domain.ReportStatusPending,
		CreatedAt:      time.Now(),
	}
	r.reports[rep.ID] = rep
	cp := *rep
	return &cp
}

func (r *ReportRepository) CountPending() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, rep := range r.reports {
		if rep.Status == domain.ReportStatusPending {
			n++
		}
	}
	return n
}

func (r *ReportRepository) List() []*models.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Report, 0, len(r.reports))
	for _, rep := range r.reports {
		cp := *rep
		out = append(out, &cp)
	}
	return out
}

// Restore inserts an archived report during boot.
func (r *ReportRepository) Restore(rep *models.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rep
	r.reports[rep.ID] = &cp
}
