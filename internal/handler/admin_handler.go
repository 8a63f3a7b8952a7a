package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studentconnect/internal/domain"
	"studentconnect/internal/models"
	"studentconnect/internal/repository"
	"studentconnect/internal/service"
)

// AdminHandler serves the consultancy dashboard: code generation, usage
// overviews and report review.
type AdminHandler struct {
	users     *repository.UserRepository
	referrals *repository.ReferralRepository
	reports   *repository.ReportRepository
	stats     *service.StatsService
	firebase  *service.FirebaseService
	archive   *service.ArchiveService
	gateway   *Gateway
	log       *zap.SugaredLogger
}

func NewAdminHandler(
	users *repository.UserRepository,
	referrals *repository.ReferralRepository,
	reports *repository.ReportRepository,
	stats *service.StatsService,
	firebase *service.FirebaseService,
	archive *service.ArchiveService,
	gateway *Gateway,
) *AdminHandler {
	return &AdminHandler{
		users:     users,
		referrals: referrals,
		reports:   reports,
		stats:     stats,
		firebase:  firebase,
		archive:   archive,
		gateway:   gateway,
		log:       zap.S(),
	}
}

type GenerateReferralsRequest struct {
	ConsultancyName string `json:"consultancyName" binding:"required,min=2,max=64"`
	Count           int    `json:"count" binding:"required,min=1,max=500"`
}

// GenerateReferrals creates a consultancy with a batch of codes.
func (h *AdminHandler) GenerateReferrals(c *gin.Context) {
	var req GenerateReferralsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	createdBy := c.GetString("userID")
	consultancy, codes := h.referrals.GenerateBatch(req.ConsultancyName, createdBy, req.Count)

	h.firebase.SaveConsultancy(consultancy, codes)
	h.archive.SaveConsultancy(consultancy)
	for _, rc := range codes {
		h.archive.SaveReferralCode(rc)
	}
	h.stats.Kick()
	h.log.Infow("[admin] referral batch generated",
		"consultancy", req.ConsultancyName, "count", req.Count, "createdBy", createdBy)

	c.JSON(http.StatusCreated, gin.H{"consultancy": consultancy, "codes": codes})
}

// ListConsultancies returns all consultancies sorted by creation time.
func (h *AdminHandler) ListConsultancies(c *gin.Context) {
	list := h.referrals.ListConsultancies()
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	c.JSON(http.StatusOK, gin.H{"consultancies": list})
}

// GetConsultancy returns one consultancy with its codes partitioned by state.
func (h *AdminHandler) GetConsultancy(c *gin.Context) {
	consultancy, err := h.referrals.GetConsultancy(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "consultancy not found"})
		return
	}
	now := time.Now()
	var unused, used, expired []*models.ReferralCode
	for _, code := range consultancy.Codes {
		rc, err := h.referrals.GetCode(code)
		if err != nil {
			continue
		}
		switch {
		case rc.IsUsed:
			used = append(used, rc)
		case rc.Expired(now):
			expired = append(expired, rc)
		default:
			unused = append(unused, rc)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"consultancy": consultancy,
		"unusedCodes": unused,
		"usedCodes":   used,
		"expired":     expired,
	})
}

// PlatformStats serves the same snapshot the gateway broadcasts.
func (h *AdminHandler) PlatformStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Compute())
}

// ListReports returns all reports, pending first, newest within each group.
func (h *AdminHandler) ListReports(c *gin.Context) {
	list := h.reports.List()
	sort.Slice(list, func(i, j int) bool {
		if (list[i].Status == domain.ReportStatusPending) != (list[j].Status == domain.ReportStatusPending) {
			return list[i].Status == domain.ReportStatusPending
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	c.JSON(http.StatusOK, gin.H{"reports": list})
}

// ListUsers returns every account for the dashboard.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	list := h.users.List()
	sort.Slice(list, func(i, j int) bool { return list[i].JoinedAt.Before(list[j].JoinedAt) })
	c.JSON(http.StatusOK, gin.H{"users": list})
}

type VerifyVisaRequest struct {
	Country string `json:"country" binding:"required"`
}

// VerifyVisa approves an uploaded visa document, locking the account to the
// approved country.
func (h *AdminHandler) VerifyVisa(c *gin.Context) {
	userID := c.Param("id")
	var req VerifyVisaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.users.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if user.VisaPhotoURL == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "no visa document uploaded"})
		return
	}
	if err := h.users.SetVisaVerified(userID, req.Country, user.VisaPhotoURL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}
	if fresh, err := h.users.GetByID(userID); err == nil {
		h.firebase.SaveUser(fresh)
		h.archive.SaveUser(fresh)
	}
	h.log.Infow("[admin] visa verified", "userId", userID, "country", req.Country)
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

// BanUser applies a manual ban and force-disconnects the account.
func (h *AdminHandler) BanUser(c *gin.Context) {
	userID := c.Param("id")
	user, err := h.users.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if !user.IsBanned {
		// Push the weight past the threshold so the ban is recorded through
		// the same monotonic path reports use.
		remaining := domain.BanThreshold - user.ReportCount
		if remaining < 0 {
			remaining = 0
		}
		if _, bannedNow, err := h.users.AddReportWeight(userID, remaining); err == nil && bannedNow {
			h.gateway.BanUser(userID)
		}
	}
	c.JSON(http.StatusOK, gin.H{"banned": true})
}
