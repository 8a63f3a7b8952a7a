package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studentconnect/internal/domain"
	"studentconnect/internal/repository"
	"studentconnect/internal/service"
)

// ReportHandler accepts explicit user reports. Each one adds full weight to
// the reported account; crossing the threshold bans and disconnects it.
type ReportHandler struct {
	users    *repository.UserRepository
	reports  *repository.ReportRepository
	firebase *service.FirebaseService
	archive  *service.ArchiveService
	gateway  *Gateway
	log      *zap.SugaredLogger
}

func NewReportHandler(
	users *repository.UserRepository,
	reports *repository.ReportRepository,
	firebase *service.FirebaseService,
	archive *service.ArchiveService,
	gateway *Gateway,
) *ReportHandler {
	return &ReportHandler{
		users:    users,
		reports:  reports,
		firebase: firebase,
		archive:  archive,
		gateway:  gateway,
		log:      zap.S(),
	}
}

type CreateReportRequest struct {
	ReportedUserID string `json:"reportedUserId" binding:"required"`
	Reason         string `json:"reason" binding:"required,min=3,max=500"`
	Message        string `json:"message"`
}

// Create files a report against another user.
func (h *ReportHandler) Create(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reporterID := c.GetString("userID")
	if reporterID == req.ReportedUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot report yourself"})
		return
	}
	if _, err := h.users.GetByID(req.ReportedUserID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reported user not found"})
		return
	}

	report := h.reports.Create(reporterID, req.ReportedUserID, req.Reason, req.Message)
	h.archive.SaveReport(report)

	count, bannedNow, err := h.users.AddReportWeight(req.ReportedUserID, domain.ReportWeightExplicit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	h.log.Infow("[report] filed",
		"reporterId", reporterID, "reportedUserId", req.ReportedUserID, "reportCount", count)
	if fresh, ferr := h.users.GetByID(req.ReportedUserID); ferr == nil {
		h.firebase.SaveUser(fresh)
		h.archive.SaveUser(fresh)
	}
	if bannedNow {
		h.gateway.BanUser(req.ReportedUserID)
	}

	c.JSON(http.StatusCreated, gin.H{"report": report, "reportCount": count})
}
