package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"studentconnect/config"
	"studentconnect/internal/auth"
	"studentconnect/internal/domain"
	"studentconnect/internal/models"
	"studentconnect/internal/repository"
	"studentconnect/internal/service"
	"studentconnect/internal/ws"
	"studentconnect/pkg/cloudinary"
)

type AuthHandler struct {
	cfg       *config.Config
	users     *repository.UserRepository
	sessions  *repository.SessionRepository
	referrals *repository.ReferralRepository
	firebase  *service.FirebaseService
	archive   *service.ArchiveService
	hub       *ws.Hub
	uploader  cloudinary.Client
	log       *zap.SugaredLogger
}

func NewAuthHandler(
	cfg *config.Config,
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	referrals *repository.ReferralRepository,
	firebase *service.FirebaseService,
	archive *service.ArchiveService,
	hub *ws.Hub,
	uploader cloudinary.Client,
) *AuthHandler {
	return &AuthHandler{
		cfg:       cfg,
		users:     users,
		sessions:  sessions,
		referrals: referrals,
		firebase:  firebase,
		archive:   archive,
		hub:       hub,
		uploader:  uploader,
		log:       zap.S(),
	}
}

type ValidateReferralRequest struct {
	ReferralCode string `json:"referralCode" binding:"required"`
}

type RegisterReferralRequest struct {
	ReferralCode string `json:"referralCode" binding:"required"`
	Username     string `json:"username" binding:"required,min=2,max=64"`
	Country      string `json:"country" binding:"required"`
	DeviceID     string `json:"deviceId" binding:"required"`
	Avatar       string `json:"avatar"`
}

type SwitchDeviceRequest struct {
	ReferralCode string `json:"referralCode" binding:"required"`
	DeviceID     string `json:"deviceId" binding:"required"`
}

type RegisterEmailRequest struct {
	Username string `json:"username" binding:"required,min=2,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Country  string `json:"country" binding:"required"`
	DeviceID string `json:"deviceId" binding:"required"`
}

type LoginEmailRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"deviceId" binding:"required"`
}

type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func referralCodeStatus(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrCodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "referral code not found"})
	case errors.Is(err, repository.ErrCodeUsed):
		c.JSON(http.StatusConflict, gin.H{"error": "referral code already used"})
	case errors.Is(err, repository.ErrCodeExpired):
		c.JSON(http.StatusGone, gin.H{"error": "referral code has expired"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "referral validation failed"})
	}
}

// ValidateReferral checks a code without consuming it.
func (h *AuthHandler) ValidateReferral(c *gin.Context) {
	var req ValidateReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rc, err := h.referrals.Validate(req.ReferralCode)
	if err != nil {
		referralCodeStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":           true,
		"consultancyName": rc.ConsultancyName,
		"expiresAt":       rc.ExpiresAt,
	})
}

// RegisterReferral consumes an unused code and creates the account. A
// consumed code presented again from the device it is bound to behaves as a
// login; from any other device it returns a conflict the client can resolve
// through the device switch flow.
func (h *AuthHandler) RegisterReferral(c *gin.Context) {
	var req RegisterReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := domain.CountryByID(req.Country); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown country"})
		return
	}

	rc, err := h.referrals.GetCode(req.ReferralCode)
	if err != nil {
		referralCodeStatus(c, err)
		return
	}
	if rc.IsUsed {
		h.loginReferral(c, rc, req.DeviceID)
		return
	}
	if rc.Expired(time.Now()) {
		referralCodeStatus(c, repository.ErrCodeExpired)
		return
	}

	userID := uuid.NewString()
	// Consume first: the code flips used exactly once, so a concurrent
	// registration with the same code fails here before any account exists.
	if _, err := h.referrals.Consume(rc.Code, userID, req.Country, req.DeviceID); err != nil {
		referralCodeStatus(c, err)
		return
	}
	user := &models.User{
		ID:              userID,
		Username:        req.Username,
		Country:         req.Country,
		AssignedCountry: req.Country,
		Avatar:          req.Avatar,
		AccountType:     domain.AccountReferral,
		ReferralCode:    rc.Code,
		ConsultancyName: rc.ConsultancyName,
		DeviceID:        req.DeviceID,
		JoinedAt:        time.Now(),
	}
	if err := h.users.Create(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	session := h.sessions.BindDevice(user.ID, req.DeviceID, rc.Code)

	token, err := auth.GenerateToken(&h.cfg.JWT, user.ID, user.AccountType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	h.firebase.SaveUser(user)
	h.firebase.SaveSession(session)
	if consumed, err := h.referrals.GetCode(rc.Code); err == nil {
		h.firebase.SaveReferralCode(consumed)
		h.archive.SaveReferralCode(consumed)
	}
	h.archive.SaveUser(user)
	h.archive.SaveSession(session)
	h.log.Infow("[auth] referral account registered",
		"userId", user.ID, "username", user.Username, "consultancy", rc.ConsultancyName, "country", req.Country)

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// loginReferral handles a consumed code presenting again.
func (h *AuthHandler) loginReferral(c *gin.Context, rc *models.ReferralCode, deviceID string) {
	user, err := h.users.GetByID(rc.UsedBy)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if user.IsBanned {
		c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
		return
	}
	check := h.sessions.CheckDevice(user.ID, deviceID)
	if !check.CanLogin {
		c.JSON(http.StatusConflict, gin.H{
			"error":          "account is active on another device",
			"existingDevice": check.ExistingDevice,
			"canSwitch":      true,
		})
		return
	}
	session := h.sessions.BindDevice(user.ID, deviceID, rc.Code)
	_ = h.users.SetDevice(user.ID, deviceID)

	token, err := auth.GenerateToken(&h.cfg.JWT, user.ID, user.AccountType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	h.firebase.SaveSession(session)
	h.archive.SaveSession(session)
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// SwitchDevice moves a referral account to a new device, ending the old
// session and kicking any live connection from the previous device.
func (h *AuthHandler) SwitchDevice(c *gin.Context) {
	var req SwitchDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rc, err := h.referrals.GetCode(req.ReferralCode)
	if err != nil || !rc.IsUsed {
		c.JSON(http.StatusNotFound, gin.H{"error": "referral code not found"})
		return
	}
	user, err := h.users.GetByID(rc.UsedBy)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if user.IsBanned {
		c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
		return
	}

	h.hub.DisconnectUser(user.ID, ws.EventAuthError, map[string]string{
		"message": "Signed in on another device.",
	})
	session := h.sessions.BindDevice(user.ID, req.DeviceID, rc.Code)
	_ = h.users.SetDevice(user.ID, req.DeviceID)
	if err := h.referrals.RebindDevice(rc.Code, req.DeviceID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "device switch failed"})
		return
	}

	token, err := auth.GenerateToken(&h.cfg.JWT, user.ID, user.AccountType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	h.firebase.SaveSession(session)
	h.archive.SaveSession(session)
	if rebound, err := h.referrals.GetCode(rc.Code); err == nil {
		h.firebase.SaveReferralCode(rebound)
		h.archive.SaveReferralCode(rebound)
	}
	h.log.Infow("[auth] device switched", "userId", user.ID, "device", req.DeviceID)
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// RegisterEmail creates a password account. These accounts stay unverified
// until a visa document is uploaded and approved.
func (h *AuthHandler) RegisterEmail(c *gin.Context) {
	var req RegisterEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := domain.CountryByID(req.Country); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown country"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Country:      req.Country,
		AccountType:  domain.AccountVerified,
		DeviceID:     req.DeviceID,
		JoinedAt:     time.Now(),
	}
	if err := h.users.Create(user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	session := h.sessions.BindDevice(user.ID, req.DeviceID, "")

	token, err := auth.GenerateToken(&h.cfg.JWT, user.ID, user.AccountType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	h.firebase.SaveUser(user)
	h.firebase.SaveSession(session)
	h.archive.SaveUser(user)
	h.archive.SaveSession(session)
	h.log.Infow("[auth] email account registered", "userId", user.ID, "email", req.Email)

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// LoginEmail authenticates a password account and binds the device.
func (h *AuthHandler) LoginEmail(c *gin.Context) {
	var req LoginEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if user.IsBanned {
		c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
		return
	}
	check := h.sessions.CheckDevice(user.ID, req.DeviceID)
	if !check.CanLogin {
		c.JSON(http.StatusConflict, gin.H{
			"error":          "account is active on another device",
			"existingDevice": check.ExistingDevice,
			"canSwitch":      true,
		})
		return
	}
	session := h.sessions.BindDevice(user.ID, req.DeviceID, "")
	_ = h.users.SetDevice(user.ID, req.DeviceID)

	token, err := auth.GenerateToken(&h.cfg.JWT, user.ID, user.AccountType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	h.firebase.SaveSession(session)
	h.archive.SaveSession(session)
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// UploadVisa accepts a visa document for an email account. Verification
// itself happens through the admin review endpoint.
func (h *AuthHandler) UploadVisa(c *gin.Context) {
	userID := c.GetString("userID")
	user, err := h.users.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document upload unavailable"})
		return
	}
	file, _, err := c.Request.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document file required"})
		return
	}
	defer file.Close()

	url, err := h.uploader.UploadDocument(c.Request.Context(), file, "visa_"+user.ID)
	if err != nil {
		h.log.Warnw("[auth] visa upload failed", "userId", user.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "document upload failed"})
		return
	}
	user.VisaPhotoURL = url
	if err := h.users.Update(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "document upload failed"})
		return
	}
	h.firebase.SaveUser(user)
	h.archive.SaveUser(user)
	h.log.Infow("[auth] visa document uploaded", "userId", user.ID)
	c.JSON(http.StatusOK, gin.H{"visaPhotoUrl": url, "verificationPending": true})
}

// UploadAvatar stores a profile image and points the account at the
// optimized rendition.
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	userID := c.GetString("userID")
	user, err := h.users.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "avatar upload unavailable"})
		return
	}
	file, _, err := c.Request.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file required"})
		return
	}
	defer file.Close()

	url, thumbnail, err := h.uploader.UploadAvatar(c.Request.Context(), file, "avatar_"+user.ID)
	if err != nil {
		h.log.Warnw("[auth] avatar upload failed", "userId", user.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "avatar upload failed"})
		return
	}
	user.Avatar = url
	if err := h.users.Update(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "avatar upload failed"})
		return
	}
	h.firebase.SaveUser(user)
	h.archive.SaveUser(user)
	c.JSON(http.StatusOK, gin.H{"avatarUrl": url, "thumbnailUrl": thumbnail})
}

// Logout releases the active device session so the account can sign in
// elsewhere without the switch-device flow.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := c.GetString("userID")
	ended := h.sessions.ReleaseDevice(userID)
	if ended != nil {
		h.firebase.SaveSession(ended)
		h.archive.SaveSession(ended)
		h.log.Infow("[auth] device released", "userId", userID, "device", ended.DeviceID)
	}
	c.JSON(http.StatusOK, gin.H{"loggedOut": true})
}

// AdminLogin issues a dashboard token from the configured credentials.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var accountType, hash string
	switch req.Username {
	case h.cfg.Admin.AdminUsername:
		accountType, hash = domain.AccountAdmin, h.cfg.Admin.AdminPasswordHash
	case h.cfg.Admin.FounderUsername:
		accountType, hash = domain.AccountFounder, h.cfg.Admin.FounderPasswordHash
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := auth.GenerateToken(&h.cfg.JWT, req.Username, accountType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	h.log.Infow("[auth] admin login", "username", req.Username, "accountType", accountType)
	c.JSON(http.StatusOK, gin.H{"token": token, "accountType": accountType})
}
