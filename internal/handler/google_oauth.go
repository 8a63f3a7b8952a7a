package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"studentconnect/config"
	"studentconnect/internal/auth"
	"studentconnect/internal/domain"
	"studentconnect/internal/models"
	"studentconnect/internal/repository"
	"studentconnect/internal/service"
)

// GoogleOAuthHandler signs email-track accounts in with Google instead of a
// password. Accounts created here still go through visa verification before
// their country is locked.
type GoogleOAuthHandler struct {
	cfg      *config.Config
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	firebase *service.FirebaseService
	archive  *service.ArchiveService
	log      *zap.SugaredLogger
}

func NewGoogleOAuthHandler(
	cfg *config.Config,
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	firebase *service.FirebaseService,
	archive *service.ArchiveService,
) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		firebase: firebase,
		archive:  archive,
		log:      zap.S(),
	}
}

func (h *GoogleOAuthHandler) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.OAuth.GoogleClientID,
		ClientSecret: h.cfg.OAuth.GoogleClientSecret,
		RedirectURL:  h.cfg.OAuth.GoogleRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

// Redirect sends the user to the Google consent screen.
func (h *GoogleOAuthHandler) Redirect(c *gin.Context) {
	if h.cfg.OAuth.GoogleClientID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return
	}
	url := h.OAuth2Config().AuthCodeURL("state", oauth2.AccessTypeOffline)
	c.Redirect(http.StatusFound, url)
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Callback exchanges the code for tokens, fetches the profile and issues a
// platform token. Device binding uses the device query parameter forwarded
// through the OAuth round trip.
func (h *GoogleOAuthHandler) Callback(c *gin.Context) {
	if h.cfg.OAuth.GoogleClientID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	ctx := c.Request.Context()
	conf := h.OAuth2Config()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exchange failed"})
		return
	}
	client := conf.Client(ctx, tok)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil || resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user info"})
		return
	}
	defer resp.Body.Close()
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user info"})
		return
	}
	h.finishLogin(c, info.ID, info.Email, info.Name, info.Picture, c.Query("device"))
}

// tokeninfoResponse is the response from https://oauth2.googleapis.com/tokeninfo?id_token=...
type tokeninfoResponse struct {
	Sub     string `json:"sub"` // Google ID
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Token accepts an ID token from a mobile Google sign-in and returns a
// platform token.
func (h *GoogleOAuthHandler) Token(c *gin.Context) {
	if h.cfg.OAuth.GoogleClientID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return
	}
	var req struct {
		IDToken  string `json:"idToken" binding:"required"`
		DeviceID string `json:"deviceId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idToken and deviceId required"})
		return
	}
	resp, err := http.Get("https://oauth2.googleapis.com/tokeninfo?id_token=" + url.QueryEscape(req.IDToken))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token verification failed"})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id_token"})
		return
	}
	var info tokeninfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid token response"})
		return
	}
	if info.Sub == "" || info.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token payload"})
		return
	}
	h.finishLogin(c, info.Sub, info.Email, info.Name, info.Picture, req.DeviceID)
}

func (h *GoogleOAuthHandler) finishLogin(c *gin.Context, googleID, email, name, picture, deviceID string) {
	user, err := h.users.GetByGoogleID(googleID)
	if err != nil {
		// Fall back to the email, linking an existing password account.
		user, err = h.users.GetByEmail(email)
	}
	isNew := false
	if err != nil {
		user = &models.User{
			ID:          uuid.NewString(),
			Username:    name,
			Email:       email,
			Avatar:      picture,
			AccountType: domain.AccountVerified,
			GoogleID:    &googleID,
			DeviceID:    deviceID,
			JoinedAt:    time.Now(),
		}
		if err := h.users.Create(user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
		isNew = true
	} else if user.GoogleID == nil {
		user.GoogleID = &googleID
		if picture != "" && user.Avatar == "" {
			user.Avatar = picture
		}
		_ = h.users.Update(user)
	}
	if user.IsBanned {
		c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
		return
	}
	if deviceID != "" {
		check := h.sessions.CheckDevice(user.ID, deviceID)
		if !check.CanLogin {
			c.JSON(http.StatusConflict, gin.H{
				"error":          "account is active on another device",
				"existingDevice": check.ExistingDevice,
				"canSwitch":      true,
			})
			return
		}
		session := h.sessions.BindDevice(user.ID, deviceID, "")
		_ = h.users.SetDevice(user.ID, deviceID)
		h.firebase.SaveSession(session)
		h.archive.SaveSession(session)
	}

	token, err := auth.GenerateToken(&h.cfg.JWT, user.ID, user.AccountType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	if isNew {
		h.firebase.SaveUser(user)
		h.archive.SaveUser(user)
		h.log.Infow("[auth] google account created", "userId", user.ID, "email", email)
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token, "isNew": isNew})
}
