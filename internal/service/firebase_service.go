package service

import (
	"context"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"studentconnect/internal/domain"
	"studentconnect/internal/models"
)

// FirebaseService mirrors chat activity into the Realtime Database as a
// best-effort side channel. Every write is fire-and-forget: in-memory state
// and broadcasts never wait on it, failures are logged and never retried.
type FirebaseService struct {
	client *db.Client
}

// NewFirebaseService builds the RTDB client. Returns nil when Firebase is
// not configured, which disables the side channel entirely.
func NewFirebaseService(serviceAccountPath, databaseURL string) *FirebaseService {
	if serviceAccountPath == "" || databaseURL == "" {
		return nil
	}
	ctx := context.Background()
	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		zap.S().Warnw("[firebase] app init failed", "error", err)
		return nil
	}
	client, err := app.Database(ctx)
	if err != nil {
		zap.S().Warnw("[firebase] database client failed", "error", err)
		return nil
	}
	return &FirebaseService{client: client}
}

func (s *FirebaseService) async(op string, fn func(ctx context.Context) error) {
	if s == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			zap.S().Warnw("[firebase] write failed", "op", op, "error", err)
		}
	}()
}

// PersistMessage appends a message to the sender's per-consultancy history.
func (s *FirebaseService) PersistMessage(consultancyName, referralCode string, msg *models.Message) {
	s.async("persist-message", func(ctx context.Context) error {
		ref := s.client.NewRef("consultancies/" + consultancyName + "/users/" + referralCode + "/messages")
		_, err := ref.Push(ctx, msg)
		return err
	})
}

// PersistUserActivity records the user's latest room activity.
func (s *FirebaseService) PersistUserActivity(userID, country string) {
	s.async("persist-user-activity", func(ctx context.Context) error {
		return s.client.NewRef("userActivity/"+userID).Set(ctx, map[string]interface{}{
			"country":    country,
			"lastActive": time.Now().UnixMilli(),
		})
	})
}

// IncrementMessageCount bumps the per-room message counter.
func (s *FirebaseService) IncrementMessageCount(country string) {
	s.async("increment-message-count", func(ctx context.Context) error {
		ref := s.client.NewRef("chatRooms/" + country + "/totalMessages")
		return ref.Transaction(ctx, func(t db.TransactionNode) (interface{}, error) {
			var n int64
			if err := t.Unmarshal(&n); err != nil {
				return nil, err
			}
			return n + 1, nil
		})
	})
}

// SaveUser mirrors a user record. Referral users live under their
// consultancy; everyone else under verifiedUsers.
func (s *FirebaseService) SaveUser(u *models.User) {
	s.async("save-user", func(ctx context.Context) error {
		if u.AccountType == domain.AccountReferral && u.ConsultancyName != "" && u.ReferralCode != "" {
			return s.client.NewRef("consultancies/" + u.ConsultancyName + "/users/" + u.ReferralCode + "/profile").Set(ctx, u)
		}
		return s.client.NewRef("verifiedUsers/" + u.ID).Set(ctx, u)
	})
}

// SaveConsultancy mirrors a consultancy and its generated codes.
func (s *FirebaseService) SaveConsultancy(c *models.Consultancy, codes []*models.ReferralCode) {
	s.async("save-consultancy", func(ctx context.Context) error {
		if err := s.client.NewRef("consultancies/"+c.Name+"/meta").Set(ctx, c); err != nil {
			return err
		}
		batch := make(map[string]interface{}, len(codes))
		for _, rc := range codes {
			batch["referralCodes/"+rc.Code] = rc
		}
		return s.client.NewRef("").Update(ctx, batch)
	})
}

// SaveReferralCode mirrors a single code record (consumption, device rebind).
func (s *FirebaseService) SaveReferralCode(rc *models.ReferralCode) {
	s.async("save-referral-code", func(ctx context.Context) error {
		return s.client.NewRef("referralCodes/" + rc.Code).Set(ctx, rc)
	})
}

// SaveSession mirrors the user's device session.
func (s *FirebaseService) SaveSession(sess *models.DeviceSession) {
	s.async("save-session", func(ctx context.Context) error {
		return s.client.NewRef("deviceSessions/" + sess.UserID).Set(ctx, sess)
	})
}
