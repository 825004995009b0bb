package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/repository/db"
)

// AccountService owns the two mutable per-user records: the profile row and
// the device push token.
type AccountService struct {
	querier db.Querier
	logger  *zap.Logger
}

// NewAccountService wires the account path.
func NewAccountService(querier db.Querier, logger *zap.Logger) *AccountService {
	return &AccountService{querier: querier, logger: logger}
}

// EnsureUser upserts the profile row from a verified identity. Called on
// every successful Apple sign-in so the warehouse always has a row for the
// authenticated user.
func (s *AccountService) EnsureUser(ctx context.Context, userID, email, displayName string) (db.User, error) {
	user, err := s.querier.UpsertUser(ctx, db.UpsertUserParams{
		UserID:      userID,
		Email:       textOrNull(email),
		DisplayName: textOrNull(displayName),
	})
	if err != nil {
		return db.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

// GetProfile returns the user's profile row, ErrNotFound when the user has
// never signed in.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (db.User, error) {
	user, err := s.querier.GetUser(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.User{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return db.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// RegisterDevice records the user's current APNs device token, last write
// wins.
func (s *AccountService) RegisterDevice(ctx context.Context, userID, deviceToken string) error {
	if deviceToken == "" {
		return fmt.Errorf("%w: device_token is required", ErrInvalidBatch)
	}
	err := s.querier.UpsertDeviceToken(ctx, db.UpsertDeviceTokenParams{
		UserID:      userID,
		DeviceToken: deviceToken,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	s.logger.Info("device token registered", zap.String("user_id", userID))
	return nil
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
