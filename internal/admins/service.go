// Package admins manages administrative accounts: provisioning and
// credential verification. Accounts live in the document store alongside the
// records they govern.
package admins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jakaria-jihad/certchain/internal/docstore"
	"github.com/jakaria-jihad/certchain/internal/registrar/model"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned on a failed login. It deliberately does
// not distinguish an unknown admin id from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service implements admin account management on top of the document store.
type Service struct {
	store  docstore.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an admin Service.
func NewService(store docstore.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate verifies an admin id/password pair and returns the account on
// success.
func (s *Service) Authenticate(ctx context.Context, adminID, password string) (*Admin, error) {
	var admin Admin
	err := s.store.Get(ctx, docstore.Admins, adminID, &admin)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &admin, nil
}

// Upsert creates or replaces an admin account with a freshly hashed
// password. Used by the seed-admin command.
func (s *Service) Upsert(ctx context.Context, adminID, name string, role model.Role, password string) (*Admin, error) {
	if adminID == "" {
		return nil, fmt.Errorf("admin id is required")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &Admin{
		AdminID:      adminID,
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.store.Put(ctx, docstore.Admins, adminID, admin); err != nil {
		return nil, err
	}

	s.logger.Info("admin account upserted",
		zap.String("admin_id", adminID),
		zap.String("role", string(role)),
	)
	return admin, nil
}
