package service

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/libradesk/library-service/internal/errs"
	"github.com/libradesk/library-service/internal/model"
	"github.com/libradesk/library-service/pkg/auth"
)

// Login verifies the admin's credentials against the stored bcrypt hash
// and issues a signed token for the session.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	admin, err := s.repo.GetAdmin(ctx, req.ID)
	if err != nil {
		return model.LoginResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return model.LoginResponse{}, errors.Wrapf(errs.ErrUnauthorized, "incorrect password for admin with id %q", req.ID)
	}

	token, err := auth.GenerateToken(admin.ID)
	if err != nil {
		return model.LoginResponse{}, err
	}
	return model.LoginResponse{Admin: admin, Token: token}, nil
}

func (s *Service) RegisterAdmin(ctx context.Context, req model.CreateAdminRequest) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.CreateAdmin(ctx, model.Admin{
		ID:           req.ID,
		PasswordHash: string(hash),
		Name:         req.Name,
		Contact:      req.Contact,
	})
}
