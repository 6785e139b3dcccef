// Package services contains server-side business logic. This file implements
// UserService, which handles registration and credential checks.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophlink/internal/common"
	"github.com/dmitrijs2005/gophlink/internal/cryptox"
	"github.com/dmitrijs2005/gophlink/internal/dbx"
	"github.com/dmitrijs2005/gophlink/internal/server/models"
	"github.com/dmitrijs2005/gophlink/internal/server/repositories/repomanager"
)

// UserService provides credential operations:
// - Register: validate and create users with a fresh salt
// - Authenticate: verify an email/password pair
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	params      cryptox.PasswordParams
}

// NewUserService constructs a UserService. params are the argon2id costs used
// for both hashing and verification.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, params cryptox.PasswordParams) *UserService {
	return &UserService{db: db, repomanager: m, params: params}
}

// NormalizeEmail is applied to every email before it reaches the store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user. Empty fields yield common.ErrValidation and a taken
// email yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	case email == "":
		return nil, fmt.Errorf("%w: email is required", common.ErrValidation)
	case password == "":
		return nil, fmt.Errorf("%w: password is required", common.ErrValidation)
	}

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	user := &models.User{
		Name:         name,
		Email:        email,
		Salt:         salt,
		PasswordHash: cryptox.HashPassword([]byte(password), salt, s.params),
	}

	var created *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			return common.ErrorAlreadyExists
		case !errors.Is(err, common.ErrorNotFound):
			return fmt.Errorf("error checking email: %w", err)
		}

		created, err = repo.Create(ctx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return created, nil
}

// Authenticate returns the user when password matches. Unknown emails and
// wrong passwords both yield common.ErrorUnauthorized after the same amount
// of hashing work.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.HashPassword([]byte(password), s.getRandomSalt(), s.params)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if !cryptox.VerifyPassword([]byte(password), user.Salt, user.PasswordHash, s.params) {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

func (s *UserService) getRandomSalt() []byte { return common.GenerateRandByteArray(cryptox.SaltSize) }
