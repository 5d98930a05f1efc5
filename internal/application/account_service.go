package application

import (
	"context"
	"errors"
	"expvar"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	repo "github.com/oksasatya/go-account-service/internal/domain/repository"
	"github.com/oksasatya/go-account-service/internal/infrastructure/search"
	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-account-service/pkg/mailer/templates"
)

var (
	accountsCreated   = expvar.NewInt("accounts_created")
	accountsDeleted   = expvar.NewInt("accounts_deleted")
	passwordResets    = expvar.NewInt("password_resets")
	passwordChanges   = expvar.NewInt("password_changes")
	createConflicts   = expvar.NewInt("account_create_conflicts")
	failedPasswordChk = expvar.NewInt("failed_password_checks")
)

// Notifier hands an email off for delivery without waiting on it.
type Notifier interface {
	Dispatch(job mailer.EmailJob)
}

// AccountIndex is the search read model kept next to the store.
type AccountIndex interface {
	Put(ctx context.Context, a *entity.Account) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, q string, size int) ([]search.Document, error)
}

// ObjectStore stores avatar images and returns their URL.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// Service implements the account lifecycle: creation with OTP issuance,
// profile updates, deactivation, deletion, and password management.
type Service struct {
	Repo     repo.AccountRepository
	Identity helpers.IdentityProvider
	JWT      *helpers.JWTManager
	Mail     Notifier
	Logger   *logrus.Logger

	Index    AccountIndex
	Avatars  ObjectStore
	Brand    mailtpl.Brand
	MailFrom string
}

type Option func(*Service)

func WithIndex(ix AccountIndex) Option { return func(s *Service) { s.Index = ix } }
func WithAvatars(st ObjectStore) Option { return func(s *Service) { s.Avatars = st } }
func WithMailFrom(from string) Option { return func(s *Service) { s.MailFrom = from } }
func WithBrand(b mailtpl.Brand) Option { return func(s *Service) { s.Brand = b } }

func NewService(repo repo.AccountRepository, identity helpers.IdentityProvider, jwt *helpers.JWTManager, mail Notifier, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		Repo:     repo,
		Identity: identity,
		JWT:      jwt,
		Mail:     mail,
		Logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = helpers.NewDiscardLogger()
	}
	return s
}

type CreateAccountInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// CreateAccount registers a new unverified account and emails its OTP.
// The email pre-check only gives a fast answer; the store's unique
// constraint decides races.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (*entity.Account, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, newError(ErrValidation, "email and password are required", nil)
	}

	_, err := s.Repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		createConflicts.Add(1)
		return nil, newError(ErrConflict, "User already exists", nil)
	case !errors.Is(err, repo.ErrNotFound):
		return nil, s.internal("lookup account by email", err)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	otp, err := helpers.GenerateOTP()
	if err != nil {
		return nil, s.internal("generate otp", err)
	}

	a := entity.NewAccount(in.Email, hash, in.FirstName, in.LastName, otp)
	if err := s.Repo.Insert(ctx, a); err != nil {
		if errors.Is(err, repo.ErrDuplicateKey) {
			createConflicts.Add(1)
			return nil, newError(ErrConflict, "User already exists", nil)
		}
		return nil, s.internal("insert account", err)
	}

	accountsCreated.Add(1)
	s.Logger.WithField("account_id", a.ID).Info("account created")
	s.notify(a.Email, mailtpl.AccountOTP, mailtpl.NewAccountOTPData(s.Brand, a.DisplayName(), a.Email, otp))
	s.index(ctx, a)
	return a, nil
}

// ListAccounts returns every account except the caller's own.
func (s *Service) ListAccounts(ctx context.Context, bearer string) ([]*entity.Account, error) {
	id, err := s.Identity.Extract(bearer)
	if err != nil {
		return nil, newError(ErrUnauthorized, "invalid bearer token", err)
	}
	accounts, err := s.Repo.ListExcludingEmail(ctx, id.Email)
	if err != nil {
		return nil, s.internal("list accounts", err)
	}
	return accounts, nil
}

func (s *Service) GetAccount(ctx context.Context, id string) (*entity.Account, error) {
	a, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.notFound(id, err)
	}
	return a, nil
}

// DeleteAccount removes the account permanently.
func (s *Service) DeleteAccount(ctx context.Context, id string) (*entity.Account, error) {
	a, err := s.Repo.DeleteByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Logger.WithField("account_id", id).Warn("delete account failed: not found")
		}
		return nil, s.notFound(id, err)
	}
	accountsDeleted.Add(1)
	if s.Index != nil {
		if err := s.Index.Remove(ctx, a.ID); err != nil {
			s.Logger.WithError(err).WithField("account_id", a.ID).Warn("es delete failed")
		}
	}
	return a, nil
}

// UpdateAccountInput carries the profile fields to change; nil means keep.
type UpdateAccountInput struct {
	Email     *string
	FirstName *string
	LastName  *string
}

func (s *Service) UpdateAccount(ctx context.Context, id string, in UpdateAccountInput) (*entity.Account, error) {
	if in.Email != nil {
		if strings.TrimSpace(*in.Email) == "" {
			return nil, newError(ErrValidation, "email cannot be empty", nil)
		}
		existing, err := s.Repo.FindByEmail(ctx, *in.Email)
		switch {
		case err == nil && existing.ID != id:
			return nil, newError(ErrConflict, "User with same email already exists", nil)
		case err != nil && !errors.Is(err, repo.ErrNotFound):
			return nil, s.internal("lookup account by email", err)
		}
	}

	a, err := s.Repo.UpdateByID(ctx, id, repo.AccountUpdate{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateKey) {
			return nil, newError(ErrConflict, "User with same email already exists", nil)
		}
		return nil, s.notFound(id, err)
	}
	s.index(ctx, a)
	return a, nil
}

// DeactivateAccount flips the one-way deactivated flag. Repeating it is harmless.
func (s *Service) DeactivateAccount(ctx context.Context, id string) (*entity.Account, error) {
	a, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.notFound(id, err)
	}
	a.Deactivate()
	updated, err := s.Repo.UpdateByID(ctx, id, repo.AccountUpdate{IsDeactivated: &a.IsDeactivated})
	if err != nil {
		return nil, s.notFound(id, err)
	}
	s.index(ctx, updated)
	return updated, nil
}

// ResetPassword replaces the password with a generated one and emails it to
// the account's address. The plaintext is not returned.
func (s *Service) ResetPassword(ctx context.Context, id string) (*entity.Account, error) {
	a, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newError(ErrValidation, "User not available, Please try again", err)
		}
		return nil, s.internal("find account", err)
	}

	plain, err := helpers.GeneratePassword()
	if err != nil {
		return nil, s.internal("generate password", err)
	}
	hash, err := s.hash(plain)
	if err != nil {
		return nil, err
	}
	updated, err := s.Repo.UpdateByID(ctx, a.ID, repo.AccountUpdate{PasswordHash: &hash})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newError(ErrValidation, "User not available, Please try again", err)
		}
		return nil, s.internal("update password", err)
	}

	passwordResets.Add(1)
	s.Logger.WithField("account_id", a.ID).Info("password reset")
	s.notify(updated.Email, mailtpl.PasswordReset, mailtpl.NewPasswordResetData(s.Brand, updated.DisplayName(), updated.Email, plain))
	return updated, nil
}

// ChangePasswordBySelf changes the caller's password after checking the old one.
func (s *Service) ChangePasswordBySelf(ctx context.Context, bearer, oldPassword, newPassword string) (*entity.Account, error) {
	id, err := s.Identity.Extract(bearer)
	if err != nil {
		return nil, newError(ErrUnauthorized, "invalid bearer token", err)
	}
	if newPassword == oldPassword {
		return nil, newError(ErrValidation, "New password & old password can not be same", nil)
	}

	a, err := s.Repo.FindByEmail(ctx, id.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newError(ErrUnauthorized, "account not found for token", nil)
		}
		return nil, s.internal("lookup account by email", err)
	}
	if a.IsDeactivated {
		return nil, newError(ErrUnauthorized, "account is deactivated", nil)
	}
	if !helpers.CompareHashAndPassword(a.PasswordHash, oldPassword) {
		failedPasswordChk.Add(1)
		return nil, newError(ErrUnauthorized, "Passwords are not matching", nil)
	}

	return s.setPassword(ctx, a.ID, newPassword)
}

// ChangePasswordByEmail sets a new password for the account holding email.
// Callers are expected to have proven control of the address already.
func (s *Service) ChangePasswordByEmail(ctx context.Context, email, newPassword string) (*entity.Account, error) {
	a, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newError(ErrValidation, "User not found, Please try again", err)
		}
		return nil, s.internal("lookup account by email", err)
	}
	return s.setPassword(ctx, a.ID, newPassword)
}

// Login checks credentials and issues an access token carrying the email claim.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.Account, string, time.Time, error) {
	a, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", time.Time{}, newError(ErrUnauthorized, "invalid credentials", nil)
		}
		return nil, "", time.Time{}, s.internal("lookup account by email", err)
	}
	if !helpers.CompareHashAndPassword(a.PasswordHash, password) {
		failedPasswordChk.Add(1)
		return nil, "", time.Time{}, newError(ErrUnauthorized, "invalid credentials", nil)
	}
	if a.IsDeactivated {
		return nil, "", time.Time{}, newError(ErrUnauthorized, "account is deactivated", nil)
	}
	token, exp, err := s.JWT.GenerateAccessToken(a.ID, a.Email)
	if err != nil {
		return nil, "", time.Time{}, s.internal("generate access token", err)
	}
	return a, token, exp, nil
}

// SearchAccounts queries the search index by email or name.
func (s *Service) SearchAccounts(ctx context.Context, q string, size int) ([]search.Document, error) {
	if s.Index == nil {
		return []search.Document{}, nil
	}
	docs, err := s.Index.Search(ctx, q, size)
	if err != nil {
		return nil, s.internal("search accounts", err)
	}
	return docs, nil
}

// UploadAvatar stores an image for the account and records its URL.
func (s *Service) UploadAvatar(ctx context.Context, id string, r io.Reader, filename, contentType string) (*entity.Account, error) {
	if s.Avatars == nil {
		return nil, newError(ErrInternal, "avatar storage not configured", nil)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, newError(ErrValidation, "avatar must be an image", nil)
	}
	a, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.notFound(id, err)
	}
	objectPath := path.Join("avatars", a.ID, uuid.NewString()+strings.ToLower(path.Ext(filename)))
	url, err := s.Avatars.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		return nil, s.internal("upload avatar", err)
	}
	updated, err := s.Repo.UpdateByID(ctx, a.ID, repo.AccountUpdate{AvatarURL: &url})
	if err != nil {
		return nil, s.notFound(id, err)
	}
	s.index(ctx, updated)
	return updated, nil
}

func (s *Service) setPassword(ctx context.Context, id, plain string) (*entity.Account, error) {
	hash, err := s.hash(plain)
	if err != nil {
		return nil, err
	}
	a, err := s.Repo.UpdateByID(ctx, id, repo.AccountUpdate{PasswordHash: &hash})
	if err != nil {
		return nil, s.notFound(id, err)
	}
	passwordChanges.Add(1)
	s.Logger.WithField("account_id", id).Info("password changed")
	return a, nil
}

func (s *Service) hash(plain string) (string, error) {
	hash, err := helpers.HashPassword(plain)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", newError(ErrValidation, "password is too long", err)
		}
		return "", s.internal("hash password", err)
	}
	return hash, nil
}

// notify renders and dispatches an email. Nothing here can fail the caller.
func (s *Service) notify(to, template string, data mailtpl.EmailData) {
	if s.Mail == nil {
		return
	}
	job, err := mailer.Compose(to, s.MailFrom, template, data)
	if err != nil {
		s.Logger.WithError(err).WithField("template", template).Warn("render email failed")
		return
	}
	s.Mail.Dispatch(job)
}

func (s *Service) index(ctx context.Context, a *entity.Account) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Put(ctx, a); err != nil {
		s.Logger.WithError(err).WithField("account_id", a.ID).Warn("es index failed")
	}
}

func (s *Service) notFound(id string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return newError(ErrNotFound, "User for #"+id+" not found", err)
	}
	return s.internal("account store", err)
}

func (s *Service) internal(op string, err error) error {
	s.Logger.WithError(err).WithField("op", op).Error("account operation failed")
	return newError(ErrInternal, "internal error", err)
}
