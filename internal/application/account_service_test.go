package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/domain/repository/repotest"
	"github.com/oksasatya/go-account-service/internal/infrastructure/search"
	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-account-service/pkg/mailer/templates"
)

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
}

func (n *recordingNotifier) Dispatch(job mailer.EmailJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, job)
}

func (n *recordingNotifier) sent() []mailer.EmailJob {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mailer.EmailJob(nil), n.jobs...)
}

type memIndex struct {
	docs      map[string]search.Document
	failWrite bool
}

func (x *memIndex) Put(_ context.Context, a *entity.Account) error {
	if x.failWrite {
		return errors.New("es unavailable")
	}
	x.docs[a.ID] = search.NewDocument(a)
	return nil
}

func (x *memIndex) Remove(_ context.Context, id string) error {
	delete(x.docs, id)
	return nil
}

func (x *memIndex) Search(_ context.Context, q string, _ int) ([]search.Document, error) {
	out := []search.Document{}
	for _, d := range x.docs {
		if d.EmailAddress == q || d.FirstName == q || d.LastName == q {
			out = append(out, d)
		}
	}
	return out, nil
}

type memObjects struct {
	paths []string
	body  []byte
}

func (o *memObjects) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	o.paths = append(o.paths, objectPath)
	o.body = b
	return "https://cdn.test/" + objectPath, nil
}

type fixture struct {
	svc    *Service
	repo   *repotest.Memory
	mail   *recordingNotifier
	index  *memIndex
	jwt    *helpers.JWTManager
	avatar *memObjects
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   repotest.NewMemory(),
		mail:   &recordingNotifier{},
		index:  &memIndex{docs: map[string]search.Document{}},
		jwt:    helpers.NewJWTManager("test-secret", time.Minute),
		avatar: &memObjects{},
	}
	f.svc = NewService(f.repo, helpers.NewIdentityProvider(f.jwt, true), f.jwt, f.mail, nil,
		WithIndex(f.index),
		WithAvatars(f.avatar),
		WithMailFrom("no-reply@accounts.test"),
		WithBrand(mailtpl.Brand{AppName: "Accounts"}),
	)
	return f
}

func (f *fixture) create(t *testing.T, email, password string) *entity.Account {
	t.Helper()
	a, err := f.svc.CreateAccount(context.Background(), CreateAccountInput{Email: email, Password: password, FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	return a
}

func (f *fixture) bearer(t *testing.T, a *entity.Account) string {
	t.Helper()
	tok, _, err := f.jwt.GenerateAccessToken(a.ID, a.Email)
	require.NoError(t, err)
	return helpers.BearerPrefix + tok
}

func strPtr(s string) *string { return &s }

var otpPattern = regexp.MustCompile(`Your verification code: (\d{6})`)
var resetPattern = regexp.MustCompile(`Your new password: (\S+)`)

func TestCreateAccount(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "ada@example.com", "password123")

	require.NotEmpty(t, a.ID)
	require.False(t, a.IsVerified)
	require.False(t, a.IsDeactivated)
	require.NotNil(t, a.OTP)
	require.False(t, a.OTP.Used)
	require.GreaterOrEqual(t, a.OTP.Value, helpers.OTPMin)
	require.LessOrEqual(t, a.OTP.Value, helpers.OTPMax)
	require.NotEqual(t, "password123", a.PasswordHash)
	require.True(t, helpers.CompareHashAndPassword(f.repo.Stored(a.ID).PasswordHash, "password123"))

	jobs := f.mail.sent()
	require.Len(t, jobs, 1)
	require.Equal(t, "ada@example.com", jobs[0].To)
	require.Equal(t, "no-reply@accounts.test", jobs[0].From)
	m := otpPattern.FindStringSubmatch(jobs[0].Text)
	require.Len(t, m, 2)
	require.Equal(t, fmt.Sprintf("%06d", a.OTP.Value), m[1])
	require.Contains(t, jobs[0].HTML, m[1])

	require.Contains(t, f.index.docs, a.ID)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.create(t, "ada@example.com", "password123")

	_, err := f.svc.CreateAccount(context.Background(), CreateAccountInput{Email: "ada@example.com", Password: "other-password"})
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, 1, f.repo.Count())
	require.Len(t, f.mail.sent(), 1)
}

func TestCreateAccountConstraintDecidesRace(t *testing.T) {
	f := newFixture(t)
	f.repo.BlindPrecheck = true

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateAccount(context.Background(), CreateAccountInput{Email: "race@example.com", Password: "password123"})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, n-1, conflicts)
	require.Equal(t, 1, f.repo.Count())
}

func TestCreateAccountValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAccount(ctx, CreateAccountInput{Email: "", Password: "password123"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.CreateAccount(ctx, CreateAccountInput{Email: "ada@example.com", Password: ""})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.CreateAccount(ctx, CreateAccountInput{Email: "ada@example.com", Password: string(bytes.Repeat([]byte("a"), 80))})
	require.ErrorIs(t, err, ErrValidation)
	require.Zero(t, f.repo.Count())
}

func TestCreateAccountStorageFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.repo.FailWith = errors.New("connection refused")

	_, err := f.svc.CreateAccount(context.Background(), CreateAccountInput{Email: "ada@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrInternal)
	require.Equal(t, "internal error", Message(err))
	require.Empty(t, f.mail.sent())
}

func TestCreateAccountSurvivesIndexFailure(t *testing.T) {
	f := newFixture(t)
	f.index.failWrite = true

	a := f.create(t, "ada@example.com", "password123")
	require.NotEmpty(t, a.ID)
	require.Len(t, f.mail.sent(), 1)
}

func TestListAccountsExcludesCaller(t *testing.T) {
	f := newFixture(t)
	ada := f.create(t, "ada@example.com", "password123")
	f.create(t, "grace@example.com", "password123")
	f.create(t, "alan@example.com", "password123")

	got, err := f.svc.ListAccounts(context.Background(), f.bearer(t, ada))
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, a := range got {
		require.NotEqual(t, "ada@example.com", a.Email)
	}
}

func TestListAccountsRejectsBadToken(t *testing.T) {
	f := newFixture(t)
	f.create(t, "ada@example.com", "password123")

	for _, bearer := range []string{"", "Bearer ", "Bearer garbage"} {
		_, err := f.svc.ListAccounts(context.Background(), bearer)
		require.ErrorIs(t, err, ErrUnauthorized, bearer)
	}
}

func TestGetAndDeleteUnknownAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetAccount(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.DeleteAccount(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "ada@example.com", "password123")

	deleted, err := f.svc.DeleteAccount(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a.ID, deleted.ID)
	require.Zero(t, f.repo.Count())
	require.NotContains(t, f.index.docs, a.ID)

	_, err = f.svc.GetAccount(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.DeleteAccount(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.create(t, "ada@example.com", "password123")
	grace := f.create(t, "grace@example.com", "password123")

	t.Run("changes names and keeps the rest", func(t *testing.T) {
		got, err := f.svc.UpdateAccount(ctx, ada.ID, UpdateAccountInput{FirstName: strPtr("Augusta")})
		require.NoError(t, err)
		require.Equal(t, "Augusta", got.FirstName)
		require.Equal(t, "Lovelace", got.LastName)
		require.Equal(t, "ada@example.com", got.Email)
		require.Equal(t, ada.PasswordHash, f.repo.Stored(ada.ID).PasswordHash)
		require.Equal(t, "Augusta", f.index.docs[ada.ID].FirstName)
	})

	t.Run("keeping own email is not a conflict", func(t *testing.T) {
		_, err := f.svc.UpdateAccount(ctx, ada.ID, UpdateAccountInput{Email: strPtr("ada@example.com")})
		require.NoError(t, err)
	})

	t.Run("another account's email conflicts", func(t *testing.T) {
		_, err := f.svc.UpdateAccount(ctx, ada.ID, UpdateAccountInput{Email: strPtr(grace.Email)})
		require.ErrorIs(t, err, ErrConflict)
		require.Equal(t, "ada@example.com", f.repo.Stored(ada.ID).Email)
	})

	t.Run("constraint violation maps to the same conflict", func(t *testing.T) {
		f.repo.BlindPrecheck = true
		defer func() { f.repo.BlindPrecheck = false }()
		_, err := f.svc.UpdateAccount(ctx, ada.ID, UpdateAccountInput{Email: strPtr(grace.Email)})
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.svc.UpdateAccount(ctx, "missing", UpdateAccountInput{FirstName: strPtr("x")})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty email is rejected", func(t *testing.T) {
		_, err := f.svc.UpdateAccount(ctx, ada.ID, UpdateAccountInput{Email: strPtr(" ")})
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("new email moves the account", func(t *testing.T) {
		got, err := f.svc.UpdateAccount(ctx, ada.ID, UpdateAccountInput{Email: strPtr("augusta@example.com")})
		require.NoError(t, err)
		require.Equal(t, "augusta@example.com", got.Email)
	})
}

func TestDeactivateAccountIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "ada@example.com", "password123")

	first, err := f.svc.DeactivateAccount(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, first.IsDeactivated)

	second, err := f.svc.DeactivateAccount(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, second.IsDeactivated)
	require.True(t, f.repo.Stored(a.ID).IsDeactivated)
	require.True(t, f.index.docs[a.ID].IsDeactivated)

	// profile edits never bring it back
	got, err := f.svc.UpdateAccount(ctx, a.ID, UpdateAccountInput{FirstName: strPtr("x")})
	require.NoError(t, err)
	require.True(t, got.IsDeactivated)

	_, err = f.svc.DeactivateAccount(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "ada@example.com", "password123")

	got, err := f.svc.ResetPassword(ctx, a.ID)
	require.NoError(t, err)

	jobs := f.mail.sent()
	require.Len(t, jobs, 2)
	reset := jobs[1]
	require.Equal(t, "ada@example.com", reset.To)
	m := resetPattern.FindStringSubmatch(reset.Text)
	require.Len(t, m, 2)
	plain := m[1]
	require.Len(t, plain, helpers.GeneratedPasswordLength)

	stored := f.repo.Stored(a.ID)
	require.True(t, helpers.CompareHashAndPassword(stored.PasswordHash, plain))
	require.False(t, helpers.CompareHashAndPassword(stored.PasswordHash, "password123"))

	view := fmt.Sprintf("%+v", NewAccountView(got))
	require.NotContains(t, view, plain)

	_, err = f.svc.ResetPassword(ctx, "missing")
	require.ErrorIs(t, err, ErrValidation)
}

func TestChangePasswordBySelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "ada@example.com", "password123")
	bearer := f.bearer(t, a)

	t.Run("same new and old password is a validation error", func(t *testing.T) {
		_, err := f.svc.ChangePasswordBySelf(ctx, bearer, "password123", "password123")
		require.ErrorIs(t, err, ErrValidation)
		_, err = f.svc.ChangePasswordBySelf(ctx, bearer, "wrong-password", "wrong-password")
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("wrong old password leaves storage untouched", func(t *testing.T) {
		before := f.repo.Stored(a.ID).PasswordHash
		_, err := f.svc.ChangePasswordBySelf(ctx, bearer, "wrong-password", "new-password")
		require.ErrorIs(t, err, ErrUnauthorized)
		require.Equal(t, before, f.repo.Stored(a.ID).PasswordHash)
	})

	t.Run("bad token", func(t *testing.T) {
		_, err := f.svc.ChangePasswordBySelf(ctx, "Bearer nope", "password123", "new-password")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("changes the hash", func(t *testing.T) {
		_, err := f.svc.ChangePasswordBySelf(ctx, bearer, "password123", "new-password")
		require.NoError(t, err)
		stored := f.repo.Stored(a.ID)
		require.True(t, helpers.CompareHashAndPassword(stored.PasswordHash, "new-password"))
		require.False(t, helpers.CompareHashAndPassword(stored.PasswordHash, "password123"))
	})

	t.Run("deactivated accounts cannot change passwords", func(t *testing.T) {
		_, err := f.svc.DeactivateAccount(ctx, a.ID)
		require.NoError(t, err)
		_, err = f.svc.ChangePasswordBySelf(ctx, bearer, "new-password", "newer-password")
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestChangePasswordByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "ada@example.com", "password123")

	_, err := f.svc.ChangePasswordByEmail(ctx, "ada@example.com", "fresh-password")
	require.NoError(t, err)
	require.True(t, helpers.CompareHashAndPassword(f.repo.Stored(a.ID).PasswordHash, "fresh-password"))

	_, err = f.svc.ChangePasswordByEmail(ctx, "nobody@example.com", "fresh-password")
	require.ErrorIs(t, err, ErrValidation)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "ada@example.com", "password123")

	got, token, exp, err := f.svc.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
	require.True(t, exp.After(time.Now()))

	id, err := f.svc.Identity.Extract(helpers.BearerPrefix + token)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", id.Email)

	_, _, _, err = f.svc.Login(ctx, "ada@example.com", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, _, _, err = f.svc.Login(ctx, "nobody@example.com", "password123")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.DeactivateAccount(ctx, a.ID)
	require.NoError(t, err)
	_, _, _, err = f.svc.Login(ctx, "ada@example.com", "password123")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSearchAccounts(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "ada@example.com", "password123")

	docs, err := f.svc.SearchAccounts(context.Background(), "ada@example.com", 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, a.ID, docs[0].ID)

	f.svc.Index = nil
	docs, err = f.svc.SearchAccounts(context.Background(), "ada@example.com", 10)
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestUploadAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "ada@example.com", "password123")

	got, err := f.svc.UploadAvatar(ctx, a.ID, bytes.NewReader([]byte("png-bytes")), "Me.PNG", "image/png")
	require.NoError(t, err)
	require.Len(t, f.avatar.paths, 1)
	require.Regexp(t, `^avatars/`+a.ID+`/[0-9a-f-]{36}\.png$`, f.avatar.paths[0])
	require.Equal(t, "https://cdn.test/"+f.avatar.paths[0], got.AvatarURL)
	require.Equal(t, []byte("png-bytes"), f.avatar.body)

	_, err = f.svc.UploadAvatar(ctx, a.ID, bytes.NewReader(nil), "notes.txt", "text/plain")
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.UploadAvatar(ctx, "missing", bytes.NewReader(nil), "me.png", "image/png")
	require.ErrorIs(t, err, ErrNotFound)

	f.svc.Avatars = nil
	_, err = f.svc.UploadAvatar(ctx, a.ID, bytes.NewReader(nil), "me.png", "image/png")
	require.ErrorIs(t, err, ErrInternal)
}

func TestStatusCode(t *testing.T) {
	require.Equal(t, 409, StatusCode(newError(ErrConflict, "x", nil)))
	require.Equal(t, 404, StatusCode(newError(ErrNotFound, "x", nil)))
	require.Equal(t, 401, StatusCode(newError(ErrUnauthorized, "x", nil)))
	require.Equal(t, 400, StatusCode(newError(ErrValidation, "x", nil)))
	require.Equal(t, 500, StatusCode(newError(ErrInternal, "x", nil)))
	require.Equal(t, 500, StatusCode(errors.New("raw")))
	require.Equal(t, 200, StatusCode(nil))

	wrapped := fmt.Errorf("handler: %w", newError(ErrConflict, "User already exists", nil))
	require.Equal(t, "User already exists", Message(wrapped))
}
