package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"photoshare/internal/models"
	"photoshare/internal/repository"
	"photoshare/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type sentMail struct {
	to, subject, body string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *captureMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return m.err
}

// resetLinkToken pulls the token query parameter out of a reset mail.
func resetLinkToken(t *testing.T, body string) string {
	t.Helper()
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "http") {
			u, err := url.Parse(line)
			require.NoError(t, err)
			return u.Query().Get("token")
		}
	}
	t.Fatalf("no link in %q", body)
	return ""
}

func newResetService(t *testing.T) (*PasswordResetService, *captureMailer, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	mailer := &captureMailer{}
	svc := NewPasswordResetService(
		repository.NewUserRepository(db),
		repository.NewPasswordResetRepository(db),
		mailer,
		"http://localhost:3000/",
		time.Hour,
	)
	testutil.CreateUser(t, db, "Alice", "alice@example.com", "")
	return svc, mailer, db
}

func TestPasswordReset_RequestUnknownEmailLooksTheSame(t *testing.T) {
	svc, mailer, db := newResetService(t)
	ctx := context.Background()
	calls := countPadChecks(t)

	assert.NoError(t, svc.RequestReset(ctx, "nobody@example.com"))
	assert.Empty(t, mailer.sent)
	assert.Equal(t, 1, *calls)

	var count int64
	db.Model(&models.PasswordResetRequest{}).Count(&count)
	assert.Zero(t, count)

	assertCode(t, svc.RequestReset(ctx, "  "), models.CodeValidation)
}

func TestPasswordReset_FullFlow(t *testing.T) {
	svc, mailer, db := newResetService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "Alice@Example.com"))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "alice@example.com", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].body, "http://localhost:3000/auth/reset-password?email=alice%40example.com&token=")
	token := resetLinkToken(t, mailer.sent[0].body)
	assert.Len(t, token, 64)

	var stored models.PasswordResetRequest
	require.NoError(t, db.First(&stored).Error)
	assert.NotEqual(t, token, stored.TokenHash)

	assert.NoError(t, svc.VerifyReset(ctx, "alice@example.com", token))
	assertCode(t, svc.VerifyReset(ctx, "alice@example.com", "wrong"), models.CodeValidation)
	assertCode(t, svc.VerifyReset(ctx, "bob@example.com", token), models.CodeValidation)

	assertCode(t, svc.CompleteReset(ctx, "alice@example.com", token, "short"), models.CodeValidation)
	require.NoError(t, svc.CompleteReset(ctx, "alice@example.com", token, "new-password-1"))

	var user models.User
	require.NoError(t, db.Where("email = ?", "alice@example.com").First(&user).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("new-password-1")))

	// consumed
	assertCode(t, svc.VerifyReset(ctx, "alice@example.com", token), models.CodeValidation)
}

func TestPasswordReset_ExpiredTokenAndSweep(t *testing.T) {
	svc, mailer, db := newResetService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "alice@example.com"))
	token := resetLinkToken(t, mailer.sent[0].body)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assertCode(t, svc.VerifyReset(ctx, "alice@example.com", token), models.CodeValidation)

	removed, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var count int64
	db.Model(&models.PasswordResetRequest{}).Count(&count)
	assert.Zero(t, count)
}

func TestPasswordReset_MailFailureStillSucceeds(t *testing.T) {
	svc, mailer, _ := newResetService(t)
	mailer.err = errors.New("smtp down")
	assert.NoError(t, svc.RequestReset(context.Background(), "alice@example.com"))
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{}.Send(context.Background(), "a@example.com", "hi", "body"))
}
