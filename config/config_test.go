package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IDENTITY_VERIFY_SIGNATURE", "")
	t.Setenv("MAIL_QUEUE_SIZE", "")

	cfg := Load()
	require.True(t, cfg.IdentityVerifySignature)
	require.Equal(t, 256, cfg.MailQueueSize)
	require.Equal(t, time.Hour, cfg.AccessTTL)
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("IDENTITY_VERIFY_SIGNATURE", "maybe")
	t.Setenv("JWT_ACCESS_TTL", "soon")
	t.Setenv("MAIL_QUEUE_SIZE", "lots")

	cfg := Load()
	require.True(t, cfg.IdentityVerifySignature)
	require.Equal(t, time.Hour, cfg.AccessTTL)
	require.Equal(t, 256, cfg.MailQueueSize)
}

func TestSplitLists(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " http://a.test, ,http://b.test ", ElasticsearchAddrs: ""}
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
	require.Empty(t, cfg.ESAddrs())
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "accounts", DBSSLMode: "disable"}
	require.Equal(t, "postgres://u:p@h:5432/accounts?sslmode=disable", cfg.PostgresDSN())
}
