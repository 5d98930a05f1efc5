package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/config"
	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/mailer"
)

// app-level container to share constructed components across packages.
// The router wires modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	avatars     *helpers.GCSObjectStore
	esClient    *elasticsearch.Client

	jwtManager *helpers.JWTManager
	identity   helpers.IdentityProvider
	dispatcher *mailer.Dispatcher
)

func SetConfig(c *config.Config)           { cfg = c }
func GetConfig() *config.Config            { return cfg }
func SetLogger(l *logrus.Logger)           { logger = l }
func GetLogger() *logrus.Logger            { return logger }
func SetPGPool(p *pgxpool.Pool)            { pgPool = p }
func GetPGPool() *pgxpool.Pool             { return pgPool }
func SetRedis(r *redis.Client)             { redisClient = r }
func GetRedis() *redis.Client              { return redisClient }
func SetAvatars(s *helpers.GCSObjectStore) { avatars = s }
func GetAvatars() *helpers.GCSObjectStore  { return avatars }
func SetES(c *elasticsearch.Client)        { esClient = c }
func GetES() *elasticsearch.Client         { return esClient }
func SetJWT(m *helpers.JWTManager)         { jwtManager = m }
func GetJWT() *helpers.JWTManager          { return jwtManager }
func SetDispatcher(d *mailer.Dispatcher)   { dispatcher = d }
func GetDispatcher() *mailer.Dispatcher    { return dispatcher }

func SetIdentityProvider(p helpers.IdentityProvider) { identity = p }

// GetIdentityProvider falls back to signature-verifying extraction over the
// configured JWT manager.
func GetIdentityProvider() helpers.IdentityProvider {
	if identity != nil {
		return identity
	}
	return helpers.NewIdentityProvider(jwtManager, true)
}
