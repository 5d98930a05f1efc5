package router

import (
	accountapp "github.com/oksasatya/go-account-service/internal/application"
	"github.com/oksasatya/go-account-service/internal/container"
	repoaccount "github.com/oksasatya/go-account-service/internal/domain/repository"
	pginfra "github.com/oksasatya/go-account-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-account-service/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-account-service/internal/interface/http"
	"github.com/oksasatya/go-account-service/internal/router/modules"
	mailtpl "github.com/oksasatya/go-account-service/pkg/mailer/templates"
)

type AccountModuleDeps struct {
	Repo     repoaccount.AccountRepository
	Service  *accountapp.Service
	Accounts *handlers.AccountHandler
	Auth     *handlers.AuthHandler
}

func buildAccountDeps() AccountModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	repo := pginfra.NewAccountRepository(container.GetPGPool())

	opts := []accountapp.Option{
		accountapp.WithMailFrom(cfg.MailFrom),
		accountapp.WithBrand(mailtpl.Brand{AppName: cfg.AppName, CompanyName: cfg.CompanyName, SupportURL: cfg.SupportURL}),
	}
	if es := container.GetES(); es != nil {
		opts = append(opts, accountapp.WithIndex(search.NewAccountIndex(es, cfg.ESAccountsIndex, logger)))
	}
	if st := container.GetAvatars(); st != nil {
		opts = append(opts, accountapp.WithAvatars(st))
	}

	var notifier accountapp.Notifier
	if d := container.GetDispatcher(); d != nil {
		notifier = d
	}

	service := accountapp.NewService(
		repo,
		container.GetIdentityProvider(),
		container.GetJWT(),
		notifier,
		logger,
		opts...,
	)

	return AccountModuleDeps{
		Repo:     repo,
		Service:  service,
		Accounts: handlers.NewAccountHandler(service, logger),
		Auth:     handlers.NewAuthHandler(service, logger),
	}
}

// InitModules wires every module from the container and adds it to the registry.
// Call once during startup, after the container is populated.
func InitModules(r *Registry) {
	deps := buildAccountDeps()
	identity := container.GetIdentityProvider()
	rdb := container.GetRedis()

	r.Add(modules.NewAccountModule(deps.Accounts, identity, rdb))
	r.Add(modules.NewAuthModule(deps.Auth, identity, rdb))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb))
	}
}
