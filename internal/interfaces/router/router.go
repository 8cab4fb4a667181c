package router

import (
	authsvc "crewbase-backend/internal/application/auth"
	emailsvc "crewbase-backend/internal/application/emails"
	invsvc "crewbase-backend/internal/application/invitations"
	"crewbase-backend/internal/application/license"
	orgsvc "crewbase-backend/internal/application/org"
	"crewbase-backend/internal/application/tokens"
	usersvc "crewbase-backend/internal/application/user"
	"crewbase-backend/internal/config"
	"crewbase-backend/internal/infrastructure/database"
	authhandler "crewbase-backend/internal/interfaces/handlers/auth"
	billinghandler "crewbase-backend/internal/interfaces/handlers/billing"
	healthhandler "crewbase-backend/internal/interfaces/handlers/health"
	invhandler "crewbase-backend/internal/interfaces/handlers/invitations"
	orghandler "crewbase-backend/internal/interfaces/handlers/org"
	userhandler "crewbase-backend/internal/interfaces/handlers/user"
	"crewbase-backend/internal/middleware"
	"crewbase-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp wires the Fiber app, database, and Redis from config.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opts)
		app.Use(middleware.HealthMarker(rdb))
	}
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		if errDB = database.AutoMigrate(db); errDB != nil {
			return nil, nil, nil, errDB
		}
	}

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             &gormDBPinger{db: db},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/health/json", hh.JSON)
	app.Get("/health/reset", hh.Reset)

	// Raw body route; registered outside any parsing middleware
	billingWebhook := &billinghandler.WebhookHandler{DB: db, WebhookSecret: cfg.BillingWebhookSecret}
	app.Post("/api/v1/billing/webhook", billingWebhook.HandleWebhook)

	issuer := &tokens.Issuer{
		SessionSecret: []byte(cfg.SessionJWTSecret),
		SessionTTL:    cfg.SessionTTL,
	}
	ledger := &license.Ledger{DB: db}
	mailer := &emailsvc.BrevoClient{APIKey: cfg.BrevoAPIKey, MailFrom: cfg.MailFrom}

	invitations := &invsvc.Service{
		DB:            db,
		Tokens:        issuer,
		Ledger:        ledger,
		Mailer:        mailer,
		InviteBaseURL: cfg.InviteBaseURL,
	}
	auth := &authsvc.Service{DB: db, Rdb: rdb, Tokens: issuer}
	orgs := &orgsvc.Service{DB: db, Ledger: ledger}
	users := &usersvc.Service{DB: db, Rdb: rdb}

	ah := &authhandler.Handlers{Service: auth}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", middleware.RequireAuth(issuer, rdb), ah.Me)
	authGroup.Delete("/logout", middleware.RequireAuth(issuer, rdb), ah.Logout)

	ih := &invhandler.Handlers{Service: invitations, DB: db}
	// Public token endpoints: the invitee has no session yet
	app.Get("/api/v1/invitations/:token", ih.Check)
	app.Post("/api/v1/invitations/:token/complete", ih.Complete)

	oh := &orghandler.Handlers{Service: orgs, Ledger: ledger}
	uh := &userhandler.Handlers{Service: users}

	orgGroup := app.Group("/api/v1/organizations/:org_id", middleware.RequireAuth(issuer, rdb))
	orgGroup.Get("", middleware.AuthorizePermission(constants.ViewData), oh.View)
	orgGroup.Get("/license", middleware.AuthorizePermission(constants.ViewData), oh.License)
	orgGroup.Post("/invitations", middleware.AuthorizePermission(constants.InviteUser), ih.CreateBatch)
	orgGroup.Get("/invitations", middleware.AuthorizePermission(constants.ViewData), ih.List)
	orgGroup.Post("/invitations/:invite_id/resend", middleware.AuthorizePermission(constants.InviteUser), ih.Resend)
	orgGroup.Delete("/invitations/:invite_id", middleware.AuthorizePermission(constants.InviteUser), ih.Revoke)
	orgGroup.Patch("/members/:user_id/roles", middleware.AuthorizePermission(constants.AssignRole), uh.UpdateRoles)
	orgGroup.Delete("/members/:user_id", middleware.AuthorizePermission(constants.RemoveUser), uh.Deactivate)

	return app, db, rdb, nil
}
