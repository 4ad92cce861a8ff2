package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/qrgate/portal/config"
	"github.com/qrgate/portal/internal/cache"
	"github.com/qrgate/portal/internal/db"
	"github.com/qrgate/portal/internal/handlers"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/mail"
	"github.com/qrgate/portal/internal/mq"
	"github.com/qrgate/portal/internal/services"
	"github.com/qrgate/portal/internal/storage"
	"github.com/qrgate/portal/internal/store"
)

// Services is everything the router needs.
type Services struct {
	Auth          *services.AuthService
	Issuance      *services.IssuanceService
	Residents     *services.ResidentService
	Tokens        *services.TokenService
	History       *services.HistoryService
	Notifications *services.NotificationService
	Ads           *services.AdService
	Gas           *services.GasService
	Menu          *services.MenuService
	Dashboards    *services.DashboardService
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         mq.Backend
	channel    string
	stopWorker context.CancelFunc
	cache      cache.Cache
	log        logging.Logger
}

// New opens every backend named by cfg and wires the router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logging.New(cfg.Log, os.Stdout)

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var objects services.ObjectStore
	st, err := storage.New(ctx, cfg.Storage)
	switch {
	case err == nil:
		if err := st.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("ensure bucket %q: %w", st.Bucket(), err)
		}
		log.Info(ctx, "object storage ready", "backend", cfg.Storage.Backend, "bucket", st.Bucket())
		objects = st
	case errors.Is(err, storage.ErrDisabled):
		log.Warn(ctx, "object storage disabled; uploads will be rejected")
	default:
		_ = dbConn.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	backend, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init mq: %w", err)
	}

	menuCache := cache.New(cfg.Redis)
	svc, err := NewServices(dbConn, objects, backend, cfg, menuCache, log)
	if err != nil {
		_ = backend.Close()
		_ = dbConn.Close()
		return nil, err
	}

	router := NewRouter(cfg, svc, log)

	stopWorker := func() {}
	if memory, ok := backend.(*mq.Memory); ok {
		stopWorker = runInProcessWorker(memory, cfg, log)
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         backend,
		channel:    cfg.MQ.Channel,
		stopWorker: stopWorker,
		cache:      menuCache,
		log:        log,
	}, nil
}

// runInProcessWorker consumes events from the in-memory broker until the
// returned cancel func is called.
func runInProcessWorker(backend *mq.Memory, cfg config.Config, log logging.Logger) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	worker := services.NewEventWorker(mail.New(cfg.Mail), cfg.Mail.AdminNotifyEmail, log)
	go func() {
		if err := worker.Run(ctx, backend, cfg.MQ.Channel); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(ctx, "in-process event worker stopped", "error", err)
		}
	}()
	return cancel
}

// NewServices builds the service layer over an open database.
func NewServices(
	conn *sql.DB,
	objects services.ObjectStore,
	backend mq.Backend,
	cfg config.Config,
	menuCache cache.Cache,
	log logging.Logger,
) (Services, error) {
	residentRepo := store.NewResidentRepository(conn)
	tokenRepo := store.NewTokenRepository(conn)
	accountRepo := store.NewAccountRepository(conn)
	notificationRepo := store.NewNotificationRepository(conn)
	adRepo := store.NewAdRepository(conn)
	gasRepo := store.NewGasRepository(conn)
	menuRepo := store.NewMenuRepository(conn)

	mailer := mail.New(cfg.Mail)
	events := services.NewPublisher(backend, cfg.MQ.Channel, log)

	issuance := services.NewIssuanceService(store.NewIssuanceStore(conn), events)
	menu, err := services.NewMenuService(menuRepo, menuCache, cfg.Redis.TTL, log)
	if err != nil {
		return Services{}, fmt.Errorf("load menu catalog: %w", err)
	}

	return Services{
		Auth:          services.NewAuthService(accountRepo),
		Issuance:      issuance,
		Residents:     services.NewResidentService(residentRepo, accountRepo, notificationRepo, events, log),
		Tokens:        services.NewTokenService(tokenRepo, residentRepo, issuance, mailer, log),
		History:       services.NewHistoryService(residentRepo),
		Notifications: services.NewNotificationService(notificationRepo, mailer),
		Ads:           services.NewAdService(adRepo, objects, log),
		Gas:           services.NewGasService(gasRepo, objects),
		Menu:          menu,
		Dashboards:    services.NewDashboardService(residentRepo, tokenRepo, gasRepo, gasRepo, notificationRepo),
	}, nil
}

// NewRouter registers every route. Page-style routes live under /admin,
// /user and "/"; the JSON API lives under /api.
func NewRouter(cfg config.Config, svc Services, log logging.Logger) *chi.Mux {
	guard := handlers.NewGuard(cfg.Auth, svc.Auth, log)

	authHandler := handlers.NewAuthHandler(svc.Auth, cfg.Auth, log)
	generateHandler := handlers.NewGenerateHandler(svc.Issuance, log)
	residentHandler := handlers.NewResidentHandler(svc.Residents, svc.Tokens, log)
	tokenHandler := handlers.NewTokenHandler(svc.Tokens, log)
	historyHandler := handlers.NewHistoryHandler(svc.History, log)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications, log)
	adHandler := handlers.NewAdHandler(svc.Ads, log)
	gasHandler := handlers.NewGasHandler(svc.Gas, guard, log)
	menuHandler := handlers.NewMenuHandler(svc.Menu, guard, log)
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboards, log)
	scanHandler := handlers.NewScanHandler(log)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		handlers.CORS(cfg.CORSOrigins),
		guard.Gate,
	)

	router.Get("/healthz", handlers.Healthz)
	router.Get("/", handlers.Home)
	router.Get("/scan", handlers.ScanPage)

	router.Route("/admin", func(r chi.Router) {
		r.Get("/login", handlers.AdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAdmin)
			r.Get("/dashboard", dashboardHandler.Admin)
			r.Get("/history", historyHandler.List)
			r.Get("/notifications", notificationHandler.List)
			r.Get("/ads", adHandler.List)
			r.Get("/menu", menuHandler.Matrix)
		})
	})
	router.With(guard.RequireAuth).Get("/user/dashboard", dashboardHandler.User)

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authHandler, guard)
		})
		handlers.GenerateRouter(r, generateHandler, guard)
		r.Route("/residents", func(r chi.Router) {
			handlers.ResidentRouter(r, residentHandler, guard)
		})
		r.Route("/tokens", func(r chi.Router) {
			handlers.TokenRouter(r, tokenHandler)
		})
		r.Route("/notifications", func(r chi.Router) {
			handlers.NotificationRouter(r, notificationHandler, guard)
		})
		r.Route("/gas", func(r chi.Router) {
			handlers.GasRouter(r, gasHandler)
		})
		r.Route("/ads", func(r chi.Router) {
			handlers.AdRouter(r, adHandler)
		})
		r.Get("/menu", menuHandler.Menu)
		r.Route("/scan", func(r chi.Router) {
			handlers.ScanRouter(r, scanHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/menu", func(r chi.Router) {
				handlers.MenuAdminRouter(r, menuHandler)
			})
			r.Group(func(r chi.Router) {
				r.Use(guard.RequireAdmin)
				r.Route("/residents", func(r chi.Router) {
					handlers.ResidentAdminRouter(r, residentHandler)
				})
				r.Route("/tokens", func(r chi.Router) {
					handlers.TokenAdminRouter(r, tokenHandler)
				})
				r.Route("/ads", func(r chi.Router) {
					handlers.AdAdminRouter(r, adHandler)
				})
			})
		})
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.log.Info(context.Background(), "server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.stopWorker != nil {
		s.stopWorker()
	}
	if memory, ok := s.mq.(*mq.Memory); ok {
		if dropped := len(memory.Pending(s.channel)); dropped > 0 {
			s.log.Warn(ctx, "dropping undelivered events", "count", dropped)
		}
	}
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if closer, ok := s.cache.(io.Closer); ok {
		_ = closer.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
