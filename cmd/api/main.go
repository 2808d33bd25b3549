package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dcc-backend/internal/appointments"
	"dcc-backend/internal/auth"
	"dcc-backend/internal/cache"
	"dcc-backend/internal/catalog"
	"dcc-backend/internal/clinics"
	"dcc-backend/internal/config"
	"dcc-backend/internal/currency"
	"dcc-backend/internal/db"
	"dcc-backend/internal/forms"
	"dcc-backend/internal/handlers"
	"dcc-backend/internal/middleware"
	"dcc-backend/internal/models"
	"dcc-backend/internal/notifications"
	"dcc-backend/internal/storage"
	"dcc-backend/internal/users"
	"dcc-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logLevel := slog.LevelInfo
	if cfg.Env == "development" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected")
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cacheStore cache.Cache = cache.NewNoop()
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		var err error
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected")
		cacheStore = redisCache
	}

	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	jwtManager := &auth.Manager{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
		RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
		Issuer:     "dcc-backend",
	}

	mailer := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox)
	if mailer == nil {
		logger.Info("brevo mailer disabled")
	} else {
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail))
	}

	var docStore forms.Uploader = storage.NewDisabled()
	if s3Store, err := storage.NewS3(ctx, cfg.DocumentBucket, cfg.DocumentBaseURL); err == nil {
		docStore = s3Store
		logger.Info("document storage enabled", slog.String("bucket", cfg.DocumentBucket))
	} else {
		logger.Warn("document storage disabled", slog.String("error", err.Error()))
	}

	currencyClient := currency.NewClient(cfg.CurrencyAPIURL, cfg.CurrencyAPIKey)
	catalogCtx := catalog.NewContext()
	val := validation.New()

	clinicRepo := clinics.NewRepository(cols.Clinics)
	clinicService := clinics.NewService(clinicRepo, cacheStore, logger, cfg.Timezone)
	clinicHandler := clinics.NewHandler(clinicService, val, logger)

	userRepo := users.NewRepository(cols.Users)
	var userMailer users.Mailer
	if mailer != nil {
		userMailer = mailer
	}
	userService, err := users.NewService(userRepo, jwtManager, userMailer, logger, cfg.Timezone)
	if err != nil {
		logger.Error("user service init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	userHandler := users.NewHandler(userService, val, logger)

	var appointmentMailer appointments.Mailer
	if mailer != nil {
		appointmentMailer = mailer
	}
	appointmentRepo := appointments.NewRepository(cols.Appointments)
	serviceFinder := appointments.NewServiceFinder(cols.Services)
	appointmentService, err := appointments.NewService(appointmentRepo, serviceFinder, userRepo, appointmentMailer, logger, cfg.Timezone)
	if err != nil {
		logger.Error("appointment service init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	appointmentHandler := appointments.NewHandler(appointmentService, val, logger)

	formRepo := forms.NewRepository(cols.Forms, cols.SubmittedForms)
	formService := forms.NewService(formRepo, docStore, logger, cfg.Timezone)
	formHandler := forms.NewHandler(formService, val, logger)

	server, err := handlers.NewServer(cfg, cols, val, logger, cacheStore, catalogCtx, currencyClient)
	if err != nil {
		logger.Error("server init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	bookingLimiter := middleware.NewRateLimiter(cfg.RateLimitBookings, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	authLimiter := middleware.NewRateLimiter(cfg.RateLimitAuth, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	staff := []string{models.RoleAdministrator, models.RoleReceptionist}
	staffAndTherapist := []string{models.RoleAdministrator, models.RoleReceptionist, models.RoleTherapist}
	everyone := []string{models.RoleAdministrator, models.RoleReceptionist, models.RoleTherapist, models.RolePatient}

	r.Route("/api", func(api chi.Router) {
		// Tenant provisioning happens before a clinic slug exists, so it
		// stays outside the tenant-scoped group.
		api.With(middleware.RequireRole(jwtManager, models.RoleSoftwareOwner)).Post("/clinic/create", clinicHandler.Create)

		api.Group(func(api chi.Router) {
			// Every route below is tenant scoped by the clinic slug header.
			api.Use(middleware.Tenant(clinicService))

			api.Get("/clinic/getBySlug", clinicHandler.GetBySlug)
			api.With(middleware.RequireRole(jwtManager, models.RoleAdministrator)).Post("/clinic/edit", clinicHandler.Edit)

			api.With(authLimiter.Middleware).Post("/user/login", userHandler.Login)
			api.With(authLimiter.Middleware).Post("/user/refresh", userHandler.Refresh)
			api.With(authLimiter.Middleware).Post("/user/register", userHandler.Register)

			api.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireRole(jwtManager, models.RoleAdministrator))
				admin.Post("/user/create", userHandler.Create)
				admin.Post("/user/deactivate", userHandler.Deactivate)
				admin.Post("/user/activate", userHandler.Activate)
				admin.Post("/user/remove", userHandler.Remove)
			})
			api.Group(func(protected chi.Router) {
				protected.Use(middleware.RequireRole(jwtManager, staff...))
				protected.Get("/user/getAll", userHandler.GetAll)
				protected.Get("/user/getById/{id}", userHandler.GetByID)
				protected.Post("/user/edit", userHandler.Edit)
			})
			api.With(middleware.RequireRole(jwtManager, everyone...)).Post("/user/changePassword", userHandler.ChangePassword)

			api.Group(func(patient chi.Router) {
				patient.Use(middleware.RequireRole(jwtManager, models.RolePatient))
				patient.With(bookingLimiter.Middleware).Post("/appointment/book", appointmentHandler.Book)
				patient.Post("/appointment/rate", appointmentHandler.Rate)
			})
			api.Group(func(protected chi.Router) {
				protected.Use(middleware.RequireRole(jwtManager, everyone...))
				protected.Get("/appointment/getAll", appointmentHandler.GetAll)
				protected.Get("/appointment/getById/{id}", appointmentHandler.GetByID)
				protected.Post("/appointment/cancel", appointmentHandler.Cancel)
			})
			api.Group(func(protected chi.Router) {
				protected.Use(middleware.RequireRole(jwtManager, staff...))
				protected.Post("/appointment/confirm", appointmentHandler.Confirm)
			})
			api.With(middleware.RequireRole(jwtManager, staffAndTherapist...)).Post("/appointment/close", appointmentHandler.Close)

			api.With(middleware.RequireRole(jwtManager, everyone...)).Get("/service/getAll", server.GetAllServices)
			api.With(middleware.RequireRole(jwtManager, everyone...)).Get("/service/getById/{id}", server.GetServiceByID)
			api.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireRole(jwtManager, models.RoleAdministrator))
				admin.Post("/service/create", server.CreateService)
				admin.Post("/service/edit", server.EditService)
				admin.Post("/service/setActive", server.SetServiceActive)
				admin.Post("/service/delete", server.DeleteService)
			})

			api.With(middleware.RequireRole(jwtManager, everyone...)).Get("/headquarter/getAll", server.GetAllHeadquarters)
			api.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireRole(jwtManager, models.RoleAdministrator))
				admin.Post("/headquarter/create", server.CreateHeadquarter)
				admin.Post("/headquarter/delete", server.DeleteHeadquarter)
			})

			api.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireRole(jwtManager, models.RoleAdministrator))
				admin.Post("/form/create", formHandler.CreateForm)
				admin.Post("/form/delete", formHandler.DeleteForm)
			})
			api.Group(func(protected chi.Router) {
				protected.Use(middleware.RequireRole(jwtManager, everyone...))
				protected.Get("/form/getAll", formHandler.GetAllForms)
				protected.Get("/submittedForm/getAll", formHandler.GetAllSubmitted)
			})
			api.With(middleware.RequireRole(jwtManager, models.RolePatient)).Post("/submittedForm/create", formHandler.Submit)
			api.With(middleware.RequireRole(jwtManager, everyone...)).Post("/submittedForm/delete", formHandler.DeleteSubmission)

			api.Get("/catalog/getAll", server.GetCatalog)
			api.Get("/catalog/getCities", server.GetCities)
			api.With(middleware.RequireRole(jwtManager, staff...)).Get("/currency/getRates", server.GetCurrencyRates)
			api.With(middleware.RequireRole(jwtManager, staff...)).Get("/currency/convert", server.ConvertCurrency)
		})
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
}
