package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	rosterhandler "github.com/zenGate-Global/inspection-scheduler/domains/roster/be/handler"
	rosterrepo "github.com/zenGate-Global/inspection-scheduler/domains/roster/be/repo"
	rosterservice "github.com/zenGate-Global/inspection-scheduler/domains/roster/be/service"
	schedulinghandler "github.com/zenGate-Global/inspection-scheduler/domains/scheduling/be/handler"
	schedulingrepo "github.com/zenGate-Global/inspection-scheduler/domains/scheduling/be/repo"
	schedulingservice "github.com/zenGate-Global/inspection-scheduler/domains/scheduling/be/service"
	platformauth "github.com/zenGate-Global/inspection-scheduler/platform/go/auth"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/calendar"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/geo"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/holiday"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/lock"
	platformlogging "github.com/zenGate-Global/inspection-scheduler/platform/go/logging"
	platformmiddleware "github.com/zenGate-Global/inspection-scheduler/platform/go/middleware"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/retry"
	tenantmiddleware "github.com/zenGate-Global/inspection-scheduler/platform/go/tenant/middleware"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	BootstrapSchema bool          `env:"BOOTSTRAP_SCHEMA" envDefault:"false"`

	AuthProvider        string `env:"AUTH_PROVIDER" envDefault:"firebase"` // firebase | dev
	FirebaseCredentials string `env:"FIREBASE_CREDENTIALS_FILE"`
	CalendarCredentials string `env:"GOOGLE_CALENDAR_CREDENTIALS_FILE"`

	// Optional; enables distributed slot locking across replicas.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	HolidayYearsAhead int `env:"HOLIDAY_YEARS_AHEAD" envDefault:"2"`

	GeoWeight           float64       `env:"SCORE_GEO_WEIGHT" envDefault:"40"`
	WorkloadWeight      float64       `env:"SCORE_WORKLOAD_WEIGHT" envDefault:"35"`
	LocalityWeight      float64       `env:"SCORE_LOCALITY_WEIGHT" envDefault:"25"`
	PMBonus             float64       `env:"SCORE_PM_BONUS" envDefault:"20"`
	MaxRadiusMiles      float64       `env:"MAX_RADIUS_MILES" envDefault:"25"`
	WorkDayStartHour    int           `env:"WORKDAY_START_HOUR" envDefault:"9"`
	WorkDayEndHour      int           `env:"WORKDAY_END_HOUR" envDefault:"17"`
	PriorityStartHour   int           `env:"PRIORITY_START_HOUR" envDefault:"8"`
	PriorityEndHour     int           `env:"PRIORITY_END_HOUR" envDefault:"18"`
	SlotIntervalMinutes int           `env:"SLOT_INTERVAL_MINUTES" envDefault:"30"`
	LookaheadDays       int           `env:"LOOKAHEAD_DAYS" envDefault:"7"`
	MaxConcurrent       int           `env:"SCHEDULER_MAX_CONCURRENT" envDefault:"16"`
	CommitLockTTL       time.Duration `env:"COMMIT_LOCK_TTL" envDefault:"15s"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if cfg.BootstrapSchema {
		if err := persistence.BootstrapSchema(ctx, pool); err != nil {
			logger.Fatal("bootstrap schema", zap.Error(err))
		}
		logger.Info("schema bootstrap complete")
	}

	accountStore, err := persistence.NewAccountStore(pool)
	if err != nil {
		logger.Fatal("init account store", zap.Error(err))
	}
	rosterStore, err := persistence.NewRosterStore(pool)
	if err != nil {
		logger.Fatal("init roster store", zap.Error(err))
	}
	eventStore, err := persistence.NewEventStore(pool)
	if err != nil {
		logger.Fatal("init event store", zap.Error(err))
	}

	rosterService := rosterservice.New(rosterrepo.NewPostgresRepository(rosterStore))
	rosterHTTPHandler := rosterhandler.New(rosterService, logger)

	var calendarOpts []option.ClientOption
	if cfg.CalendarCredentials != "" {
		calendarOpts = append(calendarOpts, option.WithCredentialsFile(cfg.CalendarCredentials))
	}
	calendarClient, err := calendar.NewGoogleClient(ctx, calendarOpts...)
	if err != nil {
		logger.Fatal("init google calendar client", zap.Error(err))
	}

	var locker lock.SlotLocker
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("ping redis", zap.Error(err))
		}
		locker = lock.NewRedisLocker(redisClient)
		logger.Info("slot locking via redis", zap.String("addr", cfg.RedisAddr))
	} else {
		locker = lock.NewNoopLocker()
		logger.Warn("redis not configured, slot locking is process-local")
	}

	geoIndex, err := geo.NewIndex()
	if err != nil {
		logger.Fatal("load postcode index", zap.Error(err))
	}

	schedulingService, err := schedulingservice.New(schedulingservice.Deps{
		Repo:     schedulingrepo.NewPostgresRepository(eventStore, rosterStore, accountStore),
		Roster:   rosterService,
		Calendar: calendarClient,
		Locker:   locker,
		Geo:      geoIndex,
		Holidays: buildHolidayCalendar(cfg.HolidayYearsAhead),
		Retry:    retry.DefaultPolicy(),
		Config:   buildSchedulerConfig(cfg),
	})
	if err != nil {
		logger.Fatal("init scheduling service", zap.Error(err))
	}
	schedulingHTTPHandler := schedulinghandler.New(schedulingService, logger)

	authMiddleware := buildAuthMiddleware(ctx, cfg, logger)

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// ---- Swagger UI + OpenAPI JSON (public) ----
	registerDocsRoutes(rootRouter, logger)

	apiRouter := chi.NewRouter()
	apiRouter.Use(authMiddleware)
	apiRouter.Use(platformauth.RequireAccount())
	apiRouter.Use(platformmiddleware.RequestTrace)
	apiRouter.Use(tenantmiddleware.WithAccountSpace(accountStore, tenantmiddleware.Config{
		CacheTTL: time.Minute,
	}))

	schedulingValidator := mustNewSpecValidator(logger, "contracts/scheduling.yaml")
	apiRouter.Group(func(r chi.Router) {
		r.Use(schedulingValidator)
		schedulingHTTPHandler.Register(r)
	})

	rosterValidator := mustNewSpecValidator(logger, "contracts/roster.yaml")
	apiRouter.Group(func(r chi.Router) {
		r.Use(rosterValidator)
		rosterHTTPHandler.Register(r)
	})

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildSchedulerConfig(cfg config) schedulingservice.Config {
	scheduler := schedulingservice.DefaultConfig()
	scheduler.GeoWeight = cfg.GeoWeight
	scheduler.WorkloadWeight = cfg.WorkloadWeight
	scheduler.LocalityWeight = cfg.LocalityWeight
	scheduler.PMBonus = cfg.PMBonus
	scheduler.MaxRadiusMiles = cfg.MaxRadiusMiles
	scheduler.WorkDayStartHour = cfg.WorkDayStartHour
	scheduler.WorkDayEndHour = cfg.WorkDayEndHour
	scheduler.PriorityDayStartHour = cfg.PriorityStartHour
	scheduler.PriorityDayEndHour = cfg.PriorityEndHour
	scheduler.SlotIntervalMinutes = cfg.SlotIntervalMinutes
	scheduler.LookaheadDays = cfg.LookaheadDays
	scheduler.MaxConcurrent = cfg.MaxConcurrent
	scheduler.CommitLockTTL = cfg.CommitLockTTL
	return scheduler
}

// buildHolidayCalendar precomputes WA public holidays from this year forward.
// Tenant-specific closure dates layer on top at scheduling time.
func buildHolidayCalendar(yearsAhead int) holiday.Calendar {
	if yearsAhead < 1 {
		yearsAhead = 1
	}
	currentYear := time.Now().Year()
	years := make([]int, 0, yearsAhead+1)
	for y := currentYear; y <= currentYear+yearsAhead; y++ {
		years = append(years, y)
	}
	return holiday.NewRegionCalendar(map[string][]time.Time{
		holiday.RegionWA: holiday.WesternAustralia(years...),
	})
}

// mustNewSpecValidator loads the OpenAPI document and builds the request
// validator middleware applied to each domain group.
func mustNewSpecValidator(logger *zap.Logger, path string) func(http.Handler) http.Handler {
	spec := mustLoadSpec(logger, path)

	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: platformmiddleware.ValidateAuthenticationViaSwagger,
		},
	})
}

// mustLoadSpec loads and returns the OpenAPI document for validation and docs serving.
func mustLoadSpec(logger *zap.Logger, path string) *openapi3.T {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	absPath, err := filepath.Abs(path)
	if err != nil {
		logger.Fatal("resolve spec path", zap.String("path", path), zap.Error(err))
	}

	baseDir := filepath.Dir(absPath)
	loader.ReadFromURIFunc = func(loader *openapi3.Loader, ref *url.URL) ([]byte, error) {
		if ref == nil {
			return nil, errors.New("nil reference URI")
		}
		if ref.IsAbs() {
			switch ref.Scheme {
			case "file":
				data, err := os.ReadFile(ref.Path)
				if err != nil {
					return nil, fmt.Errorf("read reference %q: %w", ref.Path, err)
				}
				return data, nil
			default:
				return nil, fmt.Errorf("unsupported reference scheme %q", ref.String())
			}
		}
		refPath := filepath.Clean(ref.Path)
		if refPath == "" {
			return nil, fmt.Errorf("empty reference path for %q", ref.String())
		}
		candidate := filepath.Join(baseDir, refPath)
		data, err := os.ReadFile(candidate)
		if err != nil {
			return nil, fmt.Errorf("read reference %q: %w", candidate, err)
		}
		return data, nil
	}

	spec, err := loader.LoadFromFile(absPath)
	if err != nil {
		logger.Fatal("load openapi spec", zap.String("path", path), zap.Error(err))
	}
	logSecuritySchemes(logger, path, spec)
	return spec
}

func logSecuritySchemes(logger *zap.Logger, path string, spec *openapi3.T) {
	if spec.Components.SecuritySchemes == nil {
		spec.Components.SecuritySchemes = openapi3.SecuritySchemes{}
	}

	if _, ok := spec.Components.SecuritySchemes["bearerAuth"]; !ok {
		spec.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:   "http",
				Scheme: "bearer",
			},
		}
		logger.Warn("injecting default bearerAuth security scheme", zap.String("path", path))
	}

	names := make([]string, 0, len(spec.Components.SecuritySchemes))
	for name := range spec.Components.SecuritySchemes {
		names = append(names, name)
	}
	logger.Info("loaded security schemes", zap.String("path", path), zap.Strings("names", names))
}
