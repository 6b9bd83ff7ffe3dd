package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"
	"github.com/dawatapp/dawat/pkg"
	"github.com/dawatapp/dawat/pkg/keylock"
	gomongo "go.mongodb.org/mongo-driver/mongo"

	"github.com/dawatapp/dawat/services/marketplace/internal/checkout"
	"github.com/dawatapp/dawat/services/marketplace/internal/feed"
	"github.com/dawatapp/dawat/services/marketplace/internal/geocode"
	"github.com/dawatapp/dawat/services/marketplace/internal/identity"
	"github.com/dawatapp/dawat/services/marketplace/internal/memory"
	"github.com/dawatapp/dawat/services/marketplace/internal/mongo"
	"github.com/dawatapp/dawat/services/marketplace/internal/order"
	"github.com/dawatapp/dawat/services/marketplace/internal/sqlite"
)

const (
	appNamespace = "DAWAT"
	appName      = "marketplace"
	appVersion   = "0.1.0"
)

func main() {
	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	seedCtx, cancelSeeds := context.WithCancel(ctx)
	defer cancelSeeds()

	var (
		postRepo   feed.PostRepo
		orderRepo  order.OrderRepo
		db         *gomongo.Database
		lifecycles []interface{}
	)

	backend := config.GetStringOrDef("db.backend", "memory")
	switch backend {
	case "mongo":
		baseRepo := mongo.NewBaseRepo(config, logger)
		if err := baseRepo.Start(ctx); err != nil {
			log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
		}
		db = baseRepo.GetDatabase()
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			log.Fatalf("%s(%s) cannot create indexes: %v", appName, appVersion, err)
		}
		postRepo = mongo.NewPostRepo(db)
		orderRepo = mongo.NewOrderRepo(db)
		lifecycles = append(lifecycles, apt.LifecycleHooks{OnStop: baseRepo.Stop})

	case "sqlite":
		sqlDB := sqlite.NewDB(config.GetStringOrDef("db.sqlite.path", sqlite.DefaultPath), logger)
		if err := sqlDB.Start(ctx); err != nil {
			log.Fatalf("%s(%s) cannot open sqlite database: %v", appName, appVersion, err)
		}
		postRepo = sqlite.NewPostRepo(sqlDB.Gorm())
		orderRepo = sqlite.NewOrderRepo(sqlDB.Gorm())
		lifecycles = append(lifecycles, apt.LifecycleHooks{OnStop: sqlDB.Stop})

	case "memory":
		postRepo = memory.NewPostRepo()
		orderRepo = memory.NewOrderRepo()

	default:
		log.Fatalf("%s(%s) unknown db.backend %q", appName, appVersion, backend)
	}
	logger.Info("Storage backend selected", "backend", backend)

	var publisher events.Publisher
	if natsURL := config.GetStringOrDef("nats.url", ""); natsURL != "" {
		pub, err := newPublisher(ctx, config, natsURL, logger)
		if err != nil {
			log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
		}
		publisher = pub
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStop: func(context.Context) error {
				return pub.Close()
			},
		})
	} else {
		logger.Info("NATS disabled, events will not be published")
	}

	geocoder := newGeocoder(config, logger)

	freshness, err := time.ParseDuration(config.GetStringOrDef("feed.freshness", "4h"))
	if err != nil {
		log.Fatalf("%s(%s) invalid feed.freshness: %v", appName, appVersion, err)
	}

	catalog := feed.NewCatalog(feed.CatalogDeps{
		Repo:      postRepo,
		Geocoder:  geocoder,
		Publisher: publisher,
		Locks:     keylock.New(),
		Freshness: freshness,
	}, logger)

	orders := order.NewManager(order.ManagerDeps{
		Repo:      orderRepo,
		Publisher: publisher,
		Locks:     keylock.New(),
	}, logger)

	service := checkout.NewService(catalog, orders, logger)

	feedHandler := feed.NewHandler(catalog, config, logger)
	orderHandler := checkout.NewHandler(checkout.HandlerDeps{
		Service: service,
		Orders:  orders,
	}, config, logger)

	demoEnabled, _ := config.GetString("seeding.demo")
	if demoEnabled == "true" {
		logger.Info("Demo seeding enabled for marketplace service")
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStart: feed.DemoSeedingFunc(seedCtx, catalog, db, logger),
			OnStop: func(context.Context) error {
				cancelSeeds()
				return nil
			},
		})
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: true,
	})
	identityMW, err := newIdentityMiddleware(config, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot setup identity: %v", appName, appVersion, err)
	}
	stack = append(stack, identityMW)

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", feedHandler, orderHandler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	if err := ms.Run(ctx); err != nil {
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}

type closingPublisher interface {
	events.Publisher
	Close() error
}

// newPublisher publishes on core NATS, or into a JetStream stream when
// nats.stream=true.
func newPublisher(ctx context.Context, config *apt.Config, url string, logger apt.Logger) (closingPublisher, error) {
	if config.GetStringOrDef("nats.stream", "false") != "true" {
		return pkg.NewNATSPublisher(url)
	}

	cfg := pkg.StreamConfigFor(url)
	cfg.StreamName = config.GetStringOrDef("nats.stream.name", pkg.DefaultStreamName)
	if raw := config.GetStringOrDef("nats.stream.max_age", ""); raw != "" {
		maxAge, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid nats.stream.max_age: %w", err)
		}
		cfg.MaxAge = maxAge
	}

	logger.Info("Publishing events to JetStream", "stream", cfg.StreamName)
	return pkg.NewNATSStreamPublisher(ctx, cfg)
}

// newIdentityMiddleware verifies bearer tokens when auth.public_key is set.
// Otherwise the forwarded identity headers are trusted, which is only safe
// behind a gateway that strips them from client requests.
func newIdentityMiddleware(config *apt.Config, logger apt.Logger) (func(http.Handler) http.Handler, error) {
	encoded := config.GetStringOrDef("auth.public_key", "")
	if encoded == "" {
		logger.Info("Trusting gateway identity headers")
		return identity.Middleware, nil
	}

	key, err := identity.ParsePublicKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid auth.public_key: %w", err)
	}

	audience := config.GetStringOrDef("auth.audience", appName)
	logger.Info("Verifying bearer tokens", "audience", audience)
	return identity.TokenMiddleware(identity.NewTokenVerifier(key, audience)), nil
}

// newGeocoder returns the postcode client. geocode.endpoint=off disables lookups.
func newGeocoder(config *apt.Config, logger apt.Logger) geocode.Client {
	endpoint := config.GetStringOrDef("geocode.endpoint", geocode.DefaultEndpoint)
	if endpoint == "off" {
		logger.Info("Geocoding disabled")
		return geocode.NewNoopClient()
	}

	timeout, err := time.ParseDuration(config.GetStringOrDef("geocode.timeout", "5s"))
	if err != nil {
		logger.Info("Invalid geocode.timeout, using default", "error", err)
		timeout = 5 * time.Second
	}

	return geocode.NewHTTPClient(endpoint, timeout)
}
