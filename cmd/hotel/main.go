package main

import (
	"context"
	"time"

	bookingcache "hotelbook/internal/bookings/cache"
	bookingevents "hotelbook/internal/bookings/events"
	bookinghandler "hotelbook/internal/bookings/handler"
	bookingrepo "hotelbook/internal/bookings/repository"
	bookingservice "hotelbook/internal/bookings/service"
	bookingvalidator "hotelbook/internal/bookings/validator"
	dashboardhandler "hotelbook/internal/dashboard/handler"
	dashboardservice "hotelbook/internal/dashboard/service"
	"hotelbook/internal/health"
	roomhandler "hotelbook/internal/rooms/handler"
	roomrepo "hotelbook/internal/rooms/repository"
	roomservice "hotelbook/internal/rooms/service"
	roomvalidator "hotelbook/internal/rooms/validator"
	userhandler "hotelbook/internal/users/handler"
	userrepo "hotelbook/internal/users/repository"
	userservice "hotelbook/internal/users/service"
	"hotelbook/pkg/app"
	"hotelbook/pkg/config"
	"hotelbook/pkg/identity"
	"hotelbook/pkg/kafka"
	kafka_config "hotelbook/pkg/kafka/config"
	"hotelbook/pkg/lock"
	"hotelbook/pkg/middleware"
	"hotelbook/pkg/obs"
)

const ServiceName = "hotel-api"

type repositories struct {
	rooms    roomrepo.RoomRepository
	bookings bookingrepo.BookingRepository
	profiles userrepo.ProfileRepository
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStore()
	cfg.SetRedis()

	application := app.NewApplication(cfg)

	shutdownTracer, err := obs.InitTracer(context.Background(), ServiceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		cfg.Log.Fatal("Failed to initialise tracing", "error", err)
	}
	application.OnStop(app.StopFunc(shutdownTracer))

	repos := initRepositories(cfg)
	publisher := initPublisher(cfg, application)

	users := userservice.NewUserService(repos.profiles, cfg)
	bookings := bookingservice.NewBookingService(
		repos.bookings,
		repos.rooms,
		repos.profiles,
		initAvailabilityCache(cfg),
		publisher,
		bookingvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)
	rooms := roomservice.NewRoomService(repos.rooms, roomvalidator.NewRoomValidator(cfg.Log), cfg)
	dashboard := dashboardservice.NewDashboardService(rooms, users, bookings, cfg)
	cfg.Log.Info("Services initialized", "store", cfg.StoreDriver)

	auth := middleware.NewAuthenticator(identity.NewVerifier(cfg.JWTSecret), users, cfg.Log)

	application.SetApp(
		health.NewHealthHandler(pingers(cfg), cfg.Log),
		roomhandler.NewRoomHandler(rooms, auth, cfg.Log),
		bookinghandler.NewBookingHandler(bookings, auth, cfg.Log),
		userhandler.NewUserHandler(users, auth, cfg.Log),
		dashboardhandler.NewDashboardHandler(dashboard, auth, cfg.Log),
	)
	application.Run()
}

func initRepositories(cfg *config.Config) repositories {
	if cfg.StoreDriver == config.StoreDriverMongo {
		locker := initLocker(cfg)
		return repositories{
			rooms:    roomrepo.NewMongoRoomRepository(cfg, locker),
			bookings: bookingrepo.NewMongoBookingRepository(cfg, locker),
			profiles: userrepo.NewMongoProfileRepository(cfg),
		}
	}
	return repositories{
		rooms:    roomrepo.NewPostgresRoomRepository(cfg),
		bookings: bookingrepo.NewPostgresBookingRepository(cfg),
		profiles: userrepo.NewPostgresProfileRepository(cfg),
	}
}

// initLocker picks the room lock shared by the mongo booking and room stores.
func initLocker(cfg *config.Config) lock.Locker {
	if cfg.LockBackend == config.LockBackendRedis {
		if cfg.Client.Redis == nil {
			cfg.Log.Fatal("LOCK_BACKEND=redis requires REDIS_ADDR")
		}
		cfg.Log.Info("Booking room locks held in redis")
		return lock.NewRedis(cfg.Client.Redis)
	}
	cfg.Log.Info("Booking room locks held in mongo", "collection", lock.LockCollection)
	return lock.NewMongo(cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
}

func initAvailabilityCache(cfg *config.Config) bookingcache.AvailabilityCache {
	if cfg.AvailabilityCacheTTL <= 0 {
		return bookingcache.Noop{}
	}
	if cfg.Client.Redis != nil {
		return bookingcache.NewRedis(cfg.Client.Redis, cfg.AvailabilityCacheTTL, cfg.Log)
	}
	return bookingcache.NewLocal(cfg.AvailabilityCacheTTL)
}

func initPublisher(cfg *config.Config, application *app.Application) bookingevents.Publisher {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)
	if !kafkaCfg.Enabled() {
		return bookingevents.Noop{}
	}

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.BookingTopic, kafkaCfg.BookingDLQ, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka.LoggingMiddleware(cfg.Log))
	application.OnStop(func(context.Context) error { return producer.Close() })
	return bookingevents.NewKafkaPublisher(producer)
}

func pingers(cfg *config.Config) map[string]health.Pinger {
	checks := make(map[string]health.Pinger)
	if cfg.Client.Postgres != nil {
		checks["postgres"] = cfg.Client.Postgres.PingContext
	}
	if cfg.Client.Mongo != nil {
		checks["mongo"] = func(ctx context.Context) error {
			return cfg.Client.Mongo.Ping(ctx, nil)
		}
	}
	if cfg.Client.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return cfg.Client.Redis.Ping(ctx).Err()
		}
	}
	return checks
}
