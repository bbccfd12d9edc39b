package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"institute/portal/internal/config"
	"institute/portal/internal/db"
	"institute/portal/internal/db/inmem"
	portalgrpc "institute/portal/internal/grpc"
	internalhttp "institute/portal/internal/http"
	"institute/portal/internal/jobs"
	"institute/portal/internal/logging"
	"institute/portal/internal/notify"
	"institute/portal/internal/operations"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store operations.Store
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on restart")
		store = inmem.New()
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("db connection failed", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Migrate(pool); err != nil {
			log.Fatal("db migration failed", zap.Error(err))
		}
		store = db.NewStore(pool)
	default:
		log.Fatal("unknown store", zap.String("store", cfg.Store))
	}

	opts := operations.Options{
		Location: cfg.Location(),
		Logger:   log.Named("operations"),
	}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatal("redis ping failed", zap.Error(err))
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Warn("redis close error", zap.Error(err))
			}
		}()
		opts.Publisher = notify.NewRedisPublisher(redisClient)
	} else {
		log.Info("redis not configured; notifications are stored but not published")
	}

	ops := operations.NewService(store, opts)
	server := internalhttp.NewServer(cfg, ops, log.Named("http"))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, healthServer, err := portalgrpc.NewServer(cfg.ServiceAuthToken, log.Named("grpc"))
	if errors.Is(err, portalgrpc.ErrServiceTokenRequired) {
		log.Info("grpc health disabled: SERVICE_AUTH_TOKEN not set")
	} else if err != nil {
		log.Fatal("grpc init failed", zap.Error(err))
	}

	jobs.StartNotificationPurgeJob(ctx, cfg, ops, log.Named("jobs"))

	go func() {
		log.Info("portal http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	if grpcServer != nil {
		go func() {
			listener, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				log.Fatal("grpc listen error", zap.Error(err))
			}
			log.Info("portal grpc listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcServer.Serve(listener); err != nil {
				log.Fatal("grpc server error", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		healthServer.SetServingStatus(portalgrpc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		grpcServer.GracefulStop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
}
