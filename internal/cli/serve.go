package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/fjod/go_foodcart/internal/auth"
	"github.com/fjod/go_foodcart/internal/cache"
	"github.com/fjod/go_foodcart/internal/config"
	h "github.com/fjod/go_foodcart/internal/http"
	"github.com/fjod/go_foodcart/internal/logger"
	"github.com/fjod/go_foodcart/internal/poller"
	"github.com/fjod/go_foodcart/internal/publisher"
	"github.com/fjod/go_foodcart/internal/repository"
	"github.com/fjod/go_foodcart/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the outbox publisher and the cart cleaner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel)
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("foodcart starting", "version", version, "order_store", cfg.OrderStore)

	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer db.Client().Disconnect(context.Background())

	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	orders, closeOrders, err := openOrderStore(cfg, db, log)
	if err != nil {
		return err
	}
	defer closeOrders()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	if errPing := redisClient.Ping(ctx).Err(); errPing != nil {
		// the cart service falls back to Mongo on cache errors
		log.Warn("redis unavailable at startup", "addr", cfg.RedisAddr, "error", errPing)
	}

	catalog := repository.NewMongoCatalog(db)
	carts := repository.NewMongoCartRepository(db)

	cartService := service.NewCartService(carts, cache.NewRedisCache(redisClient), catalog, log)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Carts:    carts,
		Clearer:  cartService,
		Orders:   orders,
		Catalog:  catalog,
		Profiles: catalog,
		Stores:   catalog,
		Logger:   log,
	})
	storeOrderService := service.NewStoreOrderService(orders, log)

	router := h.NewRouter(h.RouterDeps{
		Tokens:         auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		Carts:          cartService,
		Orders:         orderService,
		StoreOrders:    storeOrderService,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	outbox := publisher.NewOutboxPoller(orders, log, cfg.KafkaBrokers...)
	defer outbox.Close()
	cleaner := poller.NewPoller(cartService, log, cfg.KafkaBrokers...)
	defer cleaner.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		outbox.Run(gctx)
		return nil
	})

	g.Go(func() error {
		cleaner.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}

	log.Info("server exited")
	return nil
}

// openOrderStore picks the order backend. Postgres migrations are applied on startup.
func openOrderStore(cfg *config.Config, db *mongo.Database, log *slog.Logger) (repository.OrderStore, func(), error) {
	if cfg.OrderStore != config.OrderStorePostgres {
		return repository.NewMongoOrderRepository(db), func() {}, nil
	}

	repo, err := repository.NewPostgresRepository(&cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.RunMigrations(&cfg.Postgres); err != nil {
		repo.Close()
		return nil, nil, err
	}
	log.Info("database migrations completed")

	return repo, func() {
		if err := repo.Close(); err != nil {
			log.Error("failed to close postgres", "error", err)
		}
	}, nil
}
