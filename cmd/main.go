package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/adapter/auth"
	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/adapter/mail"
	"github.com/YelzhanWeb/restaurant/internal/adapter/postgres"
	"github.com/YelzhanWeb/restaurant/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/restaurant/internal/adapter/redis"
	"github.com/YelzhanWeb/restaurant/internal/adapter/telemetry"
	"github.com/YelzhanWeb/restaurant/internal/adapter/ws"
	"github.com/YelzhanWeb/restaurant/internal/app/access"
	"github.com/YelzhanWeb/restaurant/internal/app/catalog"
	"github.com/YelzhanWeb/restaurant/internal/app/chat"
	"github.com/YelzhanWeb/restaurant/internal/app/delivery"
	"github.com/YelzhanWeb/restaurant/internal/app/inventory"
	"github.com/YelzhanWeb/restaurant/internal/app/order"
	"github.com/YelzhanWeb/restaurant/internal/config"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	amqpAdapter "github.com/YelzhanWeb/restaurant/internal/adapter/amqp"
	httpAdapter "github.com/YelzhanWeb/restaurant/internal/adapter/http"
)

func main() {
	// Parse command-line flags
	mode := flag.String("mode", "", "Service mode: api-service, notification-subscriber, migrate")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	configPath := flag.String("config", "config.yaml", "Path to the YAML config")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize logger
	lgr := logger.New(*mode)

	shutdownTracing, err := telemetry.Setup(ctx, *mode, cfg.Tracing, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			lgr.Error("tracing_shutdown_failed", "Failed to flush spans", "shutdown", nil, err)
		}
	}()

	// Route to appropriate service
	switch *mode {
	case "api-service":
		err = runAPIService(ctx, cfg, lgr)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, lgr)
	case "migrate":
		err = runMigrations(ctx, cfg, lgr)
	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		lgr.Error("service_failed", "Service stopped with an error", "runtime", nil, err)
		os.Exit(1)
	}
}

func connectDatabase(ctx context.Context, cfg *config.Config, lgr logger.Logger) (postgres.DB, error) {
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})
	return db, nil
}

func connectRabbitMQ(cfg *config.Config, lgr logger.Logger) (rabbitmq.Connection, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		return nil, err
	}
	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})
	return conn, nil
}

func runMigrations(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	db, err := connectDatabase(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	lgr.Info("migrations_applied", "Database schema is up to date", "startup", nil)
	return nil
}

// orderNumbers prefers the shared Redis counter and falls back to counting
// stored orders when Redis is not configured or unreachable.
func orderNumbers(ctx context.Context, cfg config.RedisConfig, orders interfaces.OrderRepository, lgr logger.Logger) (interfaces.OrderNumberGenerator, func()) {
	if cfg.Addr == "" {
		return order.NewCountingNumbers(orders), func() {}
	}

	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		lgr.Warn("redis_unavailable", "Falling back to counting stored orders", "startup", map[string]interface{}{
			"addr":  cfg.Addr,
			"error": err.Error(),
		})
		return order.NewCountingNumbers(orders), func() {}
	}

	lgr.Info("redis_connected", "Connected to Redis", "startup", map[string]interface{}{"addr": cfg.Addr})
	return redis.NewOrderNumbers(client, orders), func() { client.Close() }
}

func runAPIService(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	db, err := connectDatabase(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer db.Close()

	mqConn, err := connectRabbitMQ(cfg, lgr)
	if err != nil {
		return err
	}
	defer mqConn.Close()

	// Initialize repositories
	orderRepo := postgres.NewOrderRepository(db)
	productRepo := postgres.NewProductRepository(db)
	stockRepo := postgres.NewStockRepository(db)
	userRepo := postgres.NewUserRepository(db)
	chatRepo := postgres.NewChatRepository(db)

	numbers, closeNumbers := orderNumbers(ctx, cfg.Redis, orderRepo, lgr)
	defer closeNumbers()

	// Initialize messaging
	publisher := rabbitmq.NewPublisher(mqConn)
	consumer := rabbitmq.NewConsumer(mqConn, cfg.RabbitMQ.Prefetch, lgr)

	// Initialize services
	ledgerOpts := []inventory.Option{inventory.WithDefaultRecipient(cfg.Mail.AdminRecipient)}
	if cfg.Lifecycle.ReductionMode == config.ReductionTransactional {
		ledgerOpts = append(ledgerOpts, inventory.WithTransactionalBatch(postgres.NewReductionStore(db)))
	}
	ledger := inventory.NewLedger(stockRepo, productRepo, rabbitmq.NewNotifier(publisher), lgr, ledgerOpts...)

	guard := access.NewGuard(userRepo)
	orderService := order.NewService(orderRepo, productRepo, userRepo, numbers, ledger, lgr,
		order.WithTerminalGuard(cfg.Lifecycle.BlockTerminal()))
	deliveryService := delivery.NewService(orderRepo, userRepo, lgr)
	catalogService := catalog.NewService(productRepo, stockRepo, orderRepo, userRepo, guard, lgr)
	inventoryService := inventory.NewService(stockRepo, productRepo, guard, lgr)
	chatService := chat.NewService(chatRepo, userRepo, lgr)

	// Real-time fan-out
	origin := uuid.NewString()
	hub := ws.NewHub(lgr)
	broadcaster := ws.NewBroadcaster(hub, publisher, origin, lgr)
	relay := amqpAdapter.NewEventHandler(hub, broadcaster.Origin(), lgr)

	wsHandler := ws.NewHandler(hub, chatService, orderService, broadcaster, ws.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RatePerSecond:  cfg.Server.ChatRatePerSecond,
		Burst:          cfg.Server.ChatBurst,
	}, lgr)

	router := httpAdapter.NewRouter(httpAdapter.Handlers{
		Orders:    httpAdapter.NewOrderHandler(orderService, broadcaster, lgr),
		Delivery:  httpAdapter.NewDeliveryHandler(deliveryService, broadcaster, lgr),
		Products:  httpAdapter.NewProductHandler(catalogService, lgr),
		Stocks:    httpAdapter.NewStockHandler(inventoryService, lgr),
		Chats:     httpAdapter.NewChatHandler(chatService, lgr),
		WebSocket: wsHandler,
	}, httpAdapter.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Verifier:       auth.NewAuthenticator(cfg.Auth),
	}, lgr)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lgr.Info("service_started", fmt.Sprintf("API Service started on port %d", cfg.Server.Port), "startup", map[string]interface{}{
			"port":           cfg.Server.Port,
			"origin":         broadcaster.Origin(),
			"reduction_mode": cfg.Lifecycle.ReductionMode,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return consumer.ConsumeEvents(gctx, relay.HandleEvent)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		lgr.Info("shutdown_initiated", "Shutting down API Service", "shutdown", map[string]interface{}{
			"ws_clients": hub.Clients(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		hub.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
		return nil
	})

	return g.Wait()
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	mqConn, err := connectRabbitMQ(cfg, lgr)
	if err != nil {
		return err
	}
	defer mqConn.Close()

	// Initialize consumer
	consumer := rabbitmq.NewConsumer(mqConn, cfg.RabbitMQ.Prefetch, lgr)

	// Initialize handler
	notificationHandler := amqpAdapter.NewNotificationHandler(mail.NewSMTPMailer(cfg.Mail), lgr)

	lgr.Info("service_started", "Notification Subscriber started", "startup", map[string]interface{}{
		"smtp_host": cfg.Mail.Host,
	})

	err = consumer.ConsumeLowStock(ctx, notificationHandler.HandleLowStock)
	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
	return err
}
