package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nebulamart/storefront-core/common/logger"
	"github.com/nebulamart/storefront-core/config"
	"github.com/nebulamart/storefront-core/database"
	"github.com/nebulamart/storefront-core/kafka"
	"github.com/nebulamart/storefront-core/repository"
	"github.com/nebulamart/storefront-core/routes"
	"github.com/nebulamart/storefront-core/services"

	awspkg "github.com/nebulamart/storefront-core/pkg/aws"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	mongoClient, db, err := database.Connect(cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		logger.Log.Fatal("MongoDB connection failed", zap.Error(err))
	}
	defer database.Close(mongoClient)

	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("Redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()

	// Repositories
	cartRepo := repository.NewMongoCartRepository(db)
	productRepo := repository.NewMongoProductRepository(db)
	orderRepo := repository.NewMongoOrderRepository(db)
	sequenceRepo := repository.NewMongoSequenceRepository(db)
	reservationRepo := repository.NewMongoReservationRepository(db)

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelIndexes()
	for name, ensure := range map[string]func(context.Context) error{
		"carts":        cartRepo.EnsureIndexes,
		"orders":       orderRepo.EnsureIndexes,
		"reservations": reservationRepo.EnsureIndexes,
	} {
		if err := ensure(indexCtx); err != nil {
			logger.Log.Fatal("Index creation failed", zap.String("collection", name), zap.Error(err))
		}
	}

	cachedProducts := repository.NewCachedProductRepository(productRepo, redisClient, cfg.ProductCacheTTL)

	// Event publishers (best-effort)
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()
	publishers := []services.EventPublisher{producer}

	if cfg.SNSTopicArn != "" {
		awsCfg, err := awspkg.LoadAWSConfig(context.Background())
		if err != nil {
			logger.Log.Fatal("AWS config load failed", zap.Error(err))
		}
		publishers = append(publishers, services.NewSNSOrderPublisher(awspkg.NewSNSClient(awsCfg), cfg.SNSTopicArn))
	}

	// Services
	// The inventory guard mutates stock through the cached repository so
	// every decrement or compensation invalidates the snapshot the cart's
	// soft check reads. Checkout snapshots prices from the uncached repo.
	cartService := services.NewCartService(cartRepo, cachedProducts)
	inventoryService := services.NewInventoryService(cachedProducts, reservationRepo)
	checkoutService := services.NewCheckoutService(cartRepo, productRepo, orderRepo, sequenceRepo, inventoryService, publishers)
	orderService := services.NewOrderService(orderRepo)

	reaper := services.NewReaper(cartRepo, reservationRepo, inventoryService, cfg.ReaperInterval, cfg.ReservationTimeout)
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go reaper.Run(reaperCtx)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger())
	routes.Register(router, cartService, checkoutService, orderService)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("Storefront core is running", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Log.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Shutdown error", zap.Error(err))
	}
	logger.Log.Info("Server shutdown complete")
}
