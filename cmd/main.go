package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/events"
	httpapi "storefront/internal/http"
	"storefront/internal/repository"
	"storefront/internal/repository/sqlite"
	"storefront/internal/service"
	"storefront/internal/telemetry"

	_ "storefront/docs"
)

// repos набор хранилищ выбранного драйвера
type repos struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	audit    repository.AuditLogRepository
	coupons  repository.CouponRepository
	tx       repository.TxManager
	close    func() error
}

func openRepos(cfg *config.Config) (*repos, error) {
	if cfg.StoreDriver == config.DriverSQLite {
		db, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return &repos{
			products: db.Products(),
			orders:   db.Orders(),
			audit:    db.AuditLogs(),
			coupons:  db.Coupons(),
			tx:       db.Tx(),
			close:    db.Close,
		}, nil
	}
	store := repository.NewMemoryStore()
	return &repos{
		products: store,
		orders:   repository.NewMemoryOrders(store),
		audit:    repository.NewMemoryAudit(store),
		coupons:  repository.NewMemoryCoupons(store),
		tx:       repository.NewMemoryTx(store),
		close:    func() error { return nil },
	}, nil
}

func main() {
	cfg := config.Load()

	logger := telemetry.NewLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	gin.SetMode(cfg.GinMode)

	shutdownTracer := telemetry.SetupTracer("storefront")

	rp, err := openRepos(cfg)
	if err != nil {
		logger.Error("open store failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer rp.close()

	var carts cart.Store = cart.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		carts = cart.NewRedisStore(rdb, cfg.CartTTL)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if kp, err := events.NewKafkaPublisher(events.ParseBrokers(cfg.KafkaBrokers), cfg.KafkaTopic, logger); err == nil {
		defer kp.Close()
		publisher = kp
	} else if !errors.Is(err, events.ErrDisabled) {
		logger.Warn("kafka publisher disabled", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	productsSvc := service.NewProductService(rp.products)
	couponsSvc := service.NewCouponService(rp.coupons)
	ordersSvc := service.NewOrderService(rp.products, rp.orders, rp.audit, rp.coupons, rp.tx,
		service.WithPublisher(publisher),
		service.WithMetrics(metrics),
		service.WithLogger(logger),
	)

	srv := httpapi.NewServer(httpapi.Services{
		Products: productsSvc,
		Coupons:  couponsSvc,
		Builder:  service.NewOrderBuilder(productsSvc, couponsSvc),
		Orders:   ordersSvc,
		Queries:  service.NewOrderQueryService(rp.orders, rp.audit),
		Carts:    carts,
	}, metrics, reg, logger)

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr, "store", cfg.StoreDriver, "redis", cfg.RedisAddr != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := shutdownTracer(ctx); err != nil {
		logger.Error("tracer shutdown error", "error", err)
	}
}
