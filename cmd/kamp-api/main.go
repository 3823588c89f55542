package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/config"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/database"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/directory"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/events"
	httpapi "github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/http"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/logger"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/metrics"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/repository"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/service"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "kamp-api")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 存储：Postgres 不可用时回退到内存实现（联调/演示）
	var (
		db *sql.DB
		st repository.Store
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err != nil {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		} else if err := database.EnsureSchema(ctx, d); err != nil {
			log.Warn("schema bootstrap failed, falling back to memory store", zap.Error(err))
			_ = d.Close()
		} else {
			db = d
			log.Info("DB enabled for kamp-api")
		}
	}
	if db != nil {
		st = repository.NewPostgresStore(db)
	} else {
		st = repository.NewMemoryStore()
	}

	// 报表缓存
	var (
		redisClient *redis.Client
		kv          store.KV = store.NewMemoryKV()
	)
	if cfg.Redis.Enabled {
		c := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := c.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unavailable, using in-process cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = c.Close()
		} else {
			redisClient = c
			kv = store.NewRedisKV(c)
		}
		pingCancel()
	}

	// 占用变更事件
	var publisher events.Publisher = events.Nop{}
	var mqttPublisher *events.MQTTPublisher
	switch cfg.Events.Sink {
	case "redis":
		if redisClient == nil {
			log.Warn("EVENTS_SINK=redis but redis is unavailable, events disabled")
		} else {
			publisher = events.NewRedisStreamPublisher(redisClient, cfg.Events.Stream)
		}
	case "mqtt":
		p, err := events.NewMQTTPublisher(events.MQTTOptions{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
		})
		if err != nil {
			log.Warn("MQTT connect failed, events disabled", zap.Error(err))
		} else {
			mqttPublisher = p
			publisher = p
		}
	case "", "none":
	default:
		log.Warn("unknown EVENTS_SINK, events disabled", zap.String("sink", cfg.Events.Sink))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.NewPrometheus(reg)
	if err != nil {
		log.Fatal("failed to register metrics", zap.Error(err))
	}

	dir, err := directory.New(cfg.Directory.Mode, cfg.Directory.JWTSecret, cfg.Directory.JWTIssuer,
		cfg.Directory.URL, cfg.Directory.Timeout, log)
	if err != nil {
		log.Fatal("invalid directory configuration", zap.Error(err))
	}

	hooks := &service.Hooks{Cache: kv, Events: publisher, Metrics: rec, Logger: log}
	occupancy := service.NewOccupancyService(st, hooks, log)

	router := httpapi.NewRouter(dir, log)
	router.RegisterHealthRoutes()
	router.HandleHandler("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.RegisterCampRoutes(httpapi.NewCampHandler(service.NewCampService(st, hooks, log), log))
	router.RegisterOccupancyRoutes(httpapi.NewOccupancyHandler(occupancy, log))
	router.RegisterImportRoutes(httpapi.NewImportHandler(
		service.NewImportService(st, hooks, log), occupancy, cfg.ImportMaxBytes, log))
	router.RegisterReportRoutes(httpapi.NewReportHandler(
		service.NewReportService(st, hooks, cfg.ReportCacheTTL, log), log))
	router.RegisterPersonnelRoutes(httpapi.NewPersonnelHandler(
		service.NewPersonnelService(st, log), service.NewAttendanceService(st, log), log))

	srv := service.NewServer(cfg.HTTP.Addr, router, service.ServerTimeouts{
		ReadHeader: cfg.HTTP.ReadHeaderTimeout,
		Read:       cfg.HTTP.ReadTimeout,
		Write:      cfg.HTTP.WriteTimeout,
		Idle:       cfg.HTTP.IdleTimeout,
	}, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttPublisher != nil {
		mqttPublisher.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
