package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/technosupport/vapix-events/internal/api"
	"github.com/technosupport/vapix-events/internal/config"
	"github.com/technosupport/vapix-events/internal/events"
	"github.com/technosupport/vapix-events/internal/logger"
	"github.com/technosupport/vapix-events/internal/stream"
)

const serviceName = "vapix-eventd"

func main() {
	configPath := flag.String("config", "eventd.yaml", "path to config file (overridden by "+config.EnvPath+")")
	flag.Parse()

	// 1. Configuration
	cfg := config.DefaultConfig()
	path := config.Path(*configPath)
	if _, err := os.Stat(path); err == nil {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Tracker & Sinks
	tracker, err := events.NewTracker(cfg.Device.Name, cfg.Tracker.MaxEvents, nil, log)
	if err != nil {
		log.Fatal("tracker init failed", zap.Error(err))
	}
	hub := api.NewHub(log)
	tracker.AddSink("ws", hub)

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		store := events.NewRedisStore(rdb, cfg.Redis.Prefix)
		if evs, err := store.Load(ctx, cfg.Device.Name); err != nil {
			log.Warn("redis restore failed, starting empty", zap.Error(err))
		} else {
			tracker.Restore(evs)
			log.Info("restored events from redis", zap.Int("events", len(evs)))
		}
		tracker.AddSink("redis", store)
	}

	if cfg.NATS.Enabled {
		nc, err := events.ConnectNATS(cfg.NATS.URL, serviceName, log)
		if err != nil {
			log.Warn("nats connect failed, publishing disabled", zap.Error(err))
		} else {
			defer nc.Drain()
			pub := events.NewNATSPublisher(nc, cfg.NATS.Subject, cfg.NATS.Retries)
			tracker.AddSink("nats", pub)
			log.Info("publishing to nats", zap.String("subject", pub.Subject(cfg.Device.Name)))
		}
	}

	if cfg.MQTT.Enabled {
		mc, err := events.ConnectMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Username, cfg.MQTT.Password, log)
		if err != nil {
			log.Warn("mqtt connect failed, publishing disabled", zap.Error(err))
		} else {
			defer mc.Disconnect(250)
			tracker.AddSink("mqtt", events.NewMQTTPublisher(mc, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS))
		}
	}

	if cfg.Kafka.Enabled {
		kw := events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kw.Close()
		tracker.AddSink("kafka", events.NewKafkaPublisher(kw))
	}

	// 3. Capture directory
	if cfg.Capture.Enabled {
		w := stream.NewWatcher(cfg.Capture.Dir, cfg.Capture.PollInterval, func(ctx context.Context, msg []byte) {
			tracker.Handle(ctx, msg)
		}, log)
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error("capture watcher stopped", zap.Error(err))
			}
		}()
	}

	// 4. HTTP
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: api.NewServer(tracker, hub, cfg.HTTP.MaxBodyBytes, log).Routes(),
	}

	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTP.Addr), zap.String("device", cfg.Device.Name))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown error", zap.Error(err))
	}
	log.Info("stopped")
}
