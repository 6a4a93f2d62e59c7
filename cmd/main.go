package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"fitroom/internal/acquire"
	"fitroom/internal/capability"
	"fitroom/internal/compositor"
	"fitroom/internal/garment"
	"fitroom/internal/models"
	"fitroom/internal/outfit"
	"fitroom/internal/removal"
	"fitroom/internal/server"
	"fitroom/internal/storage"
)

func main() {
	cfg, err := models.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := storage.NewStorage(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}
	defer db.Close()

	// Capability is probed once here; every stage reads this value.
	cap := capability.Probe(cfg)
	log.Printf("capability probe: on_device=%v max_edge=%d", cap.OnDeviceSupported, cap.Preset.MaxEdge)

	acq := acquire.New(cap)
	session := outfit.NewSession()
	registry := garment.NewRegistry(acq)
	comp := compositor.New(cfg.CanvasWidth, cfg.CanvasHeight, cfg.WatermarkText, acq)

	var onDevice, remote removal.Remover
	if cfg.Removal.LocalEndpoint != "" {
		onDevice = removal.NewOnDeviceClient(cfg.Removal.LocalEndpoint)
	}
	if cfg.Removal.RemoteEndpoint != "" {
		remote = removal.NewRemoteClient(cfg.Removal.RemoteEndpoint, cfg.Removal.RemoteAPIKey)
	}
	orch := removal.New(cfg.Removal, cap, acq, session, onDevice, remote, cfg.StoragePath)

	// Kafka producer
	var producer *kafka.Writer
	if cfg.KafkaBroker != "" {
		producer = kafka.NewWriter(kafka.WriterConfig{
			Brokers: []string{cfg.KafkaBroker},
			Topic:   cfg.KafkaTopic,
		})
	}

	// Start Kafka consumer in background
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.KafkaBroker != "" {
		go func() {
			consumer := kafka.NewReader(kafka.ReaderConfig{
				Brokers: []string{cfg.KafkaBroker},
				Topic:   cfg.KafkaTopic,
				GroupID: "background-removal-group",
			})
			defer consumer.Close()

			for {
				msg, err := consumer.ReadMessage(ctx)
				if err != nil {
					if err == context.Canceled {
						return
					}
					log.Printf("error reading message: %v", err)
					continue
				}
				id, err := uuid.Parse(string(msg.Value))
				if err != nil {
					log.Printf("bad removal job id %q: %v", msg.Value, err)
					continue
				}
				if err := orch.Process(ctx, id); err != nil {
					log.Printf("background removal failed for %s: %v", id, err)
				}
			}
		}()
	}

	srv := server.NewServer(cfg, db, producer, session, registry, comp, acq, orch)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	if producer != nil {
		producer.Close()
	}
}
