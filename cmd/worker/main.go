package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Domenick1991/cohortseat/config"
	"github.com/Domenick1991/cohortseat/internal/bootstrap"
	"github.com/Domenick1991/cohortseat/internal/email"
	"github.com/Domenick1991/cohortseat/internal/kafka"
	"github.com/Domenick1991/cohortseat/internal/webhook"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	var wg sync.WaitGroup

	if len(cfg.Kafka.Brokers) > 0 {
		if err := app.Producer.CheckConnection(ctx); err != nil {
			log.Printf("WARNING: %v", err)
		}

		notifications := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.NotificationsTopic)
		defer notifications.Close()
		paymentEvents := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.PaymentEventsTopic)
		defer paymentEvents.Close()

		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := notifications.Consume(ctx, kafka.NotificationHandler(email.NewSender())); err != nil {
				log.Printf("notifications consumer stopped: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := paymentEvents.Consume(ctx, webhook.HandleMessage(app.Processor)); err != nil {
				log.Printf("payment events consumer stopped: %v", err)
			}
		}()
	} else {
		log.Printf("WARNING: no kafka brokers configured, running sweeps only")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Sweeper.Run(ctx)
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	wg.Wait()
}
