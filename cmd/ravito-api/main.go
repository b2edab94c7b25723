// README: Entry point; loads config, wires services and serves the API until signalled.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"

	"ravito/internal/config"
	"ravito/internal/events"
	httptransport "ravito/internal/http"
	"ravito/internal/infra"
	"ravito/internal/modules/location"
	"ravito/internal/modules/matching"
	"ravito/internal/modules/notify"
	"ravito/internal/modules/order"
	"ravito/internal/modules/pricing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer dbPool.Close()
	if cfg.DB.Migrate {
		if err := infra.Migrate(ctx, dbPool); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	var (
		firebaseApp *firebase.App
		verifier    infra.TokenVerifier
		sender      notify.Sender
	)
	if cfg.Firebase.ProjectID != "" {
		firebaseApp, err = infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Fatalf("firebase init: %v", err)
		}
		if verifier, err = infra.NewFirebaseVerifier(ctx, firebaseApp); err != nil {
			log.Fatalf("firebase auth: %v", err)
		}
		if sender, err = notify.NewFirebaseSender(ctx, firebaseApp); err != nil {
			log.Fatalf("firebase messaging: %v", err)
		}
	} else {
		log.Printf("RAVITO_FIREBASE_PROJECT_ID not set; using HS256 tokens and no push")
		if verifier, err = infra.NewJWTVerifier(cfg.Auth.JWTSecret); err != nil {
			log.Fatalf("jwt auth: %v", err)
		}
	}

	var distancer pricing.Distancer = pricing.StraightLine{}
	if cfg.Maps.APIKey != "" {
		route, err := pricing.NewRouteDistancer(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps: %v", err)
		}
		distancer = route
	}
	pricingSvc := pricing.NewService(cfg.Pricing, distancer)

	matchingSvc := matching.NewService(
		matching.NewStore(dbPool),
		pricingSvc,
		matching.NewRedisLeaser(redisClient),
		cfg.Matching,
	)

	publisher, err := events.New(cfg.Events)
	if err != nil {
		log.Fatalf("events: %v", err)
	}
	defer publisher.Close()

	notifySvc := notify.NewService(notify.NewStore(dbPool), sender)

	orderSvc := order.NewService(order.NewStore(dbPool), matchingSvc, cfg.Order)
	orderSvc.SetPublisher(publisher)
	orderSvc.SetNotifier(notifySvc)

	locationSvc := location.NewService(location.NewStore(dbPool))

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.RouterDeps{
		Verifier: verifier,
		Orders:   orderSvc,
		Quotes:   matchingSvc,
		Devices:  notifySvc,
		Depots:   locationSvc,
	})
	if err := server.Run(ctx); err != nil {
		log.Printf("http: %v", err)
	}
}
