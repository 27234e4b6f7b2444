package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"

	"github.com/juliettescloset/storefront-api/configs"
	"github.com/juliettescloset/storefront-api/internal/events"
	"github.com/juliettescloset/storefront-api/internal/repository"
	"github.com/juliettescloset/storefront-api/service"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	if cfg.App.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, cleanup, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("Error initializing storage backend %q: %v", cfg.Storage.Backend, err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	repo := repository.NewProductRepository(store)

	bus := events.NewBus()
	if err := bus.SubscribeProductsChanged(func(kind events.ChangeKind) {
		log.Printf("catalog changed: %s", kind)
	}); err != nil {
		log.Fatalf("Error subscribing to catalog events: %v", err)
	}

	router := gin.New()
	configs.SetupRoutes(router, cfg, repo, bus)

	srv := &http.Server{
		Addr:         ":" + cfg.App.AppPort,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.App.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.App.WriteTimeout) * time.Second,
	}

	log.Printf("Server starting on port %s (storage: %s)", cfg.App.AppPort, cfg.Storage.Backend)
	log.Fatal(srv.ListenAndServe())
}

// buildStore constructs the key-value backend selected by the config.
// The returned cleanup closes backends that hold resources.
func buildStore(cfg *configs.Config) (service.Store, func(), error) {
	switch cfg.Storage.Backend {
	case configs.BackendMemory:
		return service.NewMemoryStore(), nil, nil

	case configs.BackendBolt:
		store, err := service.NewBoltStore(cfg.Storage.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	case configs.BackendDynamo:
		client := dynamodb.NewFromConfig(cfg.AWS)
		store := service.NewDynamoStore(client, cfg.Storage.DynamoTable)
		if err := store.EnsureTable(context.Background()); err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
