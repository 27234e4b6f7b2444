package configs

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendDynamo = "dynamo"
)

type AppConfig struct {
	AppEnv       string
	AppPort      string
	ReadTimeout  int
	WriteTimeout int
}

type StorageConfig struct {
	// Backend selects the key-value store: memory, bolt or dynamo.
	Backend     string
	BoltPath    string
	DynamoTable string
}

type CheckoutConfig struct {
	WhatsAppNumber string
}

type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Checkout CheckoutConfig
	AWS      aws.Config
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration overrides from .env")
	}

	cfg := &Config{
		App: AppConfig{
			AppEnv:       getEnv("APP_ENV", "development"),
			AppPort:      getEnv("APP_PORT", "8080"),
			ReadTimeout:  cast.ToInt(getEnv("READ_TIMEOUT", "15")),
			WriteTimeout: cast.ToInt(getEnv("WRITE_TIMEOUT", "15")),
		},
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", BackendBolt),
			BoltPath:    getEnv("BOLT_PATH", "storefront.db"),
			DynamoTable: getEnv("DYNAMO_TABLE", "StorefrontEntities"),
		},
		Checkout: CheckoutConfig{
			WhatsAppNumber: getEnv("WHATSAPP_NUMBER", "+18296508431"),
		},
	}

	switch cfg.Storage.Backend {
	case BackendMemory, BackendBolt:
	case BackendDynamo:
		// The default chain reads credentials and region from the
		// environment, which .env now contributes to.
		awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO())
		if err != nil {
			return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
		}
		cfg.AWS = awsCfg
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
