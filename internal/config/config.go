package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Skotchmaster/checkout/internal/models"
)

type Config struct {
	PORT        string
	LOG_LEVEL   string
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	REDIS_ADDR    string
	KAFKA_ADDRESS string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	JWT_SECRET string

	STRIPE_BASE_URL       string
	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string

	BKASH_BASE_URL     string
	BKASH_APP_KEY      string
	BKASH_APP_SECRET   string
	BKASH_USERNAME     string
	BKASH_PASSWORD     string
	BKASH_CALLBACK_URL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		PORT:        os.Getenv("PORT"),
		LOG_LEVEL:   os.Getenv("LOG_LEVEL"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		REDIS_ADDR:    os.Getenv("REDIS_ADDR"),
		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		JWT_SECRET: os.Getenv("JWT_SECRET"),

		STRIPE_BASE_URL:       os.Getenv("STRIPE_BASE_URL"),
		STRIPE_SECRET_KEY:     os.Getenv("STRIPE_SECRET_KEY"),
		STRIPE_WEBHOOK_SECRET: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		BKASH_BASE_URL:     os.Getenv("BKASH_BASE_URL"),
		BKASH_APP_KEY:      os.Getenv("BKASH_APP_KEY"),
		BKASH_APP_SECRET:   os.Getenv("BKASH_APP_SECRET"),
		BKASH_USERNAME:     os.Getenv("BKASH_USERNAME"),
		BKASH_PASSWORD:     os.Getenv("BKASH_PASSWORD"),
		BKASH_CALLBACK_URL: os.Getenv("BKASH_CALLBACK_URL"),
	}

	if config.PORT == "" {
		config.PORT = "8080"
	}
	if config.BKASH_BASE_URL == "" {
		config.BKASH_BASE_URL = "https://tokenized.sandbox.bka.sh/v1.2.0-beta"
	}

	return config, nil
}

func (c *Config) KafkaBrokers() []string {
	if c.KAFKA_ADDRESS == "" {
		return nil
	}
	return strings.Split(c.KAFKA_ADDRESS, ",")
}

func InitDB(c *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB_USER, c.DB_PASSWORD, c.DB_HOST, c.DB_PORT, c.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

func InitRedis(c *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: c.REDIS_ADDR,
	})
}
