package config

import (
	"cmp"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string   `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel string   `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP     HTTP     `yaml:"http"`
	Postgres Postgres `yaml:"postgres"`
	Kafka    Kafka    `yaml:"kafka"`
	Redis    Redis    `yaml:"redis"`
	Payment  Payment  `yaml:"payment"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	Timeout time.Duration `yaml:"timeout" env-default:"4s"`
}

type Postgres struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Payment struct {
	// SuccessRate is the simulated gateway's success percentage.
	SuccessRate int `yaml:"success_rate" env:"PAYMENT_SUCCESS_RATE" env-default:"80"`
}

func MustLoad() *Config {
	configPath := cmp.Or(os.Getenv("CONFIG_PATH"), "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exists: %v\n", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
