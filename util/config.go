package util

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string `mapstructure:"PORT" validate:"required,number"`
	RedisAddress  string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PW"`
	AllowedOrigin string `mapstructure:"ALLOWED_ORIGIN"`
}

// LoadConfig reads configuration from the environment, loading a .env file
// first if one exists. REDIS_ADDR is optional; when empty the server runs
// without the write-behind room mirror.
func LoadConfig() (*Config, error) {
	godotenv.Load()

	config := &Config{
		Port:          os.Getenv("PORT"),
		RedisAddress:  os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PW"),
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
	}

	if err := Validate.Struct(config); err != nil {
		return nil, err
	}

	return config, nil
}
