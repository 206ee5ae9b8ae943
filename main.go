package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"sketchparty/api"
	"sketchparty/logger"
	"sketchparty/util"
)

func main() {
	logger.Init()
	util.InitValidator()

	config, err := util.LoadConfig()

	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	var rdb *redis.Client

	if config.RedisAddress != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     config.RedisAddress,
			Password: config.RedisPassword,
			DB:       0,
		})

		// check redis connection status
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("cannot reach redis")
		}
	} else {
		log.Warn().Msg("REDIS_ADDR not set, rooms will not be mirrored to redis")
	}

	server := api.NewServer(config, rdb)

	log.Info().Str("port", config.Port).Msg("server starting")

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
