package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"sketchparty/game"
	"sketchparty/storage"
	"sketchparty/util"
	"sketchparty/ws"
)

type Server struct {
	config    *util.Config
	service   *game.Service
	wsManager *ws.Manager
	router    *gin.Engine
}

// NewServer wires the coordinator and its transports. rdb may be nil, in
// which case rooms live in memory only.
func NewServer(config *util.Config, rdb *redis.Client) *Server {
	router := gin.Default()

	wsManager := ws.NewManager(util.Validate, config.AllowedOrigin)

	var store game.RoomStore
	if rdb != nil {
		store = storage.NewRedisRoomStore(rdb)
	}

	service := game.NewService(game.NewRegistry(), wsManager, store)
	wsManager.SetService(service)

	server := &Server{
		config:    config,
		service:   service,
		wsManager: wsManager,
		router:    router,
	}

	router.Any("/ws", wsManager.ServeWS)
	router.StaticFS("/public", http.Dir("./public"))
	router.GET("/getRoomDetails", server.GetRoomDetails)
	router.POST("/startGame", server.StartGame)
	router.POST("/submitPrompt", server.SubmitPrompt)
	router.GET("/getRandomPrompt", server.GetRandomPrompt)
	router.POST("/completeGame", server.CompleteGame)

	return server
}

func (s *Server) Start() error {
	handler := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.router)

	return http.ListenAndServe(fmt.Sprintf(":%v", s.config.Port), handler)
}

func (s *Server) corsOrigins() []string {
	if s.config.AllowedOrigin == "" {
		return []string{"*"}
	}
	return []string{s.config.AllowedOrigin}
}
