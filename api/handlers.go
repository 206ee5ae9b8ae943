package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"sketchparty/game"
)

type roomQuery struct {
	Room string `form:"room" binding:"required"`
}

// GetRoomDetails returns the current players of a room. Reads observe a
// snapshot of some committed state, never a half-applied mutation.
func (s *Server) GetRoomDetails(c *gin.Context) {
	var query roomQuery

	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Room code is required"))
		return
	}

	room, err := s.service.GetRoom(c.Request.Context(), query.Room)

	if errors.Is(err, game.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, errorResponse("Room not found"))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("room", query.Room).Msg("error fetching room details")
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"roomCode": room.Code,
		"players":  room.Players,
	})
}

type startGameRequest struct {
	Room string `json:"room" binding:"required"`
	Mode string `json:"mode" binding:"required"`
}

// StartGame moves a waiting room into the prompt phase and broadcasts
// startGame to its members.
func (s *Server) StartGame(c *gin.Context) {
	var data startGameRequest

	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Room code and mode are required"))
		return
	}

	log.Info().Str("room", data.Room).Str("mode", data.Mode).Msg("received startGame request")

	if _, err := s.service.StartGame(c.Request.Context(), data.Room, data.Mode); err != nil {
		s.gameError(c, data.Room, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type submitPromptRequest struct {
	Room   string `json:"room" binding:"required"`
	Prompt string `json:"prompt" binding:"required"`
}

func (s *Server) SubmitPrompt(c *gin.Context) {
	var data submitPromptRequest

	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Room code and prompt are required"))
		return
	}

	if err := s.service.SubmitPrompt(c.Request.Context(), data.Room, data.Prompt); err != nil {
		s.gameError(c, data.Room, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetRandomPrompt draws one prompt from the room's pool and moves the room
// into the drawing phase. The pool keeps the drawn prompt, so calling
// again re-samples.
func (s *Server) GetRandomPrompt(c *gin.Context) {
	var query roomQuery

	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Room code is required"))
		return
	}

	prompt, err := s.service.DrawRandomPrompt(c.Request.Context(), query.Room)

	if errors.Is(err, game.ErrNoPrompts) {
		c.JSON(http.StatusNotFound, errorResponse("No prompts available"))
		return
	}
	if err != nil {
		s.gameError(c, query.Room, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"prompt":  prompt,
	})
}

type completeGameRequest struct {
	Room string `json:"room" binding:"required"`
}

// CompleteGame moves a drawing room to completed. The coordinator only
// exposes this hook; the reveal flow that calls it lives elsewhere.
func (s *Server) CompleteGame(c *gin.Context) {
	var data completeGameRequest

	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Room code is required"))
		return
	}

	if _, err := s.service.Complete(c.Request.Context(), data.Room); err != nil {
		s.gameError(c, data.Room, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// gameError translates coordinator errors into the endpoint's JSON shape.
func (s *Server) gameError(c *gin.Context, room string, err error) {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, errorResponse("Room not found"))
	case errors.Is(err, game.ErrInvalidPhase):
		c.JSON(http.StatusConflict, errorResponse("Operation not valid in the room's current status"))
	default:
		log.Error().Err(err).Str("room", room).Msg("unexpected coordinator error")
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
	}
}
