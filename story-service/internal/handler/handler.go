package handler

import (
	"net/http"
	"strconv"

	"story-studio/shared/models"
	"story-studio/story-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StoryHandler обслуживает HTTP API сервиса историй.
type StoryHandler struct {
	svc    service.StoryService
	logger *zap.Logger
}

func NewStoryHandler(svc service.StoryService, logger *zap.Logger) *StoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoryHandler{svc: svc, logger: logger.Named("StoryHandler")}
}

// RegisterRoutes регистрирует маршруты /api. limiter вешается на ручки, которые ходят во внешние AI API.
// Неверный метод на известном маршруте отдает 405.
func (h *StoryHandler) RegisterRoutes(router *gin.Engine, limiter gin.HandlerFunc) {
	if limiter == nil {
		limiter = func(c *gin.Context) { c.Next() }
	}
	router.HandleMethodNotAllowed = true
	router.NoMethod(methodNotAllowed)

	api := router.Group("/api")
	{
		api.POST("/generate-story", limiter, h.generateStory)
		api.POST("/text-to-speech", limiter, h.textToSpeech)
		api.POST("/chat", limiter, h.chat)

		api.GET("/stories", h.listStories)
		api.POST("/stories", limiter, h.createStory)
		api.PUT("/stories/:id", h.updateStory)
		api.DELETE("/stories/:id", h.deleteStory)
		api.POST("/stories/:id/comments", h.addComment)
	}
}

func (h *StoryHandler) generateStory(c *gin.Context) {
	var req models.GenerateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	resp, err := h.svc.GenerateStory(c.Request.Context(), req.Title, req.Style)
	if err != nil {
		handleServiceError(c, err, models.MsgGenerateStoryFailed)
		return
	}
	countStoryOp("generate")
	c.JSON(http.StatusOK, resp)
}

func (h *StoryHandler) textToSpeech(c *gin.Context) {
	var req models.SpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	audioData, err := h.svc.Narrate(c.Request.Context(), req.Text)
	if err != nil {
		handleServiceError(c, err, models.MsgGenerateAudioFailed)
		return
	}
	countStoryOp("narrate")
	c.JSON(http.StatusOK, models.SpeechResponse{Success: true, AudioData: audioData})
}

func (h *StoryHandler) chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	reply, err := h.svc.Chat(c.Request.Context(), req.Message)
	if err != nil {
		handleServiceError(c, err, models.MsgChatFailed)
		return
	}
	c.JSON(http.StatusOK, models.ChatResponse{Response: reply})
}

func (h *StoryHandler) listStories(c *gin.Context) {
	stories, err := h.svc.ListStories(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, models.MsgFetchStoriesFailed)
		return
	}
	c.JSON(http.StatusOK, stories)
}

func (h *StoryHandler) createStory(c *gin.Context) {
	var req models.CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	story, err := h.svc.CreateStory(c.Request.Context(), req.Title, req.Style)
	if err != nil {
		handleServiceError(c, err, models.MsgGenerateStoryFailed)
		return
	}
	countStoryOp("create")
	c.JSON(http.StatusOK, story)
}

func (h *StoryHandler) updateStory(c *gin.Context) {
	id, ok := h.storyID(c)
	if !ok {
		return
	}
	var req models.UpdateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	story, err := h.svc.UpdateStory(c.Request.Context(), id, req)
	if err != nil {
		handleServiceError(c, err, models.MsgUpdateStoryFailed)
		return
	}
	countStoryOp("update")
	c.JSON(http.StatusOK, story)
}

func (h *StoryHandler) deleteStory(c *gin.Context) {
	id, ok := h.storyID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteStory(c.Request.Context(), id); err != nil {
		handleServiceError(c, err, models.MsgDeleteStoryFailed)
		return
	}
	countStoryOp("delete")
	c.JSON(http.StatusOK, models.MessageResponse{Message: models.MsgStoryDeleted})
}

func (h *StoryHandler) addComment(c *gin.Context) {
	id, ok := h.storyID(c)
	if !ok {
		return
	}
	var req models.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	comment, err := h.svc.AddComment(c.Request.Context(), id, req.Text)
	if err != nil {
		handleServiceError(c, err, models.MsgUpdateStoryFailed)
		return
	}
	countStoryOp("comment")
	c.JSON(http.StatusCreated, comment)
}

// storyID разбирает :id; при ошибке ответ уже отправлен.
func (h *StoryHandler) storyID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: models.MsgInvalidStoryID})
		return 0, false
	}
	return id, true
}

func (h *StoryHandler) badRequest(c *gin.Context, err error) {
	h.logger.Debug("Invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: models.MsgInvalidRequest})
}
