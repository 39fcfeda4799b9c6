package handlers

import (
	"net/http"
	"strconv"

	"opsboard/internal/api/middleware"
	"opsboard/internal/models"
	"opsboard/internal/repositories/postgres"
	"opsboard/pkg/response"

	"github.com/gin-gonic/gin"
)

type NewsHandler struct {
	news *postgres.NewsRepository
}

func NewNewsHandler(news *postgres.NewsRepository) *NewsHandler {
	return &NewsHandler{news: news}
}

func (h *NewsHandler) List(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	items, err := h.news.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "failed to list news")
		return
	}
	response.OK(c, items)
}

// Create posts an announcement. Admin only.
func (h *NewsHandler) Create(c *gin.Context) {
	var req models.CreateNewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, err.Error())
		return
	}

	principal := middleware.GetPrincipal(c)
	authorID, err := strconv.ParseUint(principal.UserID, 10, 64)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid principal")
		return
	}

	item := &models.NewsItem{
		Title:    req.Title,
		Body:     req.Body,
		AuthorID: uint(authorID),
	}
	if err := h.news.Create(c.Request.Context(), item); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "failed to create news item")
		return
	}
	response.Created(c, item)
}
