package handlers

import (
	"net/http"

	"opsboard/internal/adapters/storage"
	"opsboard/pkg/response"

	"github.com/gin-gonic/gin"
)

type ArtifactHandler struct {
	store *storage.ArtifactStore
}

func NewArtifactHandler(store *storage.ArtifactStore) *ArtifactHandler {
	return &ArtifactHandler{store: store}
}

// ArchivedLog redirects to a presigned URL for a finished job's archived log.
func (h *ArtifactHandler) ArchivedLog(c *gin.Context) {
	if h.store == nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, "artifact storage is disabled")
		return
	}

	owner := c.Param("owner")
	name := c.Param("name")
	number := c.Param("number")
	job := c.Param("job")
	if owner == "" || name == "" || number == "" || job == "" {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, "owner, name, number and job are required")
		return
	}

	url, err := h.store.ArchivedLogURL(c.Request.Context(), owner, name, number, job)
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "archived log not available")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, url)
}
