package handlers

import (
	"net/http"
	"strconv"

	"opsboard/internal/models"
	"opsboard/internal/relay"
	"opsboard/internal/repositories/postgres"
	"opsboard/internal/services"
	"opsboard/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projects *postgres.ProjectRepository
	presence *services.PresenceService
}

func NewProjectHandler(projects *postgres.ProjectRepository, presence *services.PresenceService) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		presence: presence,
	}
}

// List godoc
// @Summary List synced projects
// @Tags projects
// @Produce json
// @Success 200 {array} models.ProjectResponse
// @Router /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "failed to list projects")
		return
	}

	out := make([]models.ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, projects[i].ToResponse())
	}
	response.OK(c, out)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, "invalid project id")
		return
	}

	project, err := h.projects.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "project not found")
		return
	}
	response.OK(c, project.ToResponse())
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// SetEnabled toggles whether a project shows up on the dashboard. Admin only.
func (h *ProjectHandler) SetEnabled(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, "invalid project id")
		return
	}

	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, err.Error())
		return
	}

	if err := h.projects.SetEnabled(c.Request.Context(), uint(id), req.Enabled); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "failed to update project")
		return
	}
	response.OK(c, gin.H{"id": id, "enabled": req.Enabled})
}

// Viewers reports who is watching a build's live feed right now.
func (h *ProjectHandler) Viewers(c *gin.Context) {
	if h.presence == nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, "presence tracking is disabled")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, "invalid project id")
		return
	}
	number := c.Query("number")
	if number == "" {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, "number query parameter is required")
		return
	}

	project, err := h.projects.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "project not found")
		return
	}

	key := relay.FeedChannel(project.Owner, project.Name, number)
	viewers, err := h.presence.BuildViewers(c.Request.Context(), key)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "failed to read build viewers")
		return
	}
	response.OK(c, gin.H{"channel": key, "viewers": viewers})
}
