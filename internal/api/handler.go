package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-response/internal/disasters"
	"github.com/mr1hm/go-disaster-response/internal/geocode"
	"github.com/mr1hm/go-disaster-response/internal/models"
	"github.com/mr1hm/go-disaster-response/internal/repository"
	"github.com/mr1hm/go-disaster-response/internal/resolver"
)

// DisasterService is the core surface the HTTP layer drives.
type DisasterService interface {
	Create(ctx context.Context, input disasters.CreateInput, actor disasters.Actor) (*models.DisasterRecord, error)
	Update(ctx context.Context, id string, patch disasters.UpdatePatch, actor disasters.Actor) (*models.DisasterRecord, error)
	Delete(ctx context.Context, id string, actor disasters.Actor) error
	Get(ctx context.Context, id string) (*models.DisasterRecord, error)
	List(ctx context.Context, opts repository.Filter) ([]models.DisasterRecord, error)
}

type Handler struct {
	svc      DisasterService
	resolver disasters.LocationResolver
	hub      *Hub
}

func NewHandler(svc DisasterService, res disasters.LocationResolver, hub *Hub) *Handler {
	return &Handler{
		svc:      svc,
		resolver: res,
		hub:      hub,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, adminID string) {
	r.GET("/health", h.health)
	r.GET("/ws", h.hub.HandleWS)

	authed := r.Group("/api", AuthMiddleware(adminID))
	authed.POST("/geocode", h.geocodeLocation)
	authed.POST("/disasters", h.createDisaster)
	authed.GET("/disasters", h.listDisasters)
	authed.GET("/disasters/:id", h.getDisaster)
	authed.PUT("/disasters/:id", h.updateDisaster)
	authed.DELETE("/disasters/:id", h.deleteDisaster)
}

type geocodeRequest struct {
	LocationName string `json:"location_name"`
	Description  string `json:"description"`
}

func (h *Handler) geocodeLocation(c *gin.Context) {
	var req geocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.LocationName == "" && req.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location_name or description is required"})
		return
	}

	loc, err := h.resolver.Resolve(c.Request.Context(), resolver.Query{
		LocationName: req.LocationName,
		Description:  req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrUnresolved):
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not determine a location from the request"})
		case errors.Is(err, geocode.ErrGeocodeFailed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not geocode location"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"location_name": loc.FormattedAddress,
		"coordinates":   loc,
		"extracted":     req.LocationName == "",
	})
}

type createDisasterRequest struct {
	Title        string   `json:"title" binding:"required,min=3,max=200"`
	LocationName string   `json:"location_name"`
	Description  string   `json:"description" binding:"required,min=10"`
	Tags         []string `json:"tags"`
}

type updateDisasterRequest struct {
	Title        *string  `json:"title" binding:"omitempty,min=3,max=200"`
	LocationName *string  `json:"location_name"`
	Description  *string  `json:"description" binding:"omitempty,min=10"`
	Tags         []string `json:"tags"`
}

func (h *Handler) createDisaster(c *gin.Context) {
	var req createDisasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.svc.Create(c.Request.Context(), disasters.CreateInput{
		Title:        req.Title,
		LocationName: req.LocationName,
		Description:  req.Description,
		Tags:         req.Tags,
	}, actorFrom(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create disaster"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"disaster": rec,
		"message":  "disaster created successfully",
	})
}

func (h *Handler) listDisasters(c *gin.Context) {
	filter := repository.Filter{
		Tag:     c.Query("tag"),
		OwnerID: c.Query("owner_id"),
		Limit:   10,
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 100 {
			filter.Limit = lim
		}
	}
	if o := c.Query("offset"); o != "" {
		if off, err := strconv.Atoi(o); err == nil && off >= 0 {
			filter.Offset = off
		}
	}

	records, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch disasters"})
		return
	}
	if records == nil {
		records = []models.DisasterRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"disasters": records,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})
}

func (h *Handler) getDisaster(c *gin.Context) {
	rec, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disaster": rec})
}

func (h *Handler) updateDisaster(c *gin.Context) {
	var req updateDisasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.svc.Update(c.Request.Context(), c.Param("id"), disasters.UpdatePatch{
		Title:        req.Title,
		LocationName: req.LocationName,
		Description:  req.Description,
		Tags:         req.Tags,
	}, actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"disaster": rec,
		"message":  "disaster updated successfully",
	})
}

func (h *Handler) deleteDisaster(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "disaster deleted successfully"})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, disasters.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "disaster not found"})
	case errors.Is(err, disasters.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
