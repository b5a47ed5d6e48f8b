package stats

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"fitspot/internal/shared/utils/response"
)

// Controller exposes the engine over HTTP.
type Controller struct {
	service Service
}

// NewController creates a new stats controller instance
func NewController(service Service) *Controller {
	return &Controller{service: service}
}

type trackViewRequest struct {
	ActivityID string  `json:"activity_id" binding:"required,uuid"`
	ViewerID   *string `json:"viewer_id" binding:"omitempty,uuid"`
	Source     string  `json:"source" binding:"omitempty,max=50"`
	DeviceType string  `json:"device_type" binding:"omitempty,max=50"`
}

// TrackView handles POST /track/views. The write is best-effort: the
// response acknowledges receipt, not durability.
func (ctrl *Controller) TrackView(c *gin.Context) {
	var req trackViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	activityID, err := uuid.Parse(req.ActivityID)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid activity id", err.Error())
		return
	}

	view := ViewEvent{
		ActivityID: activityID,
		Source:     req.Source,
		DeviceType: req.DeviceType,
	}
	if req.ViewerID != nil {
		viewerID, err := uuid.Parse(*req.ViewerID)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid viewer id", err.Error())
			return
		}
		view.ViewerID = &viewerID
	}

	ctrl.service.RecordView(c.Request.Context(), view)
	response.Success(c, http.StatusAccepted, "View recorded", nil)
}

// GetHostMetrics handles GET /stats/hosts/:id.
func (ctrl *Controller) GetHostMetrics(c *gin.Context) {
	hostID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid host id", err.Error())
		return
	}

	metrics, err := ctrl.service.GetHostMetrics(c.Request.Context(), hostID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to load host metrics", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "Host metrics retrieved", metrics)
}

// GetActivityMetrics handles GET /stats/activities/:id.
func (ctrl *Controller) GetActivityMetrics(c *gin.Context) {
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid activity id", err.Error())
		return
	}

	metrics, err := ctrl.service.GetActivityMetrics(c.Request.Context(), activityID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			response.Error(c, http.StatusNotFound, "Activity metrics not found", nil)
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to load activity metrics", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "Activity metrics retrieved", metrics)
}

// GetHostDailySnapshot handles GET /stats/hosts/:id/snapshots/daily with an
// optional ?date=YYYY-MM-DD (defaults to today).
func (ctrl *Controller) GetHostDailySnapshot(c *gin.Context) {
	hostID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid host id", err.Error())
		return
	}

	var day *time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err.Error())
			return
		}
		day = &parsed
	}

	snapshot, err := ctrl.service.GetHostDailySnapshot(c.Request.Context(), hostID, day)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			response.Error(c, http.StatusNotFound, "No snapshot for that day", nil)
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to load snapshot", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "Daily snapshot retrieved", snapshot)
}

// GetHostMonthlySnapshot handles GET /stats/hosts/:id/snapshots/monthly with
// optional ?year=&month= (defaults to the current month).
func (ctrl *Controller) GetHostMonthlySnapshot(c *gin.Context) {
	hostID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid host id", err.Error())
		return
	}

	var params struct {
		Year  *int `form:"year" binding:"omitempty,min=2000,max=2200"`
		Month *int `form:"month" binding:"omitempty,min=1,max=12"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid year/month", err.Error())
		return
	}

	snapshot, err := ctrl.service.GetHostMonthlySnapshot(c.Request.Context(), hostID, params.Year, params.Month)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			response.Error(c, http.StatusNotFound, "No snapshot for that month", nil)
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to load snapshot", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "Monthly snapshot retrieved", snapshot)
}

// RecomputeHost handles POST /stats/admin/hosts/:id/recompute.
func (ctrl *Controller) RecomputeHost(c *gin.Context) {
	hostID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid host id", err.Error())
		return
	}

	result, err := ctrl.service.RecomputeHost(c.Request.Context(), hostID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Recompute failed", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "Host metrics recomputed", result)
}

// RecomputeAllHosts handles POST /stats/admin/recompute. Individual host
// failures are already absorbed by the sweep, so this only errors when the
// sweep itself cannot run.
func (ctrl *Controller) RecomputeAllHosts(c *gin.Context) {
	result, err := ctrl.service.RecomputeAllHosts(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Recompute failed", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "All host metrics recomputed", result)
}

// RecomputeActivities handles POST /stats/admin/activities/recompute with an
// optional ?id= to target one activity.
func (ctrl *Controller) RecomputeActivities(c *gin.Context) {
	var target *uuid.UUID
	if raw := c.Query("id"); raw != "" {
		activityID, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid activity id", err.Error())
			return
		}
		target = &activityID
	}

	result, err := ctrl.service.RecomputeActivities(c.Request.Context(), target)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Recompute failed", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "Activity metrics recomputed", result)
}

// BuildDailySnapshot handles POST /stats/admin/snapshots/daily with an
// optional ?date=YYYY-MM-DD (defaults to today).
func (ctrl *Controller) BuildDailySnapshot(c *gin.Context) {
	var day *time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err.Error())
			return
		}
		day = &parsed
	}

	hosts, err := ctrl.service.BuildDailySnapshot(c.Request.Context(), day)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Snapshot build failed", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "Daily snapshots built", gin.H{"hosts": hosts})
}

// BuildMonthlySnapshot handles POST /stats/admin/snapshots/monthly with
// optional ?year=&month= (defaults to the current month).
func (ctrl *Controller) BuildMonthlySnapshot(c *gin.Context) {
	var year, month *int
	var params struct {
		Year  *int `form:"year" binding:"omitempty,min=2000,max=2200"`
		Month *int `form:"month" binding:"omitempty,min=1,max=12"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid year/month", err.Error())
		return
	}
	year, month = params.Year, params.Month

	hosts, err := ctrl.service.BuildMonthlySnapshot(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Snapshot build failed", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "Monthly snapshots built", gin.H{"hosts": hosts})
}
