package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/eventhub/internal/app/models/dto"
	"github.com/yigit/eventhub/internal/app/services"
	"github.com/yigit/eventhub/internal/middleware"
	"github.com/yigit/eventhub/internal/pkg/helpers"
)

// EventController handles event lifecycle, registration and feedback endpoints
type EventController struct {
	eventService services.EventService
}

// NewEventController creates a new event controller
func NewEventController(eventService services.EventService) *EventController {
	return &EventController{eventService: eventService}
}

// ListEvents returns the upcoming events of the caller's institution
// @Summary List upcoming events
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.EventListResponse}
// @Router /events [get]
func (c *EventController) ListEvents(ctx *gin.Context) {
	page := helpers.ParsePaginationParams(ctx)

	events, total, err := c.eventService.ListEvents(ctx.Request.Context(), middleware.CallerFrom(ctx), page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.EventListResponse{
		Events:         make([]dto.EventResponse, 0, len(events)),
		PaginationInfo: page.Info(total),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, dto.NewEventResponse(e, false))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// GetEvent returns a single event with registrations and feedback
// @Summary Get event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} dto.APIResponse{data=dto.EventResponse}
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Router /events/{id} [get]
func (c *EventController) GetEvent(ctx *gin.Context) {
	id, err := middleware.PathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	event, err := c.eventService.GetEvent(ctx.Request.Context(), middleware.CallerFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewEventResponse(event, true)))
}

// CreateEvent creates an event. Lecturers and admins only.
// @Summary Create event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateEventRequest true "Event details"
// @Success 201 {object} dto.APIResponse{data=dto.EventResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 403 {object} dto.ErrorResponse "Caller cannot create events"
// @Router /events [post]
func (c *EventController) CreateEvent(ctx *gin.Context) {
	var req dto.CreateEventRequest
	if err := middleware.BindJSON(ctx, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	event, err := c.eventService.CreateEvent(ctx.Request.Context(), middleware.CallerFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewEventResponse(event, false)))
}

// UpdateEvent changes an event's editable fields
// @Summary Update event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body dto.UpdateEventRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.EventResponse}
// @Failure 403 {object} dto.ErrorResponse "Caller is neither the creator nor an admin"
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Router /events/{id} [put]
func (c *EventController) UpdateEvent(ctx *gin.Context) {
	id, err := middleware.PathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.UpdateEventRequest
	if err := middleware.BindJSON(ctx, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	event, err := c.eventService.UpdateEvent(ctx.Request.Context(), middleware.CallerFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewEventResponse(event, false)))
}

// DeleteEvent cancels an event
// @Summary Delete event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /events/{id} [delete]
func (c *EventController) DeleteEvent(ctx *gin.Context) {
	id, err := middleware.PathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.eventService.DeleteEvent(ctx.Request.Context(), middleware.CallerFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Event deleted"}))
}

// Register signs the calling student up for an event
// @Summary Register for event
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 201 {object} dto.APIResponse{data=dto.EventResponse}
// @Failure 409 {object} dto.ErrorResponse "Already registered"
// @Router /events/{id}/registrations [post]
func (c *EventController) Register(ctx *gin.Context) {
	id, err := middleware.PathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	event, err := c.eventService.Register(ctx.Request.Context(), middleware.CallerFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewEventResponse(event, false)))
}

// Unregister cancels the calling student's registration
// @Summary Cancel registration
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 404 {object} dto.ErrorResponse "Not registered"
// @Router /events/{id}/registrations [delete]
func (c *EventController) Unregister(ctx *gin.Context) {
	id, err := middleware.PathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.eventService.Unregister(ctx.Request.Context(), middleware.CallerFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Registration cancelled"}))
}

// SubmitFeedback records the calling student's rating
// @Summary Submit feedback
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body dto.FeedbackRequest true "Rating and comment"
// @Success 201 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 409 {object} dto.ErrorResponse "Feedback already submitted"
// @Router /events/{id}/feedback [post]
func (c *EventController) SubmitFeedback(ctx *gin.Context) {
	id, err := middleware.PathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.FeedbackRequest
	if err := middleware.BindJSON(ctx, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if _, err := c.eventService.SubmitFeedback(ctx.Request.Context(), middleware.CallerFrom(ctx), id, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Feedback submitted"}))
}
