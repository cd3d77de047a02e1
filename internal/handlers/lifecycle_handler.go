package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillproof/testing-service/internal/models"
	"github.com/skillproof/testing-service/internal/services"
	"github.com/skillproof/testing-service/internal/utils"
	"github.com/skillproof/testing-service/internal/validator"
)

// LifecycleHandler exposes the test-assignment lifecycle over HTTP.
type LifecycleHandler struct {
	BaseHandler
	lifecycleService services.LifecycleService
	validator        *validator.Validator
}

func NewLifecycleHandler(
	lifecycleService services.LifecycleService,
	validator *validator.Validator,
	logger utils.Logger,
) *LifecycleHandler {
	return &LifecycleHandler{
		BaseHandler:      NewBaseHandler(logger),
		lifecycleService: lifecycleService,
		validator:        validator,
	}
}

// AssignTest assigns a subject's test to a candidate.
// @Summary Assign a test
// @Tags tests
// @Accept json
// @Produce json
// @Param assignment body services.AssignTestRequest true "Assignment data"
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /tests/assign [post]
func (h *LifecycleHandler) AssignTest(c *gin.Context) {
	h.LogRequest(c, "Assigning test")

	var req services.AssignTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.lifecycleService.Assign(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Test assigned successfully",
	})
}

// StartTest hands the caller their assigned test with shuffled questions.
// @Summary Start the assigned test
// @Tags tests
// @Produce json
// @Success 200 {object} services.StartTestResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/start [get]
func (h *LifecycleHandler) StartTest(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	h.LogRequest(c, "Starting test", "user_id", userID)

	resp, err := h.lifecycleService.Start(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitTest evaluates the caller's submission and finishes the attempt.
// @Summary Submit test answers
// @Tags tests
// @Accept json
// @Produce json
// @Param submission body services.SubmitTestRequest true "Submission data"
// @Success 200 {object} services.EvaluateTestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /tests/submit [post]
func (h *LifecycleHandler) SubmitTest(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	h.LogRequest(c, "Submitting test", "user_id", userID)

	var req services.SubmitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.lifecycleService.Evaluate(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ReassignTest supersedes a started-but-unfinished attempt with a fresh one.
// @Summary Reassign a test
// @Tags tests
// @Accept json
// @Produce json
// @Param reassignment body services.ReassignTestRequest true "Reassignment data"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /tests/reassign [post]
func (h *LifecycleHandler) ReassignTest(c *gin.Context) {
	h.LogRequest(c, "Reassigning test")

	var req services.ReassignTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.lifecycleService.Reassign(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Test reassigned successfully",
	})
}

// ListPendingReassignments pages through started-but-unfinished attempts.
// @Summary List tests pending reassignment
// @Tags tests
// @Produce json
// @Param page query int false "Page number"
// @Param search query string false "Search over name, email and mobile"
// @Param subject_id query int false "Filter by subject"
// @Param position_id query int false "Filter by position"
// @Param date_filter query string false "on, before or after"
// @Param start_date query string false "Window start (YYYY-MM-DD)"
// @Param end_date query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} models.PaginationResponse
// @Failure 400 {object} ErrorResponse
// @Router /tests/reassign/pending [get]
func (h *LifecycleHandler) ListPendingReassignments(c *gin.Context) {
	h.LogRequest(c, "Listing pending reassignments")

	params, err := parseListPendingParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.lifecycleService.ListPending(c.Request.Context(), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func parseListPendingParams(c *gin.Context) (*services.ListPendingParams, error) {
	params := &services.ListPendingParams{
		Search:     c.Query("search"),
		DateFilter: models.DateFilter(c.Query("date_filter")),
	}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		params.Page = page
	}
	if raw := c.Query("subject_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, err
		}
		params.SubjectID = uint(id)
	}
	if raw := c.Query("position_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, err
		}
		params.PositionID = uint(id)
	}
	if raw := c.Query("start_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, err
		}
		params.StartDate = t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, err
		}
		params.EndDate = t
	}

	return params, nil
}

// handleServiceError maps service errors onto HTTP classifications.
func (h *LifecycleHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrSubjectNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Subject not found",
		})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	case errors.Is(err, services.ErrAssignmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Assignment not found",
		})
	case errors.Is(err, services.ErrAssignmentExists):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Subject already assigned to the user",
		})
	case errors.Is(err, services.ErrOutstandingAssignment):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "User has not yet completed the assigned test",
		})
	case errors.Is(err, services.ErrTestNotStarted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Test has not been taken yet",
		})
	case errors.Is(err, services.ErrTestAlreadyFinished):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "User has already completed the test",
		})
	case errors.Is(err, services.ErrAlreadySubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Test has already been submitted",
		})
	case errors.Is(err, services.ErrReassignLimitExceeded):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Reassignment limit for the test exceeded",
		})
	case errors.Is(err, services.ErrNoActiveQuestions):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Subject has no active questions",
		})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Unauthorized",
		})
	default:
		h.logger.Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
