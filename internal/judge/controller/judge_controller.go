package controller

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"codejudge/internal/judge/language"
	"codejudge/internal/judge/service"
	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/response"
)

// JudgeController handles submission evaluation requests.
type JudgeController struct {
	svc *service.Service
}

// NewJudgeController creates a new controller.
func NewJudgeController(svc *service.Service) *JudgeController {
	return &JudgeController{svc: svc}
}

// EvaluateRequest is the evaluate endpoint payload.
type EvaluateRequest struct {
	TaskID   string `json:"task_id" binding:"required"`
	Language string `json:"language" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// EvaluateResponse wraps the verdict with the assigned submission id.
type EvaluateResponse struct {
	SubmissionID string      `json:"submission_id"`
	Result       interface{} `json:"result"`
}

// Evaluate judges a submission synchronously and returns the verdict.
func (h *JudgeController) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	submissionID := uuid.NewString()
	ctx := context.WithValue(c.Request.Context(), contextkey.SubmissionID, submissionID)

	result, err := h.svc.EvaluateSubmission(ctx, submissionID, req.TaskID, language.Language(req.Language), req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, EvaluateResponse{SubmissionID: submissionID, Result: result})
}

// GetSubmission returns the status snapshot for one submission.
func (h *JudgeController) GetSubmission(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	status, err := h.svc.GetStatus(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}

// Languages returns the supported language ids.
func (h *JudgeController) Languages(c *gin.Context) {
	response.Success(c, gin.H{"languages": h.svc.Languages()})
}

// RegisterRoutes mounts the judge endpoints on the router group.
func (h *JudgeController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/judge/evaluate", h.Evaluate)
	group.GET("/judge/submissions/:id", h.GetSubmission)
	group.GET("/judge/languages", h.Languages)
}
