package handlers

import (
	"errors"
	"net/http"

	"maljrs-backend/models"
	"maljrs-backend/narrative"
	"maljrs-backend/pipeline"
	"maljrs-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AnalysisHandler handles HTTP requests for AI case analysis
type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// ProcessRequest represents the request body for POST /api/ai/process.
// Either case_id or record must be provided.
type ProcessRequest struct {
	CaseID  *string            `json:"case_id"`
	Record  *models.CaseRecord `json:"record"`
	Options []string           `json:"options"`
}

// Process handles POST /api/ai/process. A degraded report is still a 200;
// only invalid input and infrastructure problems are errors.
func (h *AnalysisHandler) Process(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	h.analyze(c, req)
}

// analyzeWithOption builds a handler that runs a single predefined option
// against the submitted case record.
func (h *AnalysisHandler) analyzeWithOption(option string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProcessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_REQUEST",
					"message": err.Error(),
				},
			})
			return
		}

		req.Options = []string{option}
		h.analyze(c, req)
	}
}

// IdentifyIssues handles POST /api/ai/identify-issues
func (h *AnalysisHandler) IdentifyIssues(c *gin.Context) {
	h.analyzeWithOption(pipeline.OptionIdentifyIssues)(c)
}

// FindPrecedents handles POST /api/ai/find-precedents
func (h *AnalysisHandler) FindPrecedents(c *gin.Context) {
	h.analyzeWithOption(pipeline.OptionFindPrecedents)(c)
}

// CheckConstitutional handles POST /api/ai/check-constitutional
func (h *AnalysisHandler) CheckConstitutional(c *gin.Context) {
	h.analyzeWithOption(pipeline.OptionConstitutionalCheck)(c)
}

// ActionPlan handles POST /api/ai/action-plan
func (h *AnalysisHandler) ActionPlan(c *gin.Context) {
	h.analyzeWithOption(pipeline.OptionActionPlan)(c)
}

func (h *AnalysisHandler) analyze(c *gin.Context, req ProcessRequest) {
	serviceReq := service.AnalyzeRequest{
		Record:  req.Record,
		Options: req.Options,
	}

	if req.CaseID != nil {
		caseID, err := uuid.Parse(*req.CaseID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_ID",
					"message": "Invalid case ID format",
				},
			})
			return
		}
		serviceReq.CaseID = &caseID
	}

	result, err := h.analysisService.Analyze(c.Request.Context(), serviceReq)
	if err != nil {
		var validationErr *narrative.ValidationError
		switch {
		case errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_CASE_RECORD",
					"message": validationErr.Error(),
				},
			})
		case errors.Is(err, pipeline.ErrUnknownOption):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNKNOWN_OPTION",
					"message": err.Error(),
				},
			})
		case errors.Is(err, service.ErrCaseNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CASE_NOT_FOUND",
					"message": err.Error(),
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ANALYSIS_FAILED",
					"message": err.Error(),
				},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"report":     result.Report,
			"report_id":  result.StoredID,
			"from_cache": result.FromCache,
		},
	})
}

// CacheStats handles GET /api/ai/cache/stats
func (h *AnalysisHandler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.analysisService.CacheStats(),
	})
}

// ClearCache handles DELETE /api/ai/cache
func (h *AnalysisHandler) ClearCache(c *gin.Context) {
	h.analysisService.ClearCache()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"cleared": true},
	})
}
