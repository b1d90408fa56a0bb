package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"notifyconsole/internal/elasticsearch"
	"notifyconsole/internal/logger"
	"notifyconsole/internal/recipient"
)

type ModuleRequest struct {
	Module string `json:"module"` // empty lists the modules
}

type AddRecipientRequest struct {
	Module      string `json:"module" binding:"required"`
	Kind        string `json:"kind" binding:"required"`
	Value       string `json:"value" binding:"required"`
	DisplayName string `json:"display_name"`
}

type UpdateRecipientRequest struct {
	Module      string `json:"module" binding:"required"`
	ID          string `json:"id" binding:"required"`
	Value       string `json:"value" binding:"required"`
	DisplayName string `json:"display_name"`
}

type RemoveRecipientRequest struct {
	Module string `json:"module" binding:"required"`
	ID     string `json:"id" binding:"required"`
}

type CatalogRequest struct {
	Module string `json:"module" binding:"required"`
}

// AuditSearchRequest filters the rule change audit. Times are unix seconds.
type AuditSearchRequest struct {
	Category  string `json:"category"`
	RuleID    string `json:"rule_id"`
	Kind      string `json:"kind"`
	StartTime *int64 `json:"start_time"`
	EndTime   *int64 `json:"end_time"`
	Size      int    `json:"size"`
	From      int    `json:"from"`
}

func (s *Server) listRecipients(c *gin.Context) {
	var req ModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Module == "" {
		c.JSON(http.StatusOK, gin.H{
			"modules":      s.console.RecipientModules(),
			"placeholders": recipient.Placeholders,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"module":     req.Module,
		"recipients": s.console.ListRecipients(req.Module),
	})
}

func (s *Server) addRecipient(c *gin.Context) {
	var req AddRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := recipient.ParseKind(req.Kind)
	if err != nil {
		writeError(c, err)
		return
	}

	rec, err := s.console.AddRecipient(c.Request.Context(), req.Module, kind, req.Value, req.DisplayName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recipient": rec})
}

func (s *Server) updateRecipient(c *gin.Context) {
	var req UpdateRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := s.console.UpdateRecipient(c.Request.Context(), req.Module, req.ID, req.Value, req.DisplayName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipient": rec})
}

func (s *Server) removeRecipient(c *gin.Context) {
	var req RemoveRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.console.RemoveRecipient(c.Request.Context(), req.Module, req.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Recipient removed successfully"})
}

func (s *Server) selectCatalog(c *gin.Context) {
	var req CatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sel, err := s.console.SelectCatalog(c.Request.Context(), req.Module)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sel)
}

// searchAudit reads the Elasticsearch audit when enabled and the local
// change journal otherwise.
func (s *Server) searchAudit(c *gin.Context) {
	var req AuditSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var start, end *time.Time
	if req.StartTime != nil {
		t := time.Unix(*req.StartTime, 0)
		start = &t
	}
	if req.EndTime != nil {
		t := time.Unix(*req.EndTime, 0)
		end = &t
	}

	if s.es != nil {
		result, err := s.es.SearchChanges(c.Request.Context(), &elasticsearch.SearchQuery{
			Category:  req.Category,
			RuleID:    req.RuleID,
			Kind:      req.Kind,
			StartTime: start,
			EndTime:   end,
			Size:      req.Size,
			From:      req.From,
		})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"total": result.Total, "hits": result.Hits})
		return
	}

	if s.config.Logger.AuditDir == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no audit sink configured"})
		return
	}
	result, err := logger.QueryChangeLogs(s.config.Logger.AuditDir, &logger.ChangeLogQuery{
		Category:  req.Category,
		RuleID:    req.RuleID,
		Kind:      req.Kind,
		StartTime: start,
		EndTime:   end,
		Limit:     req.Size,
		Offset:    req.From,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": result.Total, "hits": result.Entries})
}
