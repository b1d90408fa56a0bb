package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"notifyconsole/internal/rule"
	"notifyconsole/internal/session"
)

type CategoryRequest struct {
	Category string `json:"category"` // empty lists every category
}

type RuleKeyRequest struct {
	Category string `json:"category" binding:"required"`
	ID       string `json:"id" binding:"required"`
}

type RemoveRuleRequest struct {
	RuleKeyRequest
	Confirm bool `json:"confirm"`
}

type CreateRuleRequest struct {
	Category string     `json:"category" binding:"required"`
	Rule     *rule.Rule `json:"rule" binding:"required"`
}

type UpdateRuleRequest struct {
	RuleKeyRequest
	Fields RuleFieldsRequest `json:"fields"`
}

type RuleHistoryRequest struct {
	RuleKeyRequest
	Limit int `json:"limit"`
}

func (s *Server) listRules(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := rule.ParseCategory(req.Category)
	if err != nil {
		writeError(c, err)
		return
	}

	rules, err := s.console.ListRules(cat)
	if err != nil {
		writeError(c, err)
		return
	}
	if rules == nil {
		rules = []*rule.Rule{}
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules, "total": len(rules)})
}

func (s *Server) getRule(c *gin.Context) {
	var req RuleKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := rule.ParseCategory(req.Category)
	if err != nil {
		writeError(c, err)
		return
	}

	r, err := s.console.GetRule(cat, req.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": r})
}

func (s *Server) createRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := rule.ParseCategory(req.Category)
	if err != nil {
		writeError(c, err)
		return
	}

	r, err := s.console.CreateRule(c.Request.Context(), cat, req.Rule)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"rule":    r,
		"message": "Rule created successfully",
	})
}

func (s *Server) updateRule(c *gin.Context) {
	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := rule.ParseCategory(req.Category)
	if err != nil {
		writeError(c, err)
		return
	}

	r, err := s.console.UpdateRule(c.Request.Context(), cat, req.ID, func(r *rule.Rule) {
		ApplyFields(&req.Fields, r)
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rule":    r,
		"message": "Rule updated successfully",
	})
}

func (s *Server) removeRule(c *gin.Context) {
	var req RemoveRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := rule.ParseCategory(req.Category)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := s.console.RemoveRule(c.Request.Context(), cat, req.ID, confirmation(req.Confirm)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rule removed successfully"})
}

func (s *Server) ruleHistory(c *gin.Context) {
	var req RuleHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule history is not stored"})
		return
	}
	cat, err := rule.ParseCategory(req.Category)
	if err != nil {
		writeError(c, err)
		return
	}

	changes, err := s.history.History(c.Request.Context(), cat, req.ID, req.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes})
}

// confirmation answers the delete prompt with the request's confirm flag.
func confirmation(answer bool) session.Confirmer {
	if answer {
		return session.AlwaysConfirm
	}
	return session.NeverConfirm
}
