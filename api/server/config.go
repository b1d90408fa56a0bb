package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"notifyconsole/internal/config"
)

type GetConfigResponse struct {
	Config *config.Config `json:"config"`
}

// UpdateConfigRequest carries passwords beside the config because the
// config never serializes them.
type UpdateConfigRequest struct {
	Config                *config.Config `json:"config" binding:"required"`
	DatabasePassword      string         `json:"database_password"`
	ElasticsearchPassword string         `json:"elasticsearch_password"`
}

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, GetConfigResponse{
		Config: s.config,
	})
}

// updateConfig writes a new configuration file. An empty password field
// keeps the current value. Changes apply on restart.
func (s *Server) updateConfig(c *gin.Context) {
	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	next := req.Config
	next.Database.Password = req.DatabasePassword
	if next.Database.Password == "" {
		next.Database.Password = s.config.Database.Password
	}
	next.Elasticsearch.Password = req.ElasticsearchPassword
	if next.Elasticsearch.Password == "" {
		next.Elasticsearch.Password = s.config.Elasticsearch.Password
	}

	if err := next.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.configPath == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "configuration was loaded from the environment and cannot be saved"})
		return
	}

	if err := config.SaveToFile(s.configPath, next); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to save config: %v", err)})
		return
	}

	s.config = next

	c.JSON(http.StatusOK, gin.H{
		"message": "Configuration updated successfully. Please restart the service for changes to take effect.",
		"config":  s.config,
	})
}
