package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nibzard/taskboard/internal/task"
)

// updateRequest carries the target id of a PUT; the remaining fields of
// the body decode into a task.Patch.
type updateRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleList(c *gin.Context) {
	tasks, err := s.svc.List(c.Request.Context())
	if err != nil {
		s.abortJSON(c, err)
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleCreate(c *gin.Context) {
	var draft task.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid JSON body: %v", err)})
		return
	}

	created, err := s.svc.Create(c.Request.Context(), draft)
	if err != nil {
		s.abortJSON(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("read body: %v", err)})
		return
	}

	var req updateRequest
	var patch task.Patch
	if err := json.Unmarshal(body, &req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid JSON body: %v", err)})
		return
	}
	if err := json.Unmarshal(body, &patch); err != nil {
		// An unknown id wins over a bad field value.
		if _, gerr := s.svc.Get(c.Request.Context(), req.ID); gerr != nil {
			s.abortJSON(c, gerr)
			return
		}
		s.abortJSON(c, err)
		return
	}

	updated, err := s.svc.Update(c.Request.Context(), req.ID, patch)
	if err != nil {
		s.abortJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.svc.Delete(c.Request.Context(), c.Query("id")); err != nil {
		s.abortJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
