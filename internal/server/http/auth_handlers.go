package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.auth.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	signed, exp, err := s.auth.LoginWithIP(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      signed,
		"expires_at": exp.Format(time.RFC3339),
	})
}

func (s *Server) logout(c *gin.Context) {
	cl := claims(c)
	if err := s.auth.Logout(c.Request.Context(), cl.ID, cl.ExpiresAt.Time); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
