package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vehtrack/vehtrack/internal/model"
)

type userPayload struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func userToPayload(u model.User) userPayload {
	return userPayload{ID: u.ID, Username: u.Username, Email: u.AccountEmail}
}

func (s *Server) listUsers(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		badRequest(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		badRequest(c, err)
		return
	}
	users, err := s.users.List(c.Request.Context(), identity(c), int(limit), int(offset))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	out := make([]userPayload, 0, len(users))
	for _, u := range users {
		out = append(out, userToPayload(u))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getUser(c *gin.Context) {
	u, err := s.users.Get(c.Request.Context(), identity(c), c.Param("email"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, userToPayload(*u))
}

func (s *Server) createUser(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Username string `json:"username" binding:"required"`
		Role     string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.users.Create(c.Request.Context(), identity(c), req.Email, req.Password, req.Username, role); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) updateUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.users.UpdateUsername(c.Request.Context(), identity(c), c.Param("email"), req.Username); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteUser(c *gin.Context) {
	if err := s.users.Delete(c.Request.Context(), identity(c), c.Param("email")); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
