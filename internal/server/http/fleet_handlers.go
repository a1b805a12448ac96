package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

type fleetPayload struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

func fleetToPayload(f model.Fleet) fleetPayload {
	return fleetPayload{ID: f.ID, Name: f.Name, ParentID: f.ParentID}
}

func (p fleetPayload) toModel() *model.Fleet {
	return &model.Fleet{ID: p.ID, Name: p.Name, ParentID: p.ParentID}
}

func paramID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", c.Param("id"))
	}
	return id, nil
}

func queryInt(c *gin.Context, name string) (int64, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

func (s *Server) listFleets(c *gin.Context) {
	parentID, err := queryInt(c, "parent__id")
	if err != nil {
		badRequest(c, err)
		return
	}
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
	f := repository.FleetFilter{Name: c.Query("name"), Limit: int(limit), Offset: int(offset)}
	if parentID != 0 {
		f.ParentIDs = []int64{parentID}
	}

	fleets, err := s.fleets.List(c.Request.Context(), identity(c), f)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	out := make([]fleetPayload, 0, len(fleets))
	for _, fl := range fleets {
		out = append(out, fleetToPayload(fl))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getFleet(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	fl, err := s.fleets.Get(c.Request.Context(), identity(c), id)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, fleetToPayload(*fl))
}

// createFleet accepts a single fleet object or a JSON array for bulk
// creation.
func (s *Server) createFleet(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var payloads []fleetPayload
		if err := json.Unmarshal(body, &payloads); err != nil {
			badRequest(c, err)
			return
		}
		fls := make([]*model.Fleet, 0, len(payloads))
		for _, p := range payloads {
			fls = append(fls, p.toModel())
		}
		if err := s.fleets.CreateBatch(c.Request.Context(), identity(c), fls); err != nil {
			writeError(c, s.log, err)
			return
		}
		out := make([]fleetPayload, 0, len(fls))
		for _, fl := range fls {
			out = append(out, fleetToPayload(*fl))
		}
		c.JSON(http.StatusCreated, out)
		return
	}

	var p fleetPayload
	if err := json.Unmarshal(body, &p); err != nil {
		badRequest(c, err)
		return
	}
	fl := p.toModel()
	if err := s.fleets.Create(c.Request.Context(), identity(c), fl); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, fleetToPayload(*fl))
}

func (s *Server) updateFleet(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var p fleetPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	fl := p.toModel()
	fl.ID = id
	if err := s.fleets.Update(c.Request.Context(), identity(c), fl); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, fleetToPayload(*fl))
}

func (s *Server) deleteFleet(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.fleets.Delete(c.Request.Context(), identity(c), id); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addFleetUser(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.fleets.AddUser(c.Request.Context(), identity(c), id, c.Param("email")); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeFleetUser(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.fleets.RemoveUser(c.Request.Context(), identity(c), id, c.Param("email")); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addFleetDevice(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.fleets.AddDevice(c.Request.Context(), identity(c), id, c.Param("serial")); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeFleetDevice(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.fleets.RemoveDevice(c.Request.Context(), identity(c), id, c.Param("serial")); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
