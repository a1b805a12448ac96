package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

type journeyPayload struct {
	ID             int64     `json:"id,omitempty"`
	DeviceID       int64     `json:"device_id"`
	StartLatitude  float64   `json:"start_latitude"`
	StartLongitude float64   `json:"start_longitude"`
	StartTimestamp time.Time `json:"start_timestamp"`
	StopLatitude   float64   `json:"stop_latitude"`
	StopLongitude  float64   `json:"stop_longitude"`
	StopTimestamp  time.Time `json:"stop_timestamp"`
	Distance       int64     `json:"distance,omitempty"`
	AverageSpeed   float64   `json:"average_speed,omitempty"`
	MaximumSpeed   float64   `json:"maximum_speed,omitempty"`
	Duration       int64     `json:"duration,omitempty"`
}

func journeyToPayload(j model.Journey) journeyPayload {
	return journeyPayload{
		ID: j.ID, DeviceID: j.DeviceID,
		StartLatitude: j.StartLatitude, StartLongitude: j.StartLongitude, StartTimestamp: j.StartTimestamp,
		StopLatitude: j.StopLatitude, StopLongitude: j.StopLongitude, StopTimestamp: j.StopTimestamp,
		Distance: j.Distance, AverageSpeed: j.AverageSpeed, MaximumSpeed: j.MaximumSpeed, Duration: j.Duration,
	}
}

func (p journeyPayload) toModel() *model.Journey {
	return &model.Journey{
		ID: p.ID, DeviceID: p.DeviceID,
		StartLatitude: p.StartLatitude, StartLongitude: p.StartLongitude, StartTimestamp: p.StartTimestamp,
		StopLatitude: p.StopLatitude, StopLongitude: p.StopLongitude, StopTimestamp: p.StopTimestamp,
		Distance: p.Distance, AverageSpeed: p.AverageSpeed, MaximumSpeed: p.MaximumSpeed, Duration: p.Duration,
	}
}

type positionPayload struct {
	ID        int64     `json:"id,omitempty"`
	DeviceID  int64     `json:"device_id"`
	JourneyID *int64    `json:"journey_id,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Speed     float64   `json:"speed,omitempty"`
}

type logPayload struct {
	ID        int64     `json:"id,omitempty"`
	DeviceID  int64     `json:"device_id"`
	JourneyID *int64    `json:"journey_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level,omitempty"`
	Message   string    `json:"message"`
}

func (s *Server) createJourney(c *gin.Context) {
	var p journeyPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	j := p.toModel()
	if err := s.telemetry.CreateJourney(c.Request.Context(), identity(c), j); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, journeyToPayload(*j))
}

func (s *Server) getJourney(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	j, err := s.telemetry.GetJourney(c.Request.Context(), identity(c), id)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, journeyToPayload(*j))
}

func (s *Server) listJourneys(c *gin.Context) {
	deviceID, err := queryInt(c, "device__id")
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
	js, err := s.telemetry.ListJourneys(c.Request.Context(), identity(c), deviceID, int(limit), int(offset))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	out := make([]journeyPayload, 0, len(js))
	for _, j := range js {
		out = append(out, journeyToPayload(j))
	}
	c.JSON(http.StatusOK, out)
}

// createPositions accepts a single position object or a JSON array.
func (s *Server) createPositions(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	var payloads []positionPayload
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(body, &payloads)
	} else {
		var single positionPayload
		if err = json.Unmarshal(body, &single); err == nil {
			payloads = []positionPayload{single}
		}
	}
	if err != nil {
		badRequest(c, err)
		return
	}
	ps := make([]model.Position, 0, len(payloads))
	for _, p := range payloads {
		ps = append(ps, model.Position{
			DeviceID: p.DeviceID, JourneyID: p.JourneyID,
			Latitude: p.Latitude, Longitude: p.Longitude,
			Timestamp: p.Timestamp, Speed: p.Speed,
		})
	}
	if err := s.telemetry.CreatePositions(c.Request.Context(), identity(c), ps); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) listPositions(c *gin.Context) {
	deviceID, err := queryInt(c, "device__id")
	if err != nil {
		badRequest(c, err)
		return
	}
	journeyID, err := queryInt(c, "journey__id")
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
	f := repository.PositionFilter{DeviceID: deviceID, JourneyID: journeyID, Limit: int(limit), Offset: int(offset)}
	ps, err := s.telemetry.ListPositions(c.Request.Context(), identity(c), f)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	out := make([]positionPayload, 0, len(ps))
	for _, p := range ps {
		out = append(out, positionPayload{
			ID: p.ID, DeviceID: p.DeviceID, JourneyID: p.JourneyID,
			Latitude: p.Latitude, Longitude: p.Longitude,
			Timestamp: p.Timestamp, Speed: p.Speed,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createLog(c *gin.Context) {
	var p logPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	l := &model.LogRecord{
		DeviceID: p.DeviceID, JourneyID: p.JourneyID,
		Timestamp: p.Timestamp, Level: p.Level, Message: p.Message,
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}
	if err := s.telemetry.CreateLog(c.Request.Context(), identity(c), l); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, logPayload{
		ID: l.ID, DeviceID: l.DeviceID, JourneyID: l.JourneyID,
		Timestamp: l.Timestamp, Level: l.Level, Message: l.Message,
	})
}

func (s *Server) listLogs(c *gin.Context) {
	deviceID, err := queryInt(c, "device__id")
	if err != nil {
		badRequest(c, err)
		return
	}
	journeyID, err := queryInt(c, "journey__id")
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
	f := repository.LogFilter{
		DeviceID: deviceID, JourneyID: journeyID, Level: c.Query("level"),
		Limit: int(limit), Offset: int(offset),
	}
	ls, err := s.telemetry.ListLogs(c.Request.Context(), identity(c), f)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	out := make([]logPayload, 0, len(ls))
	for _, l := range ls {
		out = append(out, logPayload{
			ID: l.ID, DeviceID: l.DeviceID, JourneyID: l.JourneyID,
			Timestamp: l.Timestamp, Level: l.Level, Message: l.Message,
		})
	}
	c.JSON(http.StatusOK, out)
}
