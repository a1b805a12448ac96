package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

type devicePayload struct {
	ID          int64  `json:"id,omitempty"`
	Serial      string `json:"serial"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Plate       string `json:"plate,omitempty"`
	VIN         string `json:"vin,omitempty"`
	IMEI        string `json:"imei,omitempty"`
	IMSI        string `json:"imsi,omitempty"`
	MSISDN      string `json:"msisdn,omitempty"`
	Email       string `json:"email,omitempty"`
	Password    string `json:"password,omitempty"`
}

func deviceToPayload(d model.Device) devicePayload {
	return devicePayload{
		ID: d.ID, Serial: d.Serial, Type: d.Type, Description: d.Description,
		Phone: d.Phone, Plate: d.Plate, VIN: d.VIN,
		IMEI: d.IMEI, IMSI: d.IMSI, MSISDN: d.MSISDN, Email: d.AccountEmail,
	}
}

func (p devicePayload) toModel() *model.Device {
	return &model.Device{
		ID: p.ID, Serial: p.Serial, Type: p.Type, Description: p.Description,
		Phone: p.Phone, Plate: p.Plate, VIN: p.VIN,
		IMEI: p.IMEI, IMSI: p.IMSI, MSISDN: p.MSISDN, AccountEmail: p.Email,
	}
}

func (s *Server) listDevices(c *gin.Context) {
	fleetID, err := queryInt(c, "fleet__id")
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
	f := repository.DeviceFilter{Limit: int(limit), Offset: int(offset)}
	if fleetID != 0 {
		f.FleetIDs = []int64{fleetID}
	}
	devices, err := s.devices.List(c.Request.Context(), identity(c), f)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	out := make([]devicePayload, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceToPayload(d))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getDevice(c *gin.Context) {
	d, err := s.devices.GetBySerial(c.Request.Context(), identity(c), c.Param("serial"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, deviceToPayload(*d))
}

// createDevice accepts a single device object or a JSON array for bulk
// provisioning.
func (s *Server) createDevice(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var payloads []devicePayload
		if err := json.Unmarshal(body, &payloads); err != nil {
			badRequest(c, err)
			return
		}
		for _, p := range payloads {
			d := p.toModel()
			if err := s.devices.Create(c.Request.Context(), identity(c), d, p.Password); err != nil {
				writeError(c, s.log, err)
				return
			}
		}
		c.Status(http.StatusCreated)
		return
	}

	var p devicePayload
	if err := json.Unmarshal(body, &p); err != nil {
		badRequest(c, err)
		return
	}
	d := p.toModel()
	if err := s.devices.Create(c.Request.Context(), identity(c), d, p.Password); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, deviceToPayload(*d))
}

func (s *Server) updateDevice(c *gin.Context) {
	existing, err := s.devices.GetBySerial(c.Request.Context(), identity(c), c.Param("serial"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	var p devicePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	d := p.toModel()
	d.ID = existing.ID
	d.AccountEmail = existing.AccountEmail
	if d.Serial == "" {
		d.Serial = existing.Serial
	}
	if err := s.devices.Update(c.Request.Context(), identity(c), d); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, deviceToPayload(*d))
}

func (s *Server) deleteDevice(c *gin.Context) {
	if err := s.devices.Delete(c.Request.Context(), identity(c), c.Param("serial")); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
