package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vehtrack/vehtrack/internal/service"
	"github.com/vehtrack/vehtrack/internal/token"
)

// Server wires the application services into a gin router.
type Server struct {
	log       *zap.Logger
	auth      service.AuthService
	fleets    service.FleetService
	users     service.UserService
	devices   service.DeviceService
	telemetry service.TelemetryService
	tokens    *token.Manager
	revoked   *token.RevokedSet
}

// NewServer constructs the HTTP server facade.
func NewServer(
	log *zap.Logger,
	auth service.AuthService,
	fleets service.FleetService,
	users service.UserService,
	devices service.DeviceService,
	telemetry service.TelemetryService,
	tokens *token.Manager,
	revoked *token.RevokedSet,
) *Server {
	return &Server{
		log:       log,
		auth:      auth,
		fleets:    fleets,
		users:     users,
		devices:   devices,
		telemetry: telemetry,
		tokens:    tokens,
		revoked:   revoked,
	}
}

// Router builds the route tree.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.log))

	auth := r.Group("/auth")
	{
		auth.POST("/register", s.register)
		auth.POST("/login", s.login)
		auth.POST("/logout", Auth(s.tokens, s.revoked), s.logout)
	}

	api := r.Group("/api/v1", Auth(s.tokens, s.revoked))
	{
		api.GET("/fleet", s.listFleets)
		api.POST("/fleet", s.createFleet)
		api.GET("/fleet/:id", s.getFleet)
		api.PUT("/fleet/:id", s.updateFleet)
		api.DELETE("/fleet/:id", s.deleteFleet)
		api.POST("/fleet/:id/user/:email", s.addFleetUser)
		api.DELETE("/fleet/:id/user/:email", s.removeFleetUser)
		api.POST("/fleet/:id/device/:serial", s.addFleetDevice)
		api.DELETE("/fleet/:id/device/:serial", s.removeFleetDevice)

		api.GET("/user", s.listUsers)
		api.POST("/user", s.createUser)
		api.GET("/user/:email", s.getUser)
		api.PUT("/user/:email", s.updateUser)
		api.DELETE("/user/:email", s.deleteUser)

		api.GET("/device", s.listDevices)
		api.POST("/device", s.createDevice)
		api.GET("/device/:serial", s.getDevice)
		api.PUT("/device/:serial", s.updateDevice)
		api.DELETE("/device/:serial", s.deleteDevice)

		api.POST("/journey", s.createJourney)
		api.GET("/journey", s.listJourneys)
		api.GET("/journey/:id", s.getJourney)
		api.POST("/position", s.createPositions)
		api.GET("/position", s.listPositions)
		api.POST("/log", s.createLog)
		api.GET("/log", s.listLogs)
	}
	return r
}
