// Package model defines domain entities used by services and repositories.
package model

import (
	"math"
	"time"
)

// Account is the identity record behind every user and device. Email is the
// primary key; the role is assigned once and never changes afterwards.
type Account struct {
	Email     string
	PwdHash   string // bcrypt
	Role      Role
	IsActive  bool
	CreatedAt time.Time
	LastLogin time.Time
}

// User is a human profile owned 1:1 by an Account. Fleet membership lives in
// the fleet_users join table, not here.
type User struct {
	ID           int64
	Username     string
	AccountEmail string
}

// Device is a tracked unit owned 1:1 by a DEVICE-role Account.
type Device struct {
	ID           int64
	Serial       string
	Type         string
	Description  string
	Phone        string
	Plate        string
	VIN          string
	IMEI         string
	IMSI         string
	MSISDN       string
	AccountEmail string
}

// Fleet is a node in the fleet forest. ParentID is nil for roots; children
// hold a weak reference to the parent by id.
type Fleet struct {
	ID       int64
	Name     string
	ParentID *int64
}

// IsRoot reports whether the fleet has no parent.
func (f *Fleet) IsRoot() bool { return f.ParentID == nil }

// Journey is one trip of a device between two points.
type Journey struct {
	ID             int64
	DeviceID       int64
	StartLatitude  float64
	StartLongitude float64
	StartTimestamp time.Time
	StopLatitude   float64
	StopLongitude  float64
	StopTimestamp  time.Time
	Distance       int64   // m
	AverageSpeed   float64 // km/h
	MaximumSpeed   float64 // km/h
	Duration       int64   // ms
}

// Derive fills Duration and Distance when the caller did not provide them.
func (j *Journey) Derive() {
	if j.Duration == 0 && j.StopTimestamp.After(j.StartTimestamp) {
		j.Duration = j.StopTimestamp.Sub(j.StartTimestamp).Milliseconds()
	}
	if j.Distance == 0 {
		km := Haversine(j.StartLatitude, j.StartLongitude, j.StopLatitude, j.StopLongitude)
		j.Distance = int64(km * 1000)
	}
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(startLat, startLng, stopLat, stopLng float64) float64 {
	const degToRad = math.Pi / 180.0
	dLat := (stopLat - startLat) * degToRad
	dLng := (stopLng - startLng) * degToRad
	a := math.Pow(math.Sin(dLat/2), 2) + math.Cos(startLat*degToRad)*
		math.Cos(stopLat*degToRad)*math.Pow(math.Sin(dLng/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return 6367 * c
}

// Position is a single track point, optionally attached to a journey.
type Position struct {
	ID        int64
	DeviceID  int64
	JourneyID *int64
	Latitude  float64
	Longitude float64
	Timestamp time.Time
	Speed     float64
}

// Log levels, mirroring the logs.level enum.
const (
	LogError = "ERROR"
	LogWarn  = "WARN"
	LogInfo  = "INFO"
	LogDebug = "DEBUG"
)

// LogRecord is a device log line, optionally attached to a journey.
type LogRecord struct {
	ID        int64
	DeviceID  int64
	JourneyID *int64
	Timestamp time.Time
	Level     string
	Message   string
}

// ValidLogLevel reports whether lvl is one of the known log levels.
func ValidLogLevel(lvl string) bool {
	switch lvl {
	case LogError, LogWarn, LogInfo, LogDebug:
		return true
	}
	return false
}
