// Package sample generates a deterministic demo dataset: accounts, fleets,
// devices and one month of journeys with interpolated track points.
package sample

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/vehtrack/vehtrack/internal/crypto"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

// City is a journey endpoint.
type City struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Cities are the endpoints journeys run between.
var Cities = []City{
	{"Bucharest", 44.4268, 26.1025},
	{"Cluj-Napoca", 46.7712, 23.6236},
	{"Timisoara", 45.7489, 21.2087},
	{"Iasi", 47.1585, 27.6014},
	{"Constanta", 44.1598, 28.6348},
	{"Craiova", 44.3302, 23.7949},
	{"Brasov", 45.6580, 25.6012},
	{"Galati", 45.4353, 28.0080},
	{"Ploiesti", 44.9469, 26.0368},
	{"Oradea", 47.0465, 21.9189},
}

// Config sizes the dataset.
type Config struct {
	Users    int
	Devices  int
	Seed     int64
	Password string
	Cost     int // bcrypt cost
}

// Repos collects the repositories the generator writes through.
type Repos struct {
	Accounts  repository.AccountRepository
	Users     repository.UserRepository
	Devices   repository.DeviceRepository
	Fleets    repository.FleetRepository
	Telemetry repository.TelemetryRepository
}

// Generator produces the dataset. The same seed yields the same data.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New constructs a Generator.
func New(cfg Config) *Generator {
	if cfg.Users <= 0 {
		cfg.Users = 9
	}
	if cfg.Devices <= 0 {
		cfg.Devices = 6
	}
	if cfg.Password == "" {
		cfg.Password = "parola"
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Populate writes the whole dataset: users (every third one a FLEET_ADMIN),
// devices, a fleet forest with one root per FLEET_ADMIN, memberships and one
// month of journeys per device.
func (g *Generator) Populate(ctx context.Context, r Repos) error {
	hash, err := crypto.HashPassword(g.cfg.Password, g.cfg.Cost)
	if err != nil {
		return err
	}

	users, err := g.populateUsers(ctx, r, hash)
	if err != nil {
		return err
	}
	devices, err := g.populateDevices(ctx, r, hash)
	if err != nil {
		return err
	}
	if err := g.populateFleets(ctx, r, users, devices); err != nil {
		return err
	}
	for _, d := range devices {
		if err := g.populateTelemetry(ctx, r, d.ID); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) populateUsers(ctx context.Context, r Repos, hash string) ([]model.User, error) {
	out := make([]model.User, 0, g.cfg.Users)
	for i := 0; i < g.cfg.Users; i++ {
		role := model.RoleUser
		if i%3 == 0 {
			role = model.RoleFleetAdmin
		}
		email := fmt.Sprintf("user_%d@vehtrack.com", i)
		a := &model.Account{Email: email, PwdHash: hash, Role: role, IsActive: true}
		if err := r.Accounts.Create(ctx, a); err != nil {
			return nil, err
		}
		u := &model.User{Username: fmt.Sprintf("user_%d", i), AccountEmail: email}
		if err := r.Users.Create(ctx, u); err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}

func (g *Generator) populateDevices(ctx context.Context, r Repos, hash string) ([]model.Device, error) {
	out := make([]model.Device, 0, g.cfg.Devices)
	for i := 0; i < g.cfg.Devices; i++ {
		email := fmt.Sprintf("device_%d@vehtrack.com", i)
		a := &model.Account{Email: email, PwdHash: hash, Role: model.RoleDevice, IsActive: true}
		if err := r.Accounts.Create(ctx, a); err != nil {
			return nil, err
		}
		d := &model.Device{
			Serial:       fmt.Sprintf("serial_%d", i),
			Type:         fmt.Sprintf("mk_%d", i%3),
			Description:  fmt.Sprintf("sample unit %d", i),
			AccountEmail: email,
		}
		if err := r.Devices.Create(ctx, d); err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

// populateFleets builds one root per FLEET_ADMIN (user index i%3 == 0), gives
// it a child and a grandchild, links the admin to the root and spreads the
// remaining users and all devices over the child fleets.
func (g *Generator) populateFleets(ctx context.Context, r Repos, users []model.User, devices []model.Device) error {
	var children []model.Fleet
	for i, u := range users {
		if i%3 != 0 {
			continue
		}
		root := &model.Fleet{Name: fmt.Sprintf("fleet_%d", i)}
		if err := r.Fleets.Create(ctx, root); err != nil {
			return err
		}
		if err := r.Fleets.AddUser(ctx, root.ID, u.ID); err != nil {
			return err
		}

		child := &model.Fleet{Name: fmt.Sprintf("fleet_%d.ops", i), ParentID: &root.ID}
		if err := r.Fleets.Create(ctx, child); err != nil {
			return err
		}
		grandchild := &model.Fleet{Name: fmt.Sprintf("fleet_%d.ops.south", i), ParentID: &child.ID}
		if err := r.Fleets.Create(ctx, grandchild); err != nil {
			return err
		}
		children = append(children, *child, *grandchild)
	}
	if len(children) == 0 {
		return nil
	}

	for i, u := range users {
		if i%3 == 0 {
			continue
		}
		fl := children[g.rng.Intn(len(children))]
		if err := r.Fleets.AddUser(ctx, fl.ID, u.ID); err != nil {
			return err
		}
	}
	for _, d := range devices {
		fl := children[g.rng.Intn(len(children))]
		if err := r.Fleets.AddDevice(ctx, fl.ID, d.ID); err != nil {
			return err
		}
	}
	return nil
}

// populateTelemetry writes one month of journeys for a device: one journey
// per day between two distinct cities, 100 to 150 interpolated positions and
// up to 5 log lines each.
func (g *Generator) populateTelemetry(ctx context.Context, r Repos, deviceID int64) error {
	start := time.Now().AddDate(0, -1, 0).Truncate(24 * time.Hour)
	for day := 0; day < 30; day++ {
		from := Cities[g.rng.Intn(len(Cities))]
		to := Cities[g.rng.Intn(len(Cities))]
		for to.Name == from.Name {
			to = Cities[g.rng.Intn(len(Cities))]
		}

		depart := start.AddDate(0, 0, day).Add(time.Duration(6+g.rng.Intn(6)) * time.Hour)
		distanceKm := model.Haversine(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
		avgSpeed := 50.0 + g.rng.Float64()*40
		travel := time.Duration(distanceKm / avgSpeed * float64(time.Hour))
		arrive := depart.Add(travel)

		j := &model.Journey{
			DeviceID:       deviceID,
			StartLatitude:  from.Latitude,
			StartLongitude: from.Longitude,
			StartTimestamp: depart,
			StopLatitude:   to.Latitude,
			StopLongitude:  to.Longitude,
			StopTimestamp:  arrive,
			AverageSpeed:   avgSpeed,
			MaximumSpeed:   avgSpeed + g.rng.Float64()*30,
		}
		j.Derive()
		if err := r.Telemetry.CreateJourney(ctx, j); err != nil {
			return err
		}

		n := 100 + g.rng.Intn(51)
		ps := make([]model.Position, 0, n)
		for k := 0; k < n; k++ {
			frac := float64(k) / float64(n-1)
			ps = append(ps, model.Position{
				DeviceID:  deviceID,
				JourneyID: &j.ID,
				Latitude:  from.Latitude + (to.Latitude-from.Latitude)*frac,
				Longitude: from.Longitude + (to.Longitude-from.Longitude)*frac,
				Timestamp: depart.Add(time.Duration(frac * float64(travel))),
				Speed:     avgSpeed + g.rng.Float64()*20 - 10,
			})
		}
		if err := r.Telemetry.CreatePositions(ctx, ps); err != nil {
			return err
		}

		levels := []string{model.LogError, model.LogWarn, model.LogInfo, model.LogDebug}
		for k, total := 0, g.rng.Intn(6); k < total; k++ {
			l := &model.LogRecord{
				DeviceID:  deviceID,
				JourneyID: &j.ID,
				Timestamp: depart.Add(time.Duration(g.rng.Float64() * float64(travel))),
				Level:     levels[g.rng.Intn(len(levels))],
				Message:   fmt.Sprintf("event %d on %s-%s", k, from.Name, to.Name),
			}
			if err := r.Telemetry.CreateLog(ctx, l); err != nil {
				return err
			}
		}
	}
	return nil
}
