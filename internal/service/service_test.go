package service

import (
	"context"
	"time"

	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

// In-memory fakes for the repository interfaces, shared by the service tests.

type fakeAccounts struct {
	byEmail map[string]*model.Account
	touched map[string]time.Time
	deleted []string
	getErr  error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byEmail: map[string]*model.Account{}, touched: map[string]time.Time{}}
}

func (f *fakeAccounts) Create(_ context.Context, a *model.Account) error {
	if _, ok := f.byEmail[a.Email]; ok {
		return errs.ErrAlreadyExists
	}
	cpy := *a
	f.byEmail[a.Email] = &cpy
	return nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *a
	return &cpy, nil
}

func (f *fakeAccounts) TouchLastLogin(_ context.Context, email string, at time.Time) error {
	f.touched[email] = at
	return nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, email, pwdHash string) error {
	a, ok := f.byEmail[email]
	if !ok {
		return errs.ErrNotFound
	}
	a.PwdHash = pwdHash
	return nil
}

func (f *fakeAccounts) SetActive(_ context.Context, email string, active bool) error {
	a, ok := f.byEmail[email]
	if !ok {
		return errs.ErrNotFound
	}
	a.IsActive = active
	return nil
}

func (f *fakeAccounts) DeleteByEmailAndRole(_ context.Context, email string, role model.Role) error {
	a, ok := f.byEmail[email]
	if !ok || a.Role != role {
		return errs.ErrNotFound
	}
	delete(f.byEmail, email)
	f.deleted = append(f.deleted, email)
	return nil
}

type fakeUsers struct {
	byEmail map[string]*model.User
	nextID  int64
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byEmail: map[string]*model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if _, ok := f.byEmail[u.AccountEmail]; ok {
		return errs.ErrAlreadyExists
	}
	f.nextID++
	u.ID = f.nextID
	cpy := *u
	f.byEmail[u.AccountEmail] = &cpy
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *u
	return &cpy, nil
}

func (f *fakeUsers) List(_ context.Context, _, _ int) ([]model.User, error) {
	var out []model.User
	for _, u := range f.byEmail {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) ListByFleetIDs(_ context.Context, _ []int64, _, _ int) ([]model.User, error) {
	return nil, nil
}

func (f *fakeUsers) UpdateUsername(_ context.Context, email, username string) error {
	u, ok := f.byEmail[email]
	if !ok {
		return errs.ErrNotFound
	}
	u.Username = username
	return nil
}

type fakeDevices struct {
	bySerial map[string]*model.Device
	nextID   int64
}

func newFakeDevices() *fakeDevices { return &fakeDevices{bySerial: map[string]*model.Device{}} }

func (f *fakeDevices) Create(_ context.Context, d *model.Device) error {
	if _, ok := f.bySerial[d.Serial]; ok {
		return errs.ErrAlreadyExists
	}
	f.nextID++
	d.ID = f.nextID
	cpy := *d
	f.bySerial[d.Serial] = &cpy
	return nil
}

func (f *fakeDevices) GetBySerial(_ context.Context, serial string) (*model.Device, error) {
	d, ok := f.bySerial[serial]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *d
	return &cpy, nil
}

func (f *fakeDevices) GetByEmail(_ context.Context, email string) (*model.Device, error) {
	for _, d := range f.bySerial {
		if d.AccountEmail == email {
			cpy := *d
			return &cpy, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeDevices) GetByID(_ context.Context, id int64) (*model.Device, error) {
	for _, d := range f.bySerial {
		if d.ID == id {
			cpy := *d
			return &cpy, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeDevices) List(_ context.Context, _ repository.DeviceFilter) ([]model.Device, error) {
	var out []model.Device
	for _, d := range f.bySerial {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeDevices) Update(_ context.Context, d *model.Device) error {
	for serial, have := range f.bySerial {
		if have.ID == d.ID {
			delete(f.bySerial, serial)
			cpy := *d
			f.bySerial[d.Serial] = &cpy
			return nil
		}
	}
	return errs.ErrNotFound
}

type fakeFleets struct {
	nodes        map[int64]*model.Fleet
	roots        map[string][]int64
	members      map[string][]int64
	deviceFleets map[int64][]int64
	nextID       int64

	created []int64
	deleted []int64
	links   []string
}

func newFakeFleets() *fakeFleets {
	return &fakeFleets{
		nodes:        map[int64]*model.Fleet{},
		roots:        map[string][]int64{},
		members:      map[string][]int64{},
		deviceFleets: map[int64][]int64{},
	}
}

func (f *fakeFleets) add(fl model.Fleet) {
	cpy := fl
	f.nodes[fl.ID] = &cpy
	if fl.ID > f.nextID {
		f.nextID = fl.ID
	}
}

func (f *fakeFleets) GetByID(_ context.Context, id int64) (*model.Fleet, error) {
	fl, ok := f.nodes[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *fl
	return &cpy, nil
}

func (f *fakeFleets) FindChildren(_ context.Context, parentID int64) ([]model.Fleet, error) {
	var out []model.Fleet
	for _, fl := range f.nodes {
		if fl.ParentID != nil && *fl.ParentID == parentID {
			out = append(out, *fl)
		}
	}
	return out, nil
}

func (f *fakeFleets) List(_ context.Context, flt repository.FleetFilter) ([]model.Fleet, error) {
	var out []model.Fleet
	for _, fl := range f.nodes {
		if len(flt.IDs) > 0 {
			found := false
			for _, id := range flt.IDs {
				if fl.ID == id {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, *fl)
	}
	return out, nil
}

func (f *fakeFleets) Create(_ context.Context, fl *model.Fleet) error {
	f.nextID++
	fl.ID = f.nextID
	cpy := *fl
	f.nodes[fl.ID] = &cpy
	f.created = append(f.created, fl.ID)
	return nil
}

func (f *fakeFleets) CreateBatch(ctx context.Context, fls []*model.Fleet) error {
	for _, fl := range fls {
		if err := f.Create(ctx, fl); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeFleets) Update(_ context.Context, fl *model.Fleet) error {
	if _, ok := f.nodes[fl.ID]; !ok {
		return errs.ErrNotFound
	}
	cpy := *fl
	f.nodes[fl.ID] = &cpy
	return nil
}

func (f *fakeFleets) Delete(_ context.Context, id int64) error {
	if _, ok := f.nodes[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.nodes, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeFleets) LinkedRootIDs(_ context.Context, email string) ([]int64, error) {
	ids, ok := f.roots[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return ids, nil
}

func (f *fakeFleets) MemberFleetIDs(_ context.Context, email string) ([]int64, error) {
	ids, ok := f.members[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return ids, nil
}

func (f *fakeFleets) DeviceFleetIDs(_ context.Context, deviceID int64) ([]int64, error) {
	return f.deviceFleets[deviceID], nil
}

func (f *fakeFleets) AddUser(context.Context, int64, int64) error {
	f.links = append(f.links, "user+")
	return nil
}

func (f *fakeFleets) RemoveUser(context.Context, int64, int64) error {
	f.links = append(f.links, "user-")
	return nil
}

func (f *fakeFleets) AddDevice(context.Context, int64, int64) error {
	f.links = append(f.links, "device+")
	return nil
}

func (f *fakeFleets) RemoveDevice(context.Context, int64, int64) error {
	f.links = append(f.links, "device-")
	return nil
}

type fakeFleetSnapshot struct{ f *fakeFleets }

func (s *fakeFleetSnapshot) GetByID(ctx context.Context, id int64) (*model.Fleet, error) {
	return s.f.GetByID(ctx, id)
}

func (s *fakeFleetSnapshot) Close(context.Context) {}

func (f *fakeFleets) Snapshot(context.Context) (repository.FleetSnapshot, error) {
	return &fakeFleetSnapshot{f: f}, nil
}

type fakeLimiter struct {
	blocked    bool
	failures   int
	successes  int
	blockAfter int
}

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	if l.blocked {
		return false, time.Minute, nil
	}
	return true, 0, nil
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successes++
	return nil
}

func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failures++
	if l.blockAfter > 0 && l.failures >= l.blockAfter {
		return true, time.Minute, nil
	}
	return false, 0, nil
}
