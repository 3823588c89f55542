package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
)

// MemoryStore: DB 未就绪时使用的内存实现（联测 / 单元测试）
// - 所有实体按 id 存储，读写均返回副本
// - RunInTx 在副本上执行，成功后整体替换，失败则丢弃
// - 唯一约束与 Postgres 索引保持一致（workers/personnel/attendance）
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

type memoryData struct {
	camps      map[string]*domain.Camp
	rooms      map[string]*domain.Room
	workers    map[string]*domain.Worker
	personnel  map[string]*domain.Personnel
	attendance map[string]*domain.Attendance // keyed by site|personnel|date
}

func newMemoryData() *memoryData {
	return &memoryData{
		camps:      map[string]*domain.Camp{},
		rooms:      map[string]*domain.Room{},
		workers:    map[string]*domain.Worker{},
		personnel:  map[string]*domain.Personnel{},
		attendance: map[string]*domain.Attendance{},
	}
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	for k, v := range d.camps {
		c.camps[k] = v.Clone()
	}
	for k, v := range d.rooms {
		c.rooms[k] = v.Clone()
	}
	for k, v := range d.workers {
		c.workers[k] = v.Clone()
	}
	for k, v := range d.personnel {
		c.personnel[k] = v.Clone()
	}
	for k, v := range d.attendance {
		a := *v
		c.attendance[k] = &a
	}
	return c
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

// memoryRepos implements every repository over one memoryData. Outside a
// transaction each call takes the store lock; inside RunInTx the lock is already
// held and d is the private copy.
type memoryRepos struct {
	s    *MemoryStore
	d    *memoryData
	inTx bool
}

func (s *MemoryStore) repos() *memoryRepos {
	return &memoryRepos{s: s}
}

func (s *MemoryStore) Camps() CampsRepository           { return s.repos() }
func (s *MemoryStore) Rooms() RoomsRepository           { return s.repos() }
func (s *MemoryStore) Workers() WorkersRepository       { return s.repos() }
func (s *MemoryStore) Personnel() PersonnelRepository   { return s.repos() }
func (s *MemoryStore) Attendance() AttendanceRepository { return s.repos() }

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	tx := &memoryRepos{s: s, d: work, inTx: true}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (r *memoryRepos) Camps() CampsRepository           { return r }
func (r *memoryRepos) Rooms() RoomsRepository           { return r }
func (r *memoryRepos) Workers() WorkersRepository       { return r }
func (r *memoryRepos) Personnel() PersonnelRepository   { return r }
func (r *memoryRepos) Attendance() AttendanceRepository { return r }

// begin returns the data to operate on and the matching release func.
func (r *memoryRepos) begin() (*memoryData, func()) {
	if r.inTx {
		return r.d, func() {}
	}
	r.s.mu.Lock()
	return r.s.data, r.s.mu.Unlock
}

// ---- camps ----

func (r *memoryRepos) GetCamp(_ context.Context, campID string) (*domain.Camp, error) {
	d, done := r.begin()
	defer done()
	c, ok := d.camps[campID]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (r *memoryRepos) FindCampByShareCode(_ context.Context, code string) (*domain.Camp, error) {
	d, done := r.begin()
	defer done()
	if code == "" {
		return nil, ErrNotFound
	}
	for _, c := range d.camps {
		if c.ShareCodes.Read == code || c.ShareCodes.Write == code {
			return c.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepos) ListCamps(_ context.Context, filter CampFilter) ([]*domain.Camp, error) {
	d, done := r.begin()
	defer done()
	out := make([]*domain.Camp, 0, len(d.camps))
	for _, c := range d.camps {
		if !filter.All {
			member := strings.EqualFold(c.OwnerEmail, filter.Email) ||
				slices.ContainsFunc(c.SharedWith, func(s domain.Share) bool {
					return strings.EqualFold(s.Email, filter.Email)
				})
			if !member {
				continue
			}
		}
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepos) CreateCamp(_ context.Context, camp *domain.Camp) error {
	d, done := r.begin()
	defer done()
	if _, ok := d.camps[camp.ID]; ok {
		return ErrDuplicate
	}
	d.camps[camp.ID] = camp.Clone()
	return nil
}

func (r *memoryRepos) UpdateCamp(_ context.Context, camp *domain.Camp) error {
	d, done := r.begin()
	defer done()
	if _, ok := d.camps[camp.ID]; !ok {
		return ErrNotFound
	}
	c := camp.Clone()
	c.UpdatedAt = now()
	d.camps[camp.ID] = c
	return nil
}

func (r *memoryRepos) DeleteCamp(_ context.Context, campID string) error {
	d, done := r.begin()
	defer done()
	if _, ok := d.camps[campID]; !ok {
		return ErrNotFound
	}
	delete(d.camps, campID)
	return nil
}

// ---- rooms ----

func (r *memoryRepos) GetRoom(_ context.Context, roomID string) (*domain.Room, error) {
	d, done := r.begin()
	defer done()
	room, ok := d.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	return room.Clone(), nil
}

func (r *memoryRepos) ListRooms(_ context.Context, filter RoomFilter) ([]*domain.Room, error) {
	d, done := r.begin()
	defer done()
	out := make([]*domain.Room, 0)
	for _, room := range d.rooms {
		if filter.CampID != "" && room.CampID != filter.CampID {
			continue
		}
		if filter.Number != "" && room.Number != filter.Number {
			continue
		}
		if filter.Project != "" && room.Project != filter.Project {
			continue
		}
		out = append(out, room.Clone())
	}
	sortRooms(out)
	return out, nil
}

func (r *memoryRepos) CreateRoom(_ context.Context, room *domain.Room) error {
	d, done := r.begin()
	defer done()
	if _, ok := d.rooms[room.ID]; ok {
		return ErrDuplicate
	}
	d.rooms[room.ID] = room.Clone()
	return nil
}

func (r *memoryRepos) UpdateRoom(_ context.Context, room *domain.Room) error {
	d, done := r.begin()
	defer done()
	if _, ok := d.rooms[room.ID]; !ok {
		return ErrNotFound
	}
	c := room.Clone()
	c.UpdatedAt = now()
	d.rooms[room.ID] = c
	return nil
}

func (r *memoryRepos) DeleteRoom(_ context.Context, roomID string) error {
	d, done := r.begin()
	defer done()
	if _, ok := d.rooms[roomID]; !ok {
		return ErrNotFound
	}
	delete(d.rooms, roomID)
	return nil
}

// ---- workers ----

func (r *memoryRepos) GetWorker(_ context.Context, workerID string) (*domain.Worker, error) {
	d, done := r.begin()
	defer done()
	w, ok := d.workers[workerID]
	if !ok {
		return nil, ErrNotFound
	}
	return w.Clone(), nil
}

func (r *memoryRepos) ListWorkers(_ context.Context, filter WorkerFilter) ([]*domain.Worker, error) {
	d, done := r.begin()
	defer done()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]*domain.Worker, 0)
	for _, w := range d.workers {
		if filter.CampID != "" && w.CampID != filter.CampID {
			continue
		}
		if filter.RoomID != "" && w.RoomID != filter.RoomID {
			continue
		}
		if filter.Project != "" && w.Project != filter.Project {
			continue
		}
		if filter.RegistrationNumber != "" && w.RegistrationNumber != filter.RegistrationNumber {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(w.Name), search) &&
			!strings.Contains(strings.ToLower(w.Surname), search) &&
			!strings.Contains(strings.ToLower(w.RegistrationNumber), search) {
			continue
		}
		out = append(out, w.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegistrationNumber == out[j].RegistrationNumber {
			return out[i].ID < out[j].ID
		}
		return out[i].RegistrationNumber < out[j].RegistrationNumber
	})
	return out, nil
}

func (r *memoryRepos) CreateWorker(_ context.Context, w *domain.Worker) error {
	d, done := r.begin()
	defer done()
	if _, ok := d.workers[w.ID]; ok {
		return ErrDuplicate
	}
	if workerRegistrationTaken(d, w) {
		return ErrDuplicate
	}
	d.workers[w.ID] = w.Clone()
	return nil
}

func (r *memoryRepos) UpdateWorker(_ context.Context, w *domain.Worker) error {
	d, done := r.begin()
	defer done()
	if _, ok := d.workers[w.ID]; !ok {
		return ErrNotFound
	}
	if workerRegistrationTaken(d, w) {
		return ErrDuplicate
	}
	c := w.Clone()
	c.UpdatedAt = now()
	d.workers[w.ID] = c
	return nil
}

func (r *memoryRepos) DeleteWorker(_ context.Context, workerID string) error {
	d, done := r.begin()
	defer done()
	if _, ok := d.workers[workerID]; !ok {
		return ErrNotFound
	}
	delete(d.workers, workerID)
	return nil
}

func (r *memoryRepos) DeleteWorkersByRoom(_ context.Context, roomID string) (int, error) {
	d, done := r.begin()
	defer done()
	n := 0
	for id, w := range d.workers {
		if w.RoomID == roomID {
			delete(d.workers, id)
			n++
		}
	}
	return n, nil
}

// workerRegistrationTaken mirrors UNIQUE (camp_id, registration_number).
func workerRegistrationTaken(d *memoryData, w *domain.Worker) bool {
	for id, other := range d.workers {
		if id != w.ID && other.CampID == w.CampID && other.RegistrationNumber == w.RegistrationNumber {
			return true
		}
	}
	return false
}

// ---- personnel ----

func (r *memoryRepos) GetPersonnel(_ context.Context, personnelID string) (*domain.Personnel, error) {
	d, done := r.begin()
	defer done()
	p, ok := d.personnel[personnelID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (r *memoryRepos) ListPersonnel(_ context.Context, filter PersonnelFilter) ([]*domain.Personnel, error) {
	d, done := r.begin()
	defer done()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]*domain.Personnel, 0)
	for _, p := range d.personnel {
		if filter.Site != "" && p.Site != filter.Site {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.FirstName), search) &&
			!strings.Contains(strings.ToLower(p.LastName), search) &&
			!strings.Contains(strings.ToLower(p.EmployeeID), search) {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (r *memoryRepos) CreatePersonnel(_ context.Context, p *domain.Personnel) error {
	d, done := r.begin()
	defer done()
	if _, ok := d.personnel[p.ID]; ok {
		return ErrDuplicate
	}
	if personnelKeyTaken(d, p) {
		return ErrDuplicate
	}
	d.personnel[p.ID] = p.Clone()
	return nil
}

func (r *memoryRepos) UpdatePersonnel(_ context.Context, p *domain.Personnel) error {
	d, done := r.begin()
	defer done()
	if _, ok := d.personnel[p.ID]; !ok {
		return ErrNotFound
	}
	if personnelKeyTaken(d, p) {
		return ErrDuplicate
	}
	c := p.Clone()
	c.UpdatedAt = now()
	d.personnel[p.ID] = c
	return nil
}

func (r *memoryRepos) DeletePersonnel(_ context.Context, personnelID string) error {
	d, done := r.begin()
	defer done()
	if _, ok := d.personnel[personnelID]; !ok {
		return ErrNotFound
	}
	delete(d.personnel, personnelID)
	return nil
}

// personnelKeyTaken mirrors UNIQUE (site, employee_id) and the partial
// UNIQUE (site, passport_number) index.
func personnelKeyTaken(d *memoryData, p *domain.Personnel) bool {
	for id, other := range d.personnel {
		if id == p.ID || other.Site != p.Site {
			continue
		}
		if other.EmployeeID == p.EmployeeID {
			return true
		}
		if p.PassportNumber != "" && other.PassportNumber == p.PassportNumber {
			return true
		}
	}
	return false
}

// ---- attendance ----

func attendanceKey(a *domain.Attendance) string {
	return a.Site + "|" + a.PersonnelID + "|" + a.DateKey
}

func (r *memoryRepos) SaveAttendance(_ context.Context, a *domain.Attendance) error {
	d, done := r.begin()
	defer done()
	key := attendanceKey(a)
	c := *a
	if existing, ok := d.attendance[key]; ok {
		c.ID = existing.ID
		a.ID = existing.ID
	}
	c.UpdatedAt = now()
	a.UpdatedAt = c.UpdatedAt
	d.attendance[key] = &c
	return nil
}

func (r *memoryRepos) ListAttendance(_ context.Context, filter AttendanceFilter) ([]*domain.Attendance, error) {
	d, done := r.begin()
	defer done()
	out := make([]*domain.Attendance, 0)
	for _, a := range d.attendance {
		if filter.Site != "" && a.Site != filter.Site {
			continue
		}
		if filter.PersonnelID != "" && a.PersonnelID != filter.PersonnelID {
			continue
		}
		if filter.From != "" && a.DateKey < filter.From {
			continue
		}
		if filter.To != "" && a.DateKey > filter.To {
			continue
		}
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateKey == out[j].DateKey {
			return out[i].PersonnelID < out[j].PersonnelID
		}
		return out[i].DateKey < out[j].DateKey
	})
	return out, nil
}

func (r *memoryRepos) DeleteAttendanceByPersonnel(_ context.Context, personnelID string) (int, error) {
	d, done := r.begin()
	defer done()
	n := 0
	for k, a := range d.attendance {
		if a.PersonnelID == personnelID {
			delete(d.attendance, k)
			n++
		}
	}
	return n, nil
}

// sortRooms orders rooms by number, numerically when both numbers are integers.
func sortRooms(rooms []*domain.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		return CompareRoomNumbers(rooms[i].Number, rooms[j].Number) < 0
	})
}
