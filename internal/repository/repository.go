package repository

import (
	"context"
	"errors"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert or update hits a unique key.
	ErrDuplicate = errors.New("duplicate key")
	// ErrReferenced is returned when a delete would orphan rows that still point at it.
	ErrReferenced = errors.New("record still referenced")
)

// CampFilter 营地列表过滤
// Email 为空且 All=true 时返回全部（管理员）
type CampFilter struct {
	Email string
	All   bool
}

type RoomFilter struct {
	CampID  string
	Number  string
	Project string
}

type WorkerFilter struct {
	CampID             string
	RoomID             string
	Project            string
	RegistrationNumber string
	Search             string // name, surname or registration number, case-insensitive
}

type PersonnelFilter struct {
	Site   string
	Status string
	Search string
}

type AttendanceFilter struct {
	Site        string
	PersonnelID string
	From        string // inclusive date key
	To          string // inclusive date key
}

type CampsRepository interface {
	GetCamp(ctx context.Context, campID string) (*domain.Camp, error)
	FindCampByShareCode(ctx context.Context, code string) (*domain.Camp, error)
	ListCamps(ctx context.Context, filter CampFilter) ([]*domain.Camp, error)
	CreateCamp(ctx context.Context, camp *domain.Camp) error
	UpdateCamp(ctx context.Context, camp *domain.Camp) error
	DeleteCamp(ctx context.Context, campID string) error
}

type RoomsRepository interface {
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListRooms(ctx context.Context, filter RoomFilter) ([]*domain.Room, error)
	CreateRoom(ctx context.Context, room *domain.Room) error
	UpdateRoom(ctx context.Context, room *domain.Room) error
	DeleteRoom(ctx context.Context, roomID string) error
}

type WorkersRepository interface {
	GetWorker(ctx context.Context, workerID string) (*domain.Worker, error)
	ListWorkers(ctx context.Context, filter WorkerFilter) ([]*domain.Worker, error)
	CreateWorker(ctx context.Context, worker *domain.Worker) error
	UpdateWorker(ctx context.Context, worker *domain.Worker) error
	DeleteWorker(ctx context.Context, workerID string) error
	// DeleteWorkersByRoom removes every worker whose room is roomID and returns how many.
	DeleteWorkersByRoom(ctx context.Context, roomID string) (int, error)
}

type PersonnelRepository interface {
	GetPersonnel(ctx context.Context, personnelID string) (*domain.Personnel, error)
	ListPersonnel(ctx context.Context, filter PersonnelFilter) ([]*domain.Personnel, error)
	CreatePersonnel(ctx context.Context, p *domain.Personnel) error
	UpdatePersonnel(ctx context.Context, p *domain.Personnel) error
	DeletePersonnel(ctx context.Context, personnelID string) error
}

type AttendanceRepository interface {
	// SaveAttendance inserts or replaces the record for (site, personnel, date).
	SaveAttendance(ctx context.Context, a *domain.Attendance) error
	ListAttendance(ctx context.Context, filter AttendanceFilter) ([]*domain.Attendance, error)
	DeleteAttendanceByPersonnel(ctx context.Context, personnelID string) (int, error)
}

// Repos groups the repositories that share one transaction.
type Repos interface {
	Camps() CampsRepository
	Rooms() RoomsRepository
	Workers() WorkersRepository
	Personnel() PersonnelRepository
	Attendance() AttendanceRepository
}

// Store is the persistence service. RunInTx executes fn against repositories bound
// to a single transaction: either every write inside fn is committed or none is.
type Store interface {
	Repos
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
}

func now() time.Time {
	return time.Now().UTC()
}
