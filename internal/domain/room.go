package domain

import (
	"slices"
	"time"
)

// Room 房间（对应 rooms 表）
// AvailableBeds 始终等于 Capacity - len(Workers)
type Room struct {
	ID            string    `json:"id"`
	CampID        string    `json:"campId"`
	Number        string    `json:"number"`
	Capacity      int       `json:"capacity"`
	AvailableBeds int       `json:"availableBeds"`
	Company       string    `json:"company"`
	Project       string    `json:"project"`
	Workers       []string  `json:"workers"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Occupants is the number of workers currently listed in the room.
func (r *Room) Occupants() int {
	return len(r.Workers)
}

func (r *Room) HasWorker(workerID string) bool {
	return slices.Contains(r.Workers, workerID)
}

// AddWorker appends workerID and takes one bed. It is a no-op when the worker is
// already listed.
func (r *Room) AddWorker(workerID string) {
	if r.HasWorker(workerID) {
		return
	}
	r.Workers = append(r.Workers, workerID)
	r.Recount()
}

// RemoveWorker drops workerID and frees its bed. Reports whether it was listed.
func (r *Room) RemoveWorker(workerID string) bool {
	idx := slices.Index(r.Workers, workerID)
	if idx < 0 {
		return false
	}
	r.Workers = slices.Delete(r.Workers, idx, idx+1)
	r.Recount()
	return true
}

// Recount derives AvailableBeds from Capacity and the member list.
func (r *Room) Recount() {
	r.AvailableBeds = r.Capacity - len(r.Workers)
	if r.AvailableBeds < 0 {
		r.AvailableBeds = 0
	}
}

// Consistent reports whether the bed counter matches the member list.
func (r *Room) Consistent() bool {
	return r.AvailableBeds >= 0 && r.AvailableBeds+len(r.Workers) == r.Capacity
}

func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Workers = slices.Clone(r.Workers)
	if c.Workers == nil {
		c.Workers = []string{}
	}
	return &c
}
