package domain

import (
	"strings"
	"time"
)

// SurnamePlaceholder fills Surname when an imported full name has a single token.
const SurnamePlaceholder = "-"

// Worker 工人（对应 workers 表）
type Worker struct {
	ID                 string    `json:"id"`
	CampID             string    `json:"campId"`
	Name               string    `json:"name"`
	Surname            string    `json:"surname"`
	RegistrationNumber string    `json:"registrationNumber"`
	Project            string    `json:"project"`
	Company            string    `json:"company"`
	RoomID             string    `json:"roomId,omitempty"` // empty when unassigned
	EntryDate          time.Time `json:"entryDate"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (w *Worker) FullName() string {
	if w.Surname == "" || w.Surname == SurnamePlaceholder {
		return w.Name
	}
	return w.Name + " " + w.Surname
}

func (w *Worker) Clone() *Worker {
	if w == nil {
		return nil
	}
	c := *w
	return &c
}

// SplitFullName splits on whitespace: the last token is the surname and the rest
// is the name. A single token becomes the name with SurnamePlaceholder.
func SplitFullName(full string) (name, surname string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], SurnamePlaceholder
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}
