package domain

import "time"

const (
	PersonnelActive   = "active"
	PersonnelInactive = "inactive"
)

// Personnel 人员名册（按 site 划分，与营地无关）
type Personnel struct {
	ID             string    `json:"id"`
	Site           string    `json:"site"`
	EmployeeID     string    `json:"employeeId"`
	PassportNumber string    `json:"passportNumber,omitempty"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Position       string    `json:"position"`
	Company        string    `json:"company"`
	Status         string    `json:"status"`
	HireDate       time.Time `json:"hireDate"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (p *Personnel) Clone() *Personnel {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
