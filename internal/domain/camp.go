package domain

import (
	"slices"
	"strings"
	"time"
)

// Permission 共享权限
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

func (p Permission) Valid() bool {
	return p == PermissionRead || p == PermissionWrite
}

// Allows reports whether p grants need.
func (p Permission) Allows(need Permission) bool {
	switch p {
	case PermissionWrite:
		return need == PermissionRead || need == PermissionWrite
	case PermissionRead:
		return need == PermissionRead
	}
	return false
}

type Share struct {
	Email      string     `json:"email"`
	Permission Permission `json:"permission"`
}

type ShareCodes struct {
	Read  string `json:"read"`
	Write string `json:"write"`
}

// Camp 营地（租户级别）
type Camp struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	OwnerEmail  string     `json:"userEmail"`
	SharedWith  []Share    `json:"sharedWith"`
	ShareCodes  ShareCodes `json:"shareCodes"`
	Rooms       []string   `json:"rooms"`
	IsPublic    bool       `json:"isPublic"`
	PublicSites []string   `json:"publicSites"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AccessFor returns the strongest permission id holds on the camp and whether it
// holds any at all.
func (c *Camp) AccessFor(id Identity) (Permission, bool) {
	if id.IsAdmin() || strings.EqualFold(c.OwnerEmail, id.Email) {
		return PermissionWrite, true
	}
	for _, s := range c.SharedWith {
		if strings.EqualFold(s.Email, id.Email) {
			return s.Permission, true
		}
	}
	if c.IsPublic {
		return PermissionRead, true
	}
	return "", false
}

// IsMember reports whether id is the owner, an admin or in SharedWith.
func (c *Camp) IsMember(id Identity) bool {
	if id.IsAdmin() || strings.EqualFold(c.OwnerEmail, id.Email) {
		return true
	}
	return slices.ContainsFunc(c.SharedWith, func(s Share) bool {
		return strings.EqualFold(s.Email, id.Email)
	})
}

// SetShare adds or replaces the entry for email.
func (c *Camp) SetShare(email string, p Permission) {
	for i := range c.SharedWith {
		if strings.EqualFold(c.SharedWith[i].Email, email) {
			c.SharedWith[i].Permission = p
			return
		}
	}
	c.SharedWith = append(c.SharedWith, Share{Email: email, Permission: p})
}

func (c *Camp) RemoveShare(email string) bool {
	idx := slices.IndexFunc(c.SharedWith, func(s Share) bool {
		return strings.EqualFold(s.Email, email)
	})
	if idx < 0 {
		return false
	}
	c.SharedWith = slices.Delete(c.SharedWith, idx, idx+1)
	return true
}

func (c *Camp) AddRoom(roomID string) {
	if !slices.Contains(c.Rooms, roomID) {
		c.Rooms = append(c.Rooms, roomID)
	}
}

func (c *Camp) RemoveRoom(roomID string) {
	c.Rooms = slices.DeleteFunc(c.Rooms, func(id string) bool { return id == roomID })
}

func (c *Camp) Clone() *Camp {
	if c == nil {
		return nil
	}
	cp := *c
	cp.SharedWith = slices.Clone(c.SharedWith)
	cp.Rooms = slices.Clone(c.Rooms)
	cp.PublicSites = slices.Clone(c.PublicSites)
	if cp.SharedWith == nil {
		cp.SharedWith = []Share{}
	}
	if cp.Rooms == nil {
		cp.Rooms = []string{}
	}
	if cp.PublicSites == nil {
		cp.PublicSites = []string{}
	}
	return &cp
}
