package domain

// RoomStats is one room's derived occupancy.
type RoomStats struct {
	RoomID        string  `json:"roomId"`
	Number        string  `json:"number"`
	Project       string  `json:"project"`
	Capacity      int     `json:"capacity"`
	Workers       int     `json:"workers"`
	AvailableBeds int     `json:"availableBeds"`
	OccupancyRate float64 `json:"occupancyRate"`
}

// SiteStats aggregates the rooms of one site (project).
type SiteStats struct {
	Site                string  `json:"site"`
	TotalRooms          int     `json:"totalRooms"`
	TotalCapacity       int     `json:"totalCapacity"`
	TotalWorkers        int     `json:"totalWorkers"`
	AvailableBeds       int     `json:"availableBeds"`
	OccupancyRate       float64 `json:"occupancyRate"`
	SameProjectWorkers  int     `json:"sameProjectWorkers"`
	CrossProjectWorkers int     `json:"crossProjectWorkers"`
}

// OccupancyReport 占用统计（每次从 rooms/workers 重新计算，不落库）
type OccupancyReport struct {
	CampID            string      `json:"campId"`
	Sites             []string    `json:"sites"`
	TotalRooms        int         `json:"totalRooms"`
	TotalCapacity     int         `json:"totalCapacity"`
	TotalWorkers      int         `json:"totalWorkers"`
	AvailableBeds     int         `json:"availableBeds"`
	OccupancyRate     float64     `json:"occupancyRate"`
	UnassignedWorkers int         `json:"unassignedWorkers"`
	BySite            []SiteStats `json:"bySite"`
	MostOccupiedRoom  *RoomStats  `json:"mostOccupiedRoom"`
	LeastOccupiedRoom *RoomStats  `json:"leastOccupiedRoom"`
}

// ConsistencyIssue describes one broken room/worker invariant.
type ConsistencyIssue struct {
	RoomID   string `json:"roomId,omitempty"`
	WorkerID string `json:"workerId,omitempty"`
	Problem  string `json:"problem"`
}

type ConsistencyReport struct {
	CampID  string             `json:"campId"`
	Rooms   int                `json:"rooms"`
	Workers int                `json:"workers"`
	Issues  []ConsistencyIssue `json:"issues"`
}

func (r *ConsistencyReport) OK() bool {
	return len(r.Issues) == 0
}

// ImportResult accumulates per-row outcomes of a bulk import.
type ImportResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}
