package httpapi

import (
	"net/http"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/directory"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/service"

	"go.uber.org/zap"
)

// PersonnelHandler 人员名册与考勤
type PersonnelHandler struct {
	personnel  service.PersonnelService
	attendance service.AttendanceService
	logger     *zap.Logger
}

func NewPersonnelHandler(personnel service.PersonnelService, attendance service.AttendanceService, logger *zap.Logger) *PersonnelHandler {
	return &PersonnelHandler{personnel: personnel, attendance: attendance, logger: logger}
}

type personnelBody struct {
	Site           *string `json:"site"`
	EmployeeID     *string `json:"employeeId"`
	PassportNumber *string `json:"passportNumber"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	Position       *string `json:"position"`
	Company        *string `json:"company"`
	Status         *string `json:"status"`
	HireDate       *string `json:"hireDate"`
}

func (h *PersonnelHandler) ListPersonnel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.personnel.ListPersonnel(r.Context(), service.ListPersonnelRequest{
		Actor:  directory.FromContext(r.Context()),
		Site:   q.Get("site"),
		Status: q.Get("status"),
		Search: q.Get("search"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *PersonnelHandler) GetPersonnel(w http.ResponseWriter, r *http.Request) {
	resp, err := h.personnel.GetPersonnel(r.Context(), service.GetPersonnelRequest{
		Actor:       directory.FromContext(r.Context()),
		PersonnelID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *PersonnelHandler) CreatePersonnel(w http.ResponseWriter, r *http.Request) {
	var body personnelBody
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	hired, err := parseDate(deref(body.HireDate))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	resp, err := h.personnel.CreatePersonnel(r.Context(), service.CreatePersonnelRequest{
		Actor:          directory.FromContext(r.Context()),
		Site:           deref(body.Site),
		EmployeeID:     deref(body.EmployeeID),
		PassportNumber: deref(body.PassportNumber),
		FirstName:      deref(body.FirstName),
		LastName:       deref(body.LastName),
		Position:       deref(body.Position),
		Company:        deref(body.Company),
		Status:         deref(body.Status),
		HireDate:       hired,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

func (h *PersonnelHandler) UpdatePersonnel(w http.ResponseWriter, r *http.Request) {
	var body personnelBody
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	hired, err := parseDatePtr(body.HireDate)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	resp, err := h.personnel.UpdatePersonnel(r.Context(), service.UpdatePersonnelRequest{
		Actor:          directory.FromContext(r.Context()),
		PersonnelID:    r.PathValue("id"),
		EmployeeID:     body.EmployeeID,
		PassportNumber: body.PassportNumber,
		FirstName:      body.FirstName,
		LastName:       body.LastName,
		Position:       body.Position,
		Company:        body.Company,
		Status:         body.Status,
		HireDate:       hired,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *PersonnelHandler) DeletePersonnel(w http.ResponseWriter, r *http.Request) {
	err := h.personnel.DeletePersonnel(r.Context(), service.GetPersonnelRequest{
		Actor:       directory.FromContext(r.Context()),
		PersonnelID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))
}

// ============================================
// Attendance
// ============================================

func (h *PersonnelHandler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PersonnelID string `json:"personnelId"`
		Date        string `json:"date"`
		Status      string `json:"status"`
		Note        string `json:"note"`
	}
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	resp, err := h.attendance.Record(r.Context(), service.RecordAttendanceRequest{
		Actor:       directory.FromContext(r.Context()),
		PersonnelID: body.PersonnelID,
		Date:        body.Date,
		Status:      body.Status,
		Note:        body.Note,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *PersonnelHandler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.attendance.ListAttendance(r.Context(), service.ListAttendanceRequest{
		Actor:       directory.FromContext(r.Context()),
		Site:        q.Get("site"),
		PersonnelID: q.Get("personnelId"),
		From:        q.Get("from"),
		To:          q.Get("to"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *PersonnelHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.attendance.DailySummary(r.Context(), service.DailySummaryRequest{
		Actor: directory.FromContext(r.Context()),
		Site:  q.Get("site"),
		Date:  q.Get("date"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
