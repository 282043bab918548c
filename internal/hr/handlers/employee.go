package handlers

import (
	"net/http"

	"github.com/gartstein/hr/internal/hr/controller"
)

type employeeRequest struct {
	Responsibility string `json:"responsibility"`
	AdmissionAt    string `json:"admission_at"`
	Phone          string `json:"phone"`
	UserID         string `json:"user_id"`
}

func (req employeeRequest) input() controller.EmployeeInput {
	return controller.EmployeeInput{
		Responsibility: req.Responsibility,
		AdmissionAt:    req.AdmissionAt,
		Phone:          req.Phone,
		UserID:         req.UserID,
	}
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()
	employees, err := h.Employees.ListEmployees(r.Context(), caller(r), controller.EmployeeQuery{
		Responsibility: q.Get("responsibility"),
		AdmissionAt:    q.Get("admission_at"),
		Phone:          q.Get("phone"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Employees Retrieved Successfully.", toEmployees(employees))
}

func (h *Handler) getEmployee(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := pathID(w, params, "id")
	if !ok {
		return
	}
	employee, err := h.Employees.GetEmployee(r.Context(), caller(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Employee Retrieved Successfully.", toEmployee(employee))
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON body.", nil)
		return
	}
	employee, err := h.Employees.CreateEmployee(r.Context(), caller(r), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Employee Created Successfully.", toEmployee(employee))
}

func (h *Handler) updateEmployee(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := pathID(w, params, "id")
	if !ok {
		return
	}
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON body.", nil)
		return
	}
	employee, err := h.Employees.UpdateEmployee(r.Context(), caller(r), id, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Employee Updated Successfully.", toEmployee(employee))
}

func (h *Handler) deleteEmployee(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := pathID(w, params, "id")
	if !ok {
		return
	}
	if err := h.Employees.DeleteEmployee(r.Context(), caller(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Employee Deleted Successfully.", nil)
}
