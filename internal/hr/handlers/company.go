package handlers

import (
	"net/http"

	"github.com/gartstein/hr/internal/hr/controller"
)

type companyRequest struct {
	Name string `json:"name"`
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	companies, err := h.Companies.ListCompanies(r.Context(), caller(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Companies Retrieved Successfully.", toCompanies(companies))
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := pathID(w, params, "id")
	if !ok {
		return
	}
	company, err := h.Companies.GetCompany(r.Context(), caller(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Company Retrieved Successfully.", toCompany(company))
}

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req companyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON body.", nil)
		return
	}
	company, err := h.Companies.CreateCompany(r.Context(), caller(r), controller.CompanyInput{Name: req.Name})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Company Created Successfully.", toCompany(company))
}

func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := pathID(w, params, "id")
	if !ok {
		return
	}
	var req companyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON body.", nil)
		return
	}
	company, err := h.Companies.UpdateCompany(r.Context(), caller(r), id, controller.CompanyInput{Name: req.Name})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Company Updated Successfully.", toCompany(company))
}

func (h *Handler) deleteCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := pathID(w, params, "id")
	if !ok {
		return
	}
	if err := h.Companies.DeleteCompany(r.Context(), caller(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Company and related Users and Employees deleted successfully.", nil)
}
