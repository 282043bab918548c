package handlers

import (
	"net/http"

	"github.com/gartstein/hr/internal/hr/controller"
	"github.com/google/uuid"
)

type userRequest struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	CompanyID *uuid.UUID `json:"company_id"`
}

func (req userRequest) input() controller.UserInput {
	return controller.UserInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		CompanyID: req.CompanyID,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	users, err := h.Users.ListUsers(r.Context(), caller(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Users Retrieved Successfully.", toUsers(users))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := pathID(w, params, "id")
	if !ok {
		return
	}
	user, err := h.Users.GetUser(r.Context(), caller(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User Retrieved Successfully.", toUser(user))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON body.", nil)
		return
	}
	user, err := h.Users.CreateUser(r.Context(), caller(r), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "User Created Successfully.", toUser(user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := pathID(w, params, "id")
	if !ok {
		return
	}
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON body.", nil)
		return
	}
	user, err := h.Users.UpdateUser(r.Context(), caller(r), id, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User Updated Successfully.", toUser(user))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := pathID(w, params, "id")
	if !ok {
		return
	}
	if err := h.Users.DeleteUser(r.Context(), caller(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User and related Employees Deleted Successfully.", nil)
}
