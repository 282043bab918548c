package handlers

import "net/http"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON body.", nil)
		return
	}
	token, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Login Successful.", token)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	token, err := h.Auth.Refresh(r.Context(), caller(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Token Refreshed Successfully.", token)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	user, err := h.Auth.Me(r.Context(), caller(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User Retrieved Successfully.", toUser(user))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := h.Auth.Logout(r.Context(), caller(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
