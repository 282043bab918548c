package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	user := &models.User{ID: uuid.New(), CompanyID: uuid.New()}
	token, _, err := GenerateToken(user, testSecret, time.Hour)
	require.NoError(t, err)
	expired, _, err := GenerateToken(user, testSecret, time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := HTTPMiddleware(next, testSecret)

	tests := []struct {
		name       string
		method     string
		path       string
		header     string
		wantStatus int
		wantClaims bool
	}{
		{"health is public", http.MethodGet, "/healthz", "", http.StatusNoContent, false},
		{"login is public", http.MethodPost, "/api/auth/login", "", http.StatusNoContent, false},
		{"missing header", http.MethodGet, "/api/employees", "", http.StatusUnauthorized, false},
		{"not bearer", http.MethodGet, "/api/employees", "Basic abc", http.StatusUnauthorized, false},
		{"empty bearer", http.MethodGet, "/api/employees", "Bearer ", http.StatusUnauthorized, false},
		{"expired token", http.MethodGet, "/api/employees", "Bearer " + expired, http.StatusUnauthorized, false},
		{"valid token", http.MethodGet, "/api/employees", "Bearer " + token, http.StatusNoContent, true},
		{"login path with GET is protected", http.MethodGet, "/api/auth/login", "", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantClaims {
				require.NotNil(t, seen)
				assert.Equal(t, user.ID, seen.UserID)
				assert.Equal(t, user.CompanyID, seen.CompanyID)
			} else {
				assert.Nil(t, seen)
			}
			if rec.Code == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
}
