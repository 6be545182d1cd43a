package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
	"github.com/sandeepkv93/edupro-device-guard/internal/security"
	"github.com/sandeepkv93/edupro-device-guard/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

type stubRegistrar struct {
	gotUser   string
	gotCourse string
	gotRC     service.RequestContext
	err       error
}

func (s *stubRegistrar) RegisterDevice(_ context.Context, userID, courseID string, rc service.RequestContext) (*domain.DeviceRecord, error) {
	s.gotUser, s.gotCourse, s.gotRC = userID, courseID, rc
	if s.err != nil {
		return nil, s.err
	}
	return &domain.DeviceRecord{ID: 7, UserID: userID, CourseID: courseID}, nil
}

func serveGuarded(t *testing.T, reg *stubRegistrar, next http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			claims := &security.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "student-1"}}
			ctx := context.WithValue(req.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.With(DeviceGuard(reg)).Get("/courses/{course_id}/access", next)

	req := httptest.NewRequest(http.MethodGet, "/courses/go-101/access", nil)
	req.RemoteAddr = "203.0.113.9:4444"
	req.Header.Set("User-Agent", "ua")
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestDeviceGuardPassesRegisteredDevice(t *testing.T) {
	reg := &stubRegistrar{}
	rr := serveGuarded(t, reg, func(w http.ResponseWriter, r *http.Request) {
		rec, ok := DeviceFromContext(r.Context())
		if !ok || rec.ID != 7 {
			t.Fatalf("device record missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	want := service.RequestContext{UserAgent: "ua", AcceptLanguage: "en", AcceptEncoding: "gzip", IPAddress: "203.0.113.9"}
	if reg.gotUser != "student-1" || reg.gotCourse != "go-101" || reg.gotRC != want {
		t.Fatalf("unexpected registration call: %s %s %+v", reg.gotUser, reg.gotCourse, reg.gotRC)
	}
}

func TestDeviceGuardBlocksSharedDevice(t *testing.T) {
	reg := &stubRegistrar{err: &service.DeviceSharingError{CourseID: "go-101", ConflictingAccounts: 2, CaseID: "case-1"}}
	rr := serveGuarded(t, reg, func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run for a shared device")
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	var body struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]int `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "DEVICE_SHARING_DETECTED" || body.Error.Message != "access blocked due to suspected device sharing" {
		t.Fatalf("unexpected error body: %+v", body.Error)
	}
	if body.Error.Details["conflicting_accounts"] != 2 {
		t.Fatalf("unexpected details: %+v", body.Error.Details)
	}
}

func TestDeviceGuardStoreFailureIs500(t *testing.T) {
	reg := &stubRegistrar{err: errors.New("db down")}
	rr := serveGuarded(t, reg, func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run on failure")
	})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
