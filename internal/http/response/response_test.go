package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, map[string]string{"status": "ok"})

	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var env struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
		Error   *ErrorBody        `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Data["status"] != "ok" || env.Error != nil {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestErrorEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	Error(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var env Envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success || env.Error == nil || env.Error.Code != "UNAUTHORIZED" || env.Error.Message != "login required" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{accept: "application/json", want: true},
		{accept: "text/html,application/xhtml+xml,application/json;q=0.9", want: false},
		{accept: "", want: false},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept", tc.accept)
		if got := WantsJSON(req); got != tc.want {
			t.Fatalf("accept %q: expected %v, got %v", tc.accept, tc.want, got)
		}
	}
}

func TestRedirectUsesSeeOther(t *testing.T) {
	rr := httptest.NewRecorder()
	Redirect(rr, httptest.NewRequest(http.MethodPost, "/admin/users", nil), "/admin/users/create")
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/users/create" {
		t.Fatalf("unexpected redirect %d %q", rr.Code, rr.Header().Get("Location"))
	}
}
