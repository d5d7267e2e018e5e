package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/obot-platform/botmaker/internal/logger"
)

func TestRecover(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("template exploded")
	})

	tests := []struct {
		name        string
		development bool
		wantDetails string
	}{
		{"production hides details", false, ""},
		{"development shows details", true, "template exploded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Recover(logger.Nop(), tt.development)(panicky)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/generate-bot", nil))

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", w.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body["error"] != "Internal server error" {
				t.Errorf("error = %q", body["error"])
			}
			if body["details"] != tt.wantDetails {
				t.Errorf("details = %q, want %q", body["details"], tt.wantDetails)
			}
		})
	}
}
