package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubState struct {
	ready bool
	qr    string
}

func (s *stubState) Ready() bool    { return s.ready }
func (s *stubState) LastQR() string { return s.qr }

func TestBotState(t *testing.T) {
	tests := []struct {
		name     string
		ready    bool
		expected string
	}{
		{"not ready", false, "not_ready"},
		{"ready", true, "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewBotHandler(&stubState{ready: tt.ready})

			w := httptest.NewRecorder()
			handler.State(w, httptest.NewRequest(http.MethodGet, "/api/bot/state", nil))

			var response map[string]string
			json.Unmarshal(w.Body.Bytes(), &response)
			if response["state"] != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, response["state"])
			}
		})
	}
}

func TestBotQR(t *testing.T) {
	handler := NewBotHandler(&stubState{qr: "qr-data"})

	w := httptest.NewRecorder()
	handler.QR(w, httptest.NewRequest(http.MethodGet, "/api/bot/qr", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["qr"] != "qr-data" {
		t.Errorf("expected qr-data, got %q", response["qr"])
	}
}

func TestBotQRNonePending(t *testing.T) {
	handler := NewBotHandler(&stubState{ready: true})

	w := httptest.NewRecorder()
	handler.QR(w, httptest.NewRequest(http.MethodGet, "/api/bot/qr", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	HealthCheck(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["status"] != "ok" {
		t.Errorf("expected ok, got %q", response["status"])
	}
}
