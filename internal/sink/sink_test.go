package sink

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

const testToken = "tok-123"

func setupTestRouter(t *testing.T) (http.Handler, *Recorder) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	rec := NewRecorder(10)
	return NewRouter([]string{testToken}, rec, logger), rec
}

// do performs a request against the router with an optional token.
func do(t *testing.T, h http.Handler, method, token, path string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader
	switch p := payload.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(p)
	default:
		b, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Airtake-Token", token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code, w.Body.Bytes()
}

func trackPayload(id string) map[string]any {
	return map[string]any{
		"type":      "track",
		"id":        id,
		"timestamp": 1700000000000,
		"actorId":   "$device:abc",
		"name":      "purchase",
		"props":     map[string]any{"$library": "browser", "plan": "pro"},
	}
}

func TestHealth_ReturnsOK(t *testing.T) {
	h, _ := setupTestRouter(t)
	if s, _ := do(t, h, http.MethodGet, "", "/health", nil); s != http.StatusOK {
		t.Fatalf("health expected 200 got %d", s)
	}
}

func TestEvents_UnauthorizedWithoutToken(t *testing.T) {
	h, rec := setupTestRouter(t)

	for _, token := range []string{"", "wrong"} {
		if s, _ := do(t, h, http.MethodPost, token, "/v1/events", trackPayload("e1")); s != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401 got %d", token, s)
		}
	}
	if n := len(rec.Events()); n != 0 {
		t.Fatalf("unauthorized requests were recorded: %d", n)
	}
}

func TestEvents_BadRequestOnInvalidPayload(t *testing.T) {
	h, _ := setupTestRouter(t)

	noName := trackPayload("e1")
	delete(noName, "name")
	noActor := trackPayload("e2")
	delete(noActor, "actorId")
	badType := trackPayload("e3")
	badType["type"] = "page"
	floatActor := trackPayload("e4")
	floatActor["actorId"] = 4.5

	tests := []struct {
		name    string
		payload any
	}{
		{"malformed json", `{"type": "track",`},
		{"missing name", noName},
		{"missing actor", noActor},
		{"unknown type", badType},
		{"fractional actor", floatActor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s, _ := do(t, h, http.MethodPost, testToken, "/v1/events", tt.payload); s != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", s)
			}
		})
	}
}

func TestEvents_AcceptedAndDuplicate(t *testing.T) {
	h, rec := setupTestRouter(t)

	s, body := do(t, h, http.MethodPost, testToken, "/v1/events", trackPayload("e1"))
	if s != http.StatusAccepted {
		t.Fatalf("first post expected 202 got %d: %s", s, body)
	}
	s, body = do(t, h, http.MethodPost, testToken, "/v1/events", trackPayload("e1"))
	if s != http.StatusOK {
		t.Fatalf("duplicate expected 200 got %d", s)
	}
	var resp EventResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !resp.Duplicate || resp.ID != "e1" {
		t.Fatalf("unexpected duplicate response: %+v", resp)
	}

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 recorded event, got %d", len(events))
	}
	got := events[0]
	if got.Token != testToken {
		t.Fatalf("token = %q", got.Token)
	}
	if got.Event.ActorID.String() != "$device:abc" || got.Event.Props["plan"] != "pro" {
		t.Fatalf("event not decoded: %+v", got.Event)
	}
}

func TestEvents_NumericActorAndIdentify(t *testing.T) {
	h, rec := setupTestRouter(t)

	payload := map[string]any{
		"type":      "identify",
		"id":        "e9",
		"timestamp": 1700000000000,
		"actorId":   42,
		"deviceId":  "$device:abc",
		"props":     map[string]any{},
	}
	if s, body := do(t, h, http.MethodPost, testToken, "/v1/events", payload); s != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", s, body)
	}
	ev := rec.Events()[0].Event
	if !ev.ActorID.IsNumber() || ev.ActorID.String() != "42" {
		t.Fatalf("actor = %v", ev.ActorID)
	}
	if ev.DeviceID != "$device:abc" {
		t.Fatalf("deviceId = %q", ev.DeviceID)
	}
}

func TestStats_CountsByTypeAndName(t *testing.T) {
	h, _ := setupTestRouter(t)

	do(t, h, http.MethodPost, testToken, "/v1/events", trackPayload("a"))
	do(t, h, http.MethodPost, testToken, "/v1/events", trackPayload("b"))
	other := trackPayload("c")
	other["name"] = "signup"
	do(t, h, http.MethodPost, testToken, "/v1/events", other)

	parseCount := func(b []byte) int {
		var r struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(b, &r); err != nil {
			t.Fatalf("invalid stats JSON: %v", err)
		}
		return r.Count
	}

	if s, b := do(t, h, http.MethodGet, testToken, "/v1/stats?type=track&name=purchase", nil); s != http.StatusOK || parseCount(b) != 2 {
		t.Fatalf("purchase count: status %d body %s", s, b)
	}
	if _, b := do(t, h, http.MethodGet, testToken, "/v1/stats?type=track", nil); parseCount(b) != 3 {
		t.Fatalf("track count: %s", b)
	}
	if s, _ := do(t, h, http.MethodGet, testToken, "/v1/stats?type=bogus", nil); s != http.StatusBadRequest {
		t.Fatalf("bogus type expected 400 got %d", s)
	}
}

func TestRecorderEvictsOldest(t *testing.T) {
	rec := NewRecorder(2)
	for _, id := range []string{"a", "b", "c"} {
		ev := Received{}
		ev.Event.ID = id
		rec.Add(ev)
	}
	events := rec.Events()
	if len(events) != 2 || events[0].Event.ID != "b" || events[1].Event.ID != "c" {
		t.Fatalf("unexpected events after eviction: %+v", events)
	}
	// "a" was evicted, so it is new again.
	ev := Received{}
	ev.Event.ID = "a"
	if !rec.Add(ev) {
		t.Fatal("evicted id should be accepted again")
	}
}

func TestListEventsLimit(t *testing.T) {
	h, _ := setupTestRouter(t)
	for _, id := range []string{"a", "b", "c"} {
		do(t, h, http.MethodPost, testToken, "/v1/events", trackPayload(id))
	}

	s, b := do(t, h, http.MethodGet, testToken, "/v1/events?limit=2", nil)
	if s != http.StatusOK {
		t.Fatalf("expected 200 got %d", s)
	}
	var resp struct {
		Events []struct {
			Event struct {
				ID string `json:"id"`
			} `json:"event"`
		} `json:"events"`
	}
	if err := json.Unmarshal(b, &resp); err != nil {
		t.Fatalf("invalid list JSON: %v", err)
	}
	if len(resp.Events) != 2 || resp.Events[1].Event.ID != "c" {
		t.Fatalf("unexpected list: %s", b)
	}
}
