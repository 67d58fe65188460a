package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, 404, "Новость не найдена")

	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content-type = %q", ct)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Error != "Новость не найдена" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/news?limit=25&bad=xyz", nil)
	if got := queryInt(r, "limit", 50); got != 25 {
		t.Errorf("limit = %d, want 25", got)
	}
	if got := queryInt(r, "bad", 50); got != 50 {
		t.Errorf("bad value = %d, want fallback 50", got)
	}
	if got := queryInt(r, "missing", 50); got != 50 {
		t.Errorf("missing = %d, want fallback 50", got)
	}
}

func TestMaskKeyToken(t *testing.T) {
	if got := maskKeyToken("abcdefghijklmnop"); got != "abcd...mnop" {
		t.Errorf("maskKeyToken long = %q", got)
	}
	if got := maskKeyToken("short"); got != "********" {
		t.Errorf("maskKeyToken short = %q", got)
	}
}
