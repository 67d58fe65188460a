package fileserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func uploadRequest(t *testing.T, filename string, content []byte) (*httptest.ResponseRecorder, *Service, []byte) {
	t.Helper()
	svc := New(t.TempDir(), 1<<20)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	r := httptest.NewRequest("POST", "/api/uploads", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	svc.Upload(w, r)
	return w, svc, content
}

func TestUploadAndServe(t *testing.T) {
	content := append(append([]byte{}, pngHeader...), []byte("fake image payload")...)
	w, svc, _ := uploadRequest(t, "плакат осень.png", content)

	if w.Code != 200 {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}
	var resp UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp.URL, "/api/uploads/") || !strings.HasSuffix(resp.URL, ".png") {
		t.Errorf("url = %q", resp.URL)
	}
	if resp.ContentType != "image" {
		t.Errorf("content_type = %q, want image", resp.ContentType)
	}
	if resp.FileName != "плакат осень.png" {
		t.Errorf("file_name = %q", resp.FileName)
	}

	stored := strings.TrimPrefix(resp.URL, "/api/uploads/")
	sw := httptest.NewRecorder()
	sr := httptest.NewRequest("GET", resp.URL, nil)
	svc.Serve(sw, sr, stored)
	if sw.Code != 200 {
		t.Fatalf("serve status = %d", sw.Code)
	}
	if !bytes.Equal(sw.Body.Bytes(), content) {
		t.Error("served bytes differ from uploaded")
	}
	if ct := sw.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content-type = %q", ct)
	}
	if cc := sw.Header().Get("Cache-Control"); !strings.Contains(cc, "immutable") {
		t.Errorf("cache-control = %q", cc)
	}
}

func TestUploadRejectsDisallowedExt(t *testing.T) {
	w, _, _ := uploadRequest(t, "malware.exe", []byte("MZ..."))
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUploadRejectsMagicMismatch(t *testing.T) {
	// Расширение .png, содержимое — не PNG.
	w, _, _ := uploadRequest(t, "notreally.png", []byte("plain text pretending"))
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestServeUnknownFile(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/uploads/nope.png", nil)
	svc.Serve(w, r, "nope.png")
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestServeEscapesPath(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/uploads/x", nil)
	svc.Serve(w, r, "../../etc/passwd")
	if w.Code != 404 {
		t.Errorf("path traversal: status = %d, want 404", w.Code)
	}
}
