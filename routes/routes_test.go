package routes

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pixshift/config"
	"pixshift/credentials"
	"pixshift/models"
	"pixshift/store"
	"pixshift/utils"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestHandlers(t *testing.T, secret string) *Handlers {
	t.Helper()
	dataDir := t.TempDir()
	t.Setenv("PIXSHIFT_DATA_DIR", dataDir)

	db, err := store.Open(filepath.Join(dataDir, "settings.db"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.DataDir = dataDir
	cfg.TokenSecret = secret
	return NewHandlers(cfg, store.NewSettingsStore(db))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = httptest.NewRequest(method, target, bytes.NewReader(raw))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestHealthAndVersion(t *testing.T) {
	mux := newTestHandlers(t, "").Routes()

	rec := do(t, mux, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var health HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil || health.Status != "healthy" {
		t.Errorf("Unexpected health response %+v (%v)", health, err)
	}

	if rec := do(t, mux, http.MethodPost, "/health", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
	if rec := do(t, mux, http.MethodGet, "/version", nil); rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestFilesAndConvert(t *testing.T) {
	h := newTestHandlers(t, "")
	mux := h.Routes()

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "pic.png")
	if err := os.WriteFile(src, pngBytes(t), 0644); err != nil {
		t.Fatal(err)
	}

	rec := do(t, mux, http.MethodPost, "/files", AddFilesRequest{Paths: []string{src, filepath.Join(srcDir, "missing.png")}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var added AddFilesResponse
	json.NewDecoder(rec.Body).Decode(&added)
	if len(added.Added) != 1 || len(added.Rejected) != 1 {
		t.Fatalf("Unexpected add response %+v", added)
	}
	id := added.Added[0].ID

	if rec := do(t, mux, http.MethodPost, "/files", AddFilesRequest{Paths: []string{src}}); rec.Code != http.StatusBadRequest {
		t.Errorf("Duplicate add should be rejected, got %d", rec.Code)
	}

	outDir := t.TempDir()
	rec = do(t, mux, http.MethodPost, "/convert", map[string]any{"target_format": "png", "output_dir": outDir})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp ConvertResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Results) != 1 || resp.Results[0].SavedPath != filepath.Join(outDir, "pic.png") {
		t.Fatalf("Unexpected convert response %+v", resp)
	}

	rec = do(t, mux, http.MethodGet, "/files/"+id, nil)
	var info models.JobInfo
	json.NewDecoder(rec.Body).Decode(&info)
	if !info.Converted || info.SavedPath != resp.Results[0].SavedPath {
		t.Errorf("Expected file marked converted, got %+v", info)
	}

	if rec := do(t, mux, http.MethodPost, "/convert", nil); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 with nothing to convert, got %d", rec.Code)
	}

	rec = do(t, mux, http.MethodPost, "/files/clear-converted", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"removed":1`) {
		t.Errorf("Unexpected clear-converted response %d %s", rec.Code, rec.Body)
	}
	if rec := do(t, mux, http.MethodDelete, "/files/"+id, nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for removed file, got %d", rec.Code)
	}
}

func TestMultipartUpload(t *testing.T) {
	h := newTestHandlers(t, "")
	mux := h.Routes()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "../../upload.png")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(pngBytes(t))
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/files", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, r)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body)
	}

	list := h.Registry.List()
	if len(list) != 1 || list[0].Name != "upload.png" {
		t.Fatalf("Unexpected registry %+v", list)
	}
	if !strings.HasPrefix(list[0].SourcePath, config.GetUploadDir()) {
		t.Errorf("Expected upload under %s, got %s", config.GetUploadDir(), list[0].SourcePath)
	}

	if rec := do(t, mux, http.MethodDelete, "/files", nil); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if h.Registry.Len() != 0 {
		t.Error("Expected registry to be cleared")
	}
}

func TestSettingsEndpoint(t *testing.T) {
	mux := newTestHandlers(t, "").Routes()

	rec := do(t, mux, http.MethodGet, "/settings", nil)
	var st store.Settings
	json.NewDecoder(rec.Body).Decode(&st)
	if st.TargetFormat != "webp" {
		t.Errorf("Expected default target webp, got %q", st.TargetFormat)
	}

	if rec := do(t, mux, http.MethodPut, "/settings", map[string]any{"target_format": "avif", "avif_speed": 9}); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	rec = do(t, mux, http.MethodGet, "/settings", nil)
	json.NewDecoder(rec.Body).Decode(&st)
	if st.TargetFormat != "avif" || st.AVIFSpeed != 9 || st.SubfolderName != "converted" {
		t.Errorf("Unexpected saved settings %+v", st)
	}

	if rec := do(t, mux, http.MethodPut, "/settings", map[string]any{"avif_speed": 42}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid speed, got %d", rec.Code)
	}
}

func TestCredentialsEndpoint(t *testing.T) {
	h := newTestHandlers(t, "")
	if err := credentials.OpenDB(filepath.Join(h.Config.DataDir, "credentials.db")); err != nil {
		t.Fatal(err)
	}
	defer credentials.CloseDB()
	mux := h.Routes()

	rec := do(t, mux, http.MethodPost, "/credentials", credentials.Record{Type: "local", Values: map[string]string{"baseDir": t.TempDir()}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var out map[string]string
	json.NewDecoder(rec.Body).Decode(&out)
	if len(out["access_key"]) != utils.RNSLength {
		t.Errorf("Unexpected key %q", out["access_key"])
	}

	if rec := do(t, mux, http.MethodPost, "/credentials", credentials.Record{Type: "s3"}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for incomplete credentials, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	mux := newTestHandlers(t, string(testSecret)).Routes()
	now := time.Now().Unix()
	full, _ := utils.CreateToken(&models.APIClaims{Subject: "admin", IssuedAt: now, ExpiresAt: now + 60}, testSecret)
	readOnly, _ := utils.CreateToken(&models.APIClaims{Subject: "viewer", IssuedAt: now, ExpiresAt: now + 60, ReadOnly: true}, testSecret)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"missing token", http.MethodGet, "/files", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/files", "nope", http.StatusUnauthorized},
		{"valid token", http.MethodGet, "/files", full, http.StatusOK},
		{"read-only list", http.MethodGet, "/files", readOnly, http.StatusOK},
		{"read-only mutate", http.MethodDelete, "/files", readOnly, http.StatusForbidden},
		{"full mutate", http.MethodDelete, "/files", full, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				r.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestEventsStream(t *testing.T) {
	h := newTestHandlers(t, "")
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /events failed: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	// wait for the connection comment so the subscription is registered
	if line, err := reader.ReadString('\n'); err != nil || !strings.HasPrefix(line, ":") {
		t.Fatalf("Unexpected first line %q (%v)", line, err)
	}

	h.Events.Publish(models.ProgressEvent{JobID: "j1", JobName: "a.png", Status: models.StatusCompleted})

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("Stream ended: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev models.ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("Bad event payload %q: %v", line, err)
		}
		if ev.JobID != "j1" || ev.Status != models.StatusCompleted {
			t.Errorf("Unexpected event %+v", ev)
		}
		return
	}
}

func TestMultipartUploadRejectsNonImage(t *testing.T) {
	h := newTestHandlers(t, "")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "notes.png")
	fw.Write([]byte("these are not pixels"))
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/files", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported file type") {
		t.Errorf("Unexpected body %s", rec.Body)
	}
	if h.Registry.Len() != 0 {
		t.Error("Nothing should be registered")
	}
}
