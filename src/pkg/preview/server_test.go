package preview

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"synth-ocr/src/pkg/augment"
	"synth-ocr/src/pkg/background"
	echomw "synth-ocr/src/pkg/echo-middleware"
	"synth-ocr/src/pkg/fonts"
	"synth-ocr/src/pkg/render"
)

const testToken = "secret-token"

func newTestServer(t *testing.T, mutate func(o *Options)) *Server {
	t.Helper()
	dir := t.TempDir()
	for name, data := range map[string][]byte{"GoRegular.ttf": goregular.TTF, "GoBold.ttf": gobold.TTF} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	catalog, e := fonts.Discover(dir)
	if e != nil {
		t.Fatalf("discover: %v", e)
	}

	opts := Options{
		Server:       echomw.DefaultValueConfig(),
		Token:        testToken,
		Background:   background.DefaultValueConfig(),
		Augmentation: augment.DefaultValueConfig(),
	}
	opts.Server.RequireToken = true
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts, catalog, render.New(render.DefaultValueConfig()))
}

func get(s *Server, target string, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func previewURL(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return "/api/preview?" + q.Encode()
}

func TestHealthNeedsNoToken(t *testing.T) {
	s := newTestServer(t, nil)
	rec := get(s, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: got %d", rec.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := get(s, "/api/fonts", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: got %d", rec.Code)
	}
	if rec := get(s, "/api/fonts", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: got %d", rec.Code)
	}
}

func TestAPIOpenWithoutRequireToken(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.Server.RequireToken = false })
	if rec := get(s, "/api/fonts", ""); rec.Code != http.StatusOK {
		t.Fatalf("fonts: got %d", rec.Code)
	}
}

func TestListFonts(t *testing.T) {
	s := newTestServer(t, nil)
	rec := get(s, "/api/fonts", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("fonts: got %d", rec.Code)
	}
	var list []fontInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("fonts: %+v", list)
	}
	// Sorted by file name: GoBold before GoRegular.
	if list[0].Code != "f01" || list[0].File != "GoBold.ttf" || list[0].Style != fonts.Bold {
		t.Fatalf("first font: %+v", list[0])
	}
}

func TestPreviewReturnsPNG(t *testing.T) {
	s := newTestServer(t, nil)
	rec := get(s, previewURL(map[string]string{"text": "Hello 42", "font": "f02", "background": "true", "intensity": "heavy"}), testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type: %q", ct)
	}
	if rec.Header().Get("X-Font") != "f02" {
		t.Fatalf("font header: %q", rec.Header().Get("X-Font"))
	}
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Fatalf("empty image")
	}
}

func TestPreviewIsDeterministicPerSeed(t *testing.T) {
	s := newTestServer(t, nil)
	params := map[string]string{"text": "same seed", "background": "true", "augment": "true", "seed": "7"}
	a := get(s, previewURL(params), testToken)
	b := get(s, previewURL(params), testToken)
	if a.Code != http.StatusOK || b.Code != http.StatusOK {
		t.Fatalf("codes: %d %d", a.Code, b.Code)
	}
	if !bytes.Equal(a.Body.Bytes(), b.Body.Bytes()) {
		t.Fatalf("same seed returned different images")
	}
	if a.Header().Get("X-Transforms") != b.Header().Get("X-Transforms") {
		t.Fatalf("same seed applied different transforms")
	}
}

func TestPreviewRejectsBadInput(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.Server.MaxTextLength = 10 })

	tests := []struct {
		name   string
		params map[string]string
		want   int
	}{
		{"missing text", map[string]string{}, http.StatusBadRequest},
		{"too long", map[string]string{"text": "far too long for the limit"}, http.StatusBadRequest},
		{"bad font", map[string]string{"text": "ok", "font": "x"}, http.StatusBadRequest},
		{"unknown font", map[string]string{"text": "ok", "font": "9"}, http.StatusNotFound},
		{"bad intensity", map[string]string{"text": "ok", "intensity": "extreme"}, http.StatusBadRequest},
		{"bad flag", map[string]string{"text": "ok", "augment": "maybe"}, http.StatusBadRequest},
		{"bad seed", map[string]string{"text": "ok", "seed": "-1"}, http.StatusBadRequest},
		{"missing glyph", map[string]string{"text": "中文"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(s, previewURL(tt.params), testToken)
			if rec.Code != tt.want {
				t.Fatalf("got %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(o *Options) {
		o.Server.MiddlewareRateLimit = 1
		o.Server.MiddlewareBurst = 1
	})
	if rec := get(s, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("first: got %d", rec.Code)
	}
	if rec := get(s, "/healthz", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: got %d", rec.Code)
	}
}
