package upstream

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// encodeTestPNG renders a solid-color image and returns it PNG-encoded.
func encodeTestPNG(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

func asUpstream(t *testing.T, err error) *UpstreamError {
	t.Helper()
	var uerr *UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("got %v (%T), want *UpstreamError", err, err)
	}
	return uerr
}

func TestRemoveBG_Success(t *testing.T) {
	src := encodeTestPNG(t, 20, 20, color.RGBA{10, 20, 30, 255})
	cutout := encodeTestPNG(t, 20, 20, color.RGBA{10, 20, 30, 128})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/removebg" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "rb-key" {
			t.Errorf("X-Api-Key: got %q", r.Header.Get("X-Api-Key"))
		}
		file, hdr, err := r.FormFile("image_file")
		if err != nil {
			t.Errorf("image_file: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		defer file.Close()
		got, _ := io.ReadAll(file)
		if !bytes.Equal(got, src) {
			t.Error("uploaded bytes differ from source")
		}
		if hdr.Filename != "image.png" {
			t.Errorf("filename: got %s", hdr.Filename)
		}
		if r.FormValue("size") != "auto" {
			t.Errorf("size: got %q", r.FormValue("size"))
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(cutout)
	}))
	defer srv.Close()

	rb := NewRemoveBG(RemoveBGConfig{APIKey: "rb-key", BaseURL: srv.URL})
	out, err := rb.RemoveBackground(context.Background(), Image{Data: src, MimeType: "image/png"})
	if err != nil {
		t.Fatalf("RemoveBackground: %v", err)
	}
	if out.MimeType != "image/png" {
		t.Errorf("MimeType: got %s", out.MimeType)
	}
	if !bytes.Equal(out.Data, cutout) {
		t.Error("result bytes differ from service response")
	}
}

func TestRemoveBG_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"errors":[{"title":"Insufficient credits","code":"insufficient_credits"}]}`)
	}))
	defer srv.Close()

	rb := NewRemoveBG(RemoveBGConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := rb.RemoveBackground(context.Background(), Image{Data: []byte("x"), MimeType: "image/png"})

	uerr := asUpstream(t, err)
	if uerr.Service != ServiceRemoveBG || uerr.Kind != KindStatus {
		t.Errorf("got service %s kind %s", uerr.Service, uerr.Kind)
	}
	if uerr.Status != http.StatusPaymentRequired {
		t.Errorf("Status: got %d", uerr.Status)
	}
	if uerr.Code != "insufficient_credits" || uerr.Message != "Insufficient credits" {
		t.Errorf("Code/Message: got %q / %q", uerr.Code, uerr.Message)
	}
	if !strings.Contains(uerr.Error(), "402") {
		t.Errorf("Error() should mention status: %s", uerr.Error())
	}
}

func TestRemoveBG_NotAnImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	rb := NewRemoveBG(RemoveBGConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := rb.RemoveBackground(context.Background(), Image{Data: []byte("x"), MimeType: "image/png"})
	if uerr := asUpstream(t, err); uerr.Kind != KindResponse {
		t.Errorf("Kind: got %s, want %s", uerr.Kind, KindResponse)
	}
}

func TestRemoveBG_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	rb := NewRemoveBG(RemoveBGConfig{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := rb.RemoveBackground(context.Background(), Image{Data: []byte("x"), MimeType: "image/png"})
	if uerr := asUpstream(t, err); uerr.Kind != KindTimeout {
		t.Errorf("Kind: got %s, want %s", uerr.Kind, KindTimeout)
	}
}

func TestFreeImage_Success(t *testing.T) {
	src := encodeTestPNG(t, 4, 4, color.White)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
			return
		}
		if r.PostForm.Get("key") != "fi-key" || r.PostForm.Get("action") != "upload" {
			t.Errorf("form: %v", r.PostForm)
		}
		raw, err := base64.StdEncoding.DecodeString(r.PostForm.Get("source"))
		if err != nil || !bytes.Equal(raw, src) {
			t.Errorf("source does not round-trip: %v", err)
		}
		fmt.Fprint(w, `{"status_code":200,"status_txt":"OK","image":{"url":"https://iili.io/abc.png","display_url":"https://iili.io/abc.md.png","url_viewer":"https://freeimage.host/i/abc"}}`)
	}))
	defer srv.Close()

	fi := NewFreeImage(FreeImageConfig{APIKey: "fi-key", BaseURL: srv.URL + "/"})
	hosted, err := fi.Upload(context.Background(), Image{Data: src, MimeType: "image/png"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if hosted.URL != "https://iili.io/abc.png" {
		t.Errorf("URL: got %s", hosted.URL)
	}
	if hosted.ViewerURL != "https://freeimage.host/i/abc" {
		t.Errorf("ViewerURL: got %s", hosted.ViewerURL)
	}
}

func TestFreeImage_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   Kind
		wantStatus int
		wantCode   string
	}{
		{"http error", http.StatusBadRequest, `{"status_code":400,"error":{"message":"Invalid API v1 key.","code":100},"status_txt":"Bad Request"}`, KindStatus, 400, "100"},
		{"embedded status", http.StatusOK, `{"status_code":403,"status_txt":"Forbidden"}`, KindStatus, 403, ""},
		{"missing url", http.StatusOK, `{"status_code":200,"image":{"url":""}}`, KindResponse, 0, ""},
		{"bad url", http.StatusOK, `{"status_code":200,"image":{"url":"not a url"}}`, KindResponse, 0, ""},
		{"not json", http.StatusOK, `<html>`, KindResponse, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			fi := NewFreeImage(FreeImageConfig{APIKey: "k", BaseURL: srv.URL})
			_, err := fi.Upload(context.Background(), Image{Data: []byte("x"), MimeType: "image/png"})
			uerr := asUpstream(t, err)
			if uerr.Kind != tt.wantKind {
				t.Errorf("Kind: got %s, want %s", uerr.Kind, tt.wantKind)
			}
			if tt.wantStatus != 0 && uerr.Status != tt.wantStatus {
				t.Errorf("Status: got %d, want %d", uerr.Status, tt.wantStatus)
			}
			if uerr.Code != tt.wantCode {
				t.Errorf("Code: got %q, want %q", uerr.Code, tt.wantCode)
			}
		})
	}
}

func TestHTTPFetcher(t *testing.T) {
	img := encodeTestPNG(t, 12, 12, color.Black)

	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("User-Agent: got %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/fake.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("not really a png"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := &HTTPFetcher{}

	got, err := f.Fetch(context.Background(), srv.URL+"/ok.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.MimeType != "image/png" || !bytes.Equal(got.Data, img) {
		t.Errorf("unexpected image: %s, %d bytes", got.MimeType, len(got.Data))
	}

	tests := []struct {
		name     string
		path     string
		wantKind Kind
	}{
		{"missing", "/missing.png", KindStatus},
		{"html", "/page", KindResponse},
		{"corrupt", "/fake.png", KindResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), srv.URL+tt.path)
			uerr := asUpstream(t, err)
			if uerr.Service != ServiceDownload || uerr.Kind != tt.wantKind {
				t.Errorf("got %s/%s, want %s/%s", uerr.Service, uerr.Kind, ServiceDownload, tt.wantKind)
			}
		})
	}

	if _, err := f.Fetch(context.Background(), "ftp://example.com/a.png"); err == nil {
		t.Error("expected error for non-http URL")
	}
}

func TestHTTPFetcher_TooLarge(t *testing.T) {
	img := encodeTestPNG(t, 64, 64, color.White)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	defer srv.Close()

	f := &HTTPFetcher{MaxBytes: len(img) - 1}
	_, err := f.Fetch(context.Background(), srv.URL)
	if uerr := asUpstream(t, err); uerr.Kind != KindResponse {
		t.Errorf("Kind: got %s, want %s", uerr.Kind, KindResponse)
	}
}

func TestWellFormedURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://iili.io/abc.png", true},
		{"http://localhost:8080/x", true},
		{"ftp://example.com/x", false},
		{"/just/a/path", false},
		{"https://", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := WellFormedURL(tt.in); got != tt.want {
			t.Errorf("WellFormedURL(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUpstreamError_Error(t *testing.T) {
	tests := []struct {
		err  *UpstreamError
		want string
	}{
		{&UpstreamError{Service: "gemini", Kind: KindStatus, Status: 429, Code: "RESOURCE_EXHAUSTED", Message: "quota"}, "gemini: status 429 (RESOURCE_EXHAUSTED): quota"},
		{&UpstreamError{Service: "removebg", Kind: KindTimeout, Err: context.DeadlineExceeded}, "removebg: timeout: context deadline exceeded"},
		{&UpstreamError{Service: "freeimage", Kind: KindResponse, Message: "no url"}, "freeimage: response: no url"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}
