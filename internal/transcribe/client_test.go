package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if header.Filename != "voice.oga" {
			t.Fatalf("unexpected filename: %s", header.Filename)
		}
		_, _ = w.Write([]byte(`{"text":" queria algo de terror \n"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	text, err := c.Transcribe(context.Background(), []byte("audio"), "voice.oga")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "queria algo de terror" {
		t.Fatalf("got %q", text)
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Transcribe(context.Background(), []byte("audio"), "voice.oga"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTranscribe_EmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":""}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	text, err := c.Transcribe(context.Background(), []byte("audio"), "voice.oga")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "" {
		t.Fatalf("got %q, want empty", text)
	}
}
