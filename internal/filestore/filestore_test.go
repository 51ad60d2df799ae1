package filestore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/api/option"
)

func TestSplitURI(t *testing.T) {
	tests := []struct {
		uri, scheme, ref string
	}{
		{"gs://bucket/a/b.xlsx", "gs", "bucket/a/b.xlsx"},
		{"DRIVE://abc123", "drive", "abc123"},
		{"mem://id", "mem", "id"},
		{"/tmp/dre.csv", "file", "/tmp/dre.csv"},
		{"file:///tmp/dre.csv", "file", "/tmp/dre.csv"},
		{"relative/dre.xls", "file", "relative/dre.xls"},
	}
	for _, tt := range tests {
		scheme, ref := SplitURI(tt.uri)
		if scheme != tt.scheme || ref != tt.ref {
			t.Errorf("SplitURI(%q) = %q, %q; want %q, %q", tt.uri, scheme, ref, tt.scheme, tt.ref)
		}
	}
}

func TestFetcher_Local(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dre.csv")
	if err := os.WriteFile(path, []byte("Tipo;Valor\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewFetcher()

	got, err := f.Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}
	if got.Name != "dre.csv" || string(got.Data) != "Tipo;Valor\n" {
		t.Errorf("Fetch() = %+v", got)
	}

	_, err = f.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFetcher_UnsupportedScheme(t *testing.T) {
	_, err := NewFetcher().Fetch(context.Background(), "s3://bucket/key")
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("Fetch() error = %v, want ErrUnsupportedScheme", err)
	}
}

func TestMemory(t *testing.T) {
	mem := NewMemory()
	f := NewFetcher(WithSource("mem", mem))

	data := []byte("x")
	uri := mem.Put(File{Name: "a.csv", ContentType: "text/csv", Data: data})
	data[0] = 'y'

	got, err := f.Fetch(context.Background(), uri)
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}
	if diff := cmp.Diff(File{Name: "a.csv", ContentType: "text/csv", Data: []byte("x")}, got); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}

	mem.Delete(uri)
	if _, err := f.Fetch(context.Background(), uri); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestSplitObject(t *testing.T) {
	b, o, err := SplitObject("bucket/dir/file.xlsx")
	if err != nil || b != "bucket" || o != "dir/file.xlsx" {
		t.Errorf("SplitObject() = %q, %q, %v", b, o, err)
	}
	for _, bad := range []string{"bucket", "bucket/", "/object"} {
		if _, _, err := SplitObject(bad); err == nil {
			t.Errorf("SplitObject(%q) expected error", bad)
		}
	}
}

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 3, 15, 23, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	tests := []struct {
		prefix, name, want string
	}{
		{"uploads", "dre.xlsx", "uploads/2024/03/16/id-dre.xlsx"},
		{"/uploads/", `C:\tmp\dre.csv`, "uploads/2024/03/16/id-dre.csv"},
		{"", "", "2024/03/16/id-upload"},
	}
	for _, tt := range tests {
		if got := ObjectName(tt.prefix, tt.name, at, "id"); got != tt.want {
			t.Errorf("ObjectName(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestDrive_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files/sheet" && r.URL.Query().Get("alt") != "media":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"sheet","name":"DRE 2024","mimeType":"` + GoogleSheetMIME + `"}`))
		case r.URL.Path == "/files/sheet/export":
			if r.URL.Query().Get("mimeType") != XLSXMIME {
				http.Error(w, "bad export type", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte("xlsx-bytes"))
		case r.URL.Path == "/files/plain" && r.URL.Query().Get("alt") == "media":
			_, _ = w.Write([]byte("csv-bytes"))
		case r.URL.Path == "/files/plain":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"plain","name":"dre.csv","mimeType":"text/csv"}`))
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	d, err := NewDrive(ctx, "", option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewDrive() unexpected error: %v", err)
	}
	f := NewFetcher(WithSource("drive", d))

	got, err := f.Fetch(ctx, "drive://sheet")
	if err != nil {
		t.Fatalf("Fetch(sheet) unexpected error: %v", err)
	}
	if diff := cmp.Diff(File{Name: "DRE 2024.xlsx", ContentType: XLSXMIME, Data: []byte("xlsx-bytes")}, got); diff != "" {
		t.Errorf("Fetch(sheet) mismatch (-want +got):\n%s", diff)
	}

	got, err = f.Fetch(ctx, "drive://plain")
	if err != nil {
		t.Fatalf("Fetch(plain) unexpected error: %v", err)
	}
	if diff := cmp.Diff(File{Name: "dre.csv", ContentType: "text/csv", Data: []byte("csv-bytes")}, got); diff != "" {
		t.Errorf("Fetch(plain) mismatch (-want +got):\n%s", diff)
	}

	if _, err := f.Fetch(ctx, "drive://missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch(missing) error = %v, want ErrNotFound", err)
	}
}
