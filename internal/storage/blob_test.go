package storage

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestBlobStoreRoundTrip(t *testing.T) {
	bs, err := NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}

	const payload = "not really a png"
	n, err := bs.Write("team-1/img-1_photo.png", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("wrote %d bytes, want %d", n, len(payload))
	}

	r, err := bs.Open("team-1/img-1_photo.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(got) != payload {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestBlobStoreOpenMissing(t *testing.T) {
	bs, err := NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}

	if _, err := bs.Open("team-1/missing.png"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Open missing blob: got %v, want ErrBlobNotFound", err)
	}
}

func TestBlobStoreDelete(t *testing.T) {
	bs, err := NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}

	if _, err := bs.Write("t/a.png", strings.NewReader("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := bs.Delete("t/a.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := bs.Open("t/a.png"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Open after delete: got %v, want ErrBlobNotFound", err)
	}

	// Deleting again is a no-op.
	if err := bs.Delete("t/a.png"); err != nil {
		t.Errorf("Delete missing blob: %v", err)
	}
}

func TestBlobStoreRejectsEscapingPaths(t *testing.T) {
	bs, err := NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}

	for _, p := range []string{"", "../outside.png", "a/../../outside.png", "/etc/passwd"} {
		if _, err := bs.Write(p, strings.NewReader("x")); err == nil {
			t.Errorf("Write(%q): expected error", p)
		}
		if _, err := bs.Open(p); err == nil {
			t.Errorf("Open(%q): expected error", p)
		}
	}
}
