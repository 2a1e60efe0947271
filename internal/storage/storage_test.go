package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestNewKey(t *testing.T) {
	now := time.Date(2030, time.March, 4, 10, 0, 0, 0, time.UTC)
	key, err := NewKey("proofs", "image/PNG; charset=binary", now)
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	if !strings.HasPrefix(key, "proofs/2030/03/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q", key)
	}
	if _, err := NewKey("proofs", "text/html", now); !errors.Is(err, ErrUnsupportedContent) {
		t.Fatalf("expected unsupported content type, got %v", err)
	}
}

func TestValidKey(t *testing.T) {
	tests := map[string]bool{
		"proofs/2030/03/a.png": true,
		"":                     false,
		"/etc/passwd":          false,
		"proofs/../secret":     false,
		"proofs//a.png":        false,
		`proofs\a.png`:         false,
	}
	for key, want := range tests {
		if got := ValidKey(key); got != want {
			t.Fatalf("ValidKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	key, err := store.Put(ctx, "image/jpeg", strings.NewReader("jpeg-bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	if _, err := store.Open(ctx, "proofs/2030/01/missing.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.Open(ctx, "../outside"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected traversal to be rejected, got %v", err)
	}
}

func TestLocalStoreRejectsOversize(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	big := bytes.NewReader(make([]byte, MaxProofSize+1))
	if _, err := store.Put(context.Background(), "image/png", big); err == nil {
		t.Fatalf("expected oversize upload to fail")
	}
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	f.types[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Store(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	store := NewS3StoreWithClient(fake, "club-proofs", "uploads")
	ctx := context.Background()

	key, err := store.Put(ctx, "application/pdf", strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(key, "uploads/") {
		t.Fatalf("expected prefix, got %q", key)
	}
	if fake.types[key] != "application/pdf" {
		t.Fatalf("expected content type to be stored, got %q", fake.types[key])
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rc.Close()

	if _, err := store.Open(ctx, "uploads/none.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
