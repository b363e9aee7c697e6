package store

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sketchcourse/api/internal/model"
)

// fakeStorage keeps JSON documents in memory, mirroring how the object
// storage client distinguishes a missing key from a real failure.
type fakeStorage struct {
	docs map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{docs: map[string][]byte{}}
}

func (f *fakeStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	return "https://storage.test/" + key, nil
}

func (f *fakeStorage) UploadFile(ctx context.Context, localPath, key, contentType string) (string, error) {
	return "https://storage.test/" + key, nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	delete(f.docs, key)
	return nil
}

func (f *fakeStorage) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://storage.test/" + key + "?signed=1", nil
}

func (f *fakeStorage) PutJSON(ctx context.Context, key string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	f.docs[key] = data
	return nil
}

func (f *fakeStorage) GetJSON(ctx context.Context, key string, doc interface{}) (bool, error) {
	data, ok := f.docs[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, doc)
}

func TestObjectStore_RoundTrip(t *testing.T) {
	storage := newFakeStorage()
	s := NewObjectStore(storage)
	ctx := context.Background()

	p := &model.Project{
		ID:        "p-1",
		Status:    model.ProjectStatusProcessing,
		Step:      model.StepRendering,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, ok := storage.docs["projects/p-1/status.json"]; !ok {
		t.Fatal("status document not written under projects/<id>/status.json")
	}

	got, found, err := s.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Fatal("expected project to be found")
	}
	if got.Status != model.ProjectStatusProcessing || got.Step != model.StepRendering {
		t.Errorf("unexpected snapshot: %+v", got)
	}
}

func TestObjectStore_UnknownID(t *testing.T) {
	s := NewObjectStore(newFakeStorage())

	p, found, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found || p != nil {
		t.Errorf("expected not found, got %+v", p)
	}
}

func TestLocalStore_RoundTrip(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	ctx := context.Background()

	p := &model.Project{
		ID:        "p-1",
		Status:    model.ProjectStatusProcessing,
		Step:      model.StepScripting,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, found, err := s.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Fatal("expected project to be found")
	}
	if got.Status != model.ProjectStatusProcessing || got.Step != model.StepScripting {
		t.Errorf("unexpected snapshot: %+v", got)
	}
}

func TestLocalStore_UnknownID(t *testing.T) {
	s := NewLocalStore(t.TempDir())

	p, found, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found || p != nil {
		t.Errorf("expected not found, got %+v", p)
	}
}

func TestLocalStore_Overwrite(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	ctx := context.Background()

	errMsg := "sketch generation failed"
	if err := s.Save(ctx, &model.Project{ID: "p-2", Status: model.ProjectStatusQueued}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.Save(ctx, &model.Project{ID: "p-2", Status: model.ProjectStatusFailed, Error: &errMsg}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, _, err := s.Get(ctx, "p-2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != model.ProjectStatusFailed || got.Error == nil || *got.Error != errMsg {
		t.Errorf("unexpected snapshot: %+v", got)
	}
}
