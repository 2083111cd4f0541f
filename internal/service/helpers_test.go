package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"quotadrop/internal/domain"
	"quotadrop/internal/repository"
)

var errS3Down = errors.New("s3 is down")

// fakeArtifacts — хранилище артефактов в памяти, считает подписи
type fakeArtifacts struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	signs   int
	failPut int // номер вызова Put, который завершится ошибкой
	signErr error
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{objects: make(map[string][]byte)}
}

func (f *fakeArtifacts) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.puts++
	if f.failPut > 0 && f.puts == f.failPut {
		return "", errS3Down
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return key, nil
}

func (f *fakeArtifacts) SignURL(ctx context.Context, locator string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.signErr != nil {
		return "", f.signErr
	}
	f.signs++
	return fmt.Sprintf("https://signed.example/%s?ttl=%s&n=%d", locator, ttl, f.signs), nil
}

func (f *fakeArtifacts) signCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signs
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// faultyStore подменяет ConditionalReplace для выбранного вида записей
type faultyStore struct {
	repository.RecordStore
	mu          sync.Mutex
	replaceErr  map[string]error
	replaceHits map[string]int
}

func newFaultyStore(inner repository.RecordStore) *faultyStore {
	return &faultyStore{
		RecordStore: inner,
		replaceErr:  make(map[string]error),
		replaceHits: make(map[string]int),
	}
}

func (s *faultyStore) failReplace(kind string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceErr[kind] = err
}

func (s *faultyStore) ConditionalReplace(ctx context.Context, kind, id string, body []byte, expected int64) (int64, error) {
	s.mu.Lock()
	err := s.replaceErr[kind]
	s.replaceHits[kind]++
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}
	return s.RecordStore.ConditionalReplace(ctx, kind, id, body, expected)
}

func (s *faultyStore) hits(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceHits[kind]
}

type testEnv struct {
	store      *faultyStore
	ledger     *repository.Ledger
	artifacts  *fakeArtifacts
	clock      *fakeClock
	ingestion  *IngestionService
	resolution *ResolutionService
	redemption *RedemptionService
	reconciler *Reconciler
}

func newTestEnv(t *testing.T, maxAttempts int) *testEnv {
	t.Helper()

	store := newFaultyStore(repository.NewMemoryStore())
	ledger := repository.NewLedger(store)
	artifacts := newFakeArtifacts()
	clock := newFakeClock()
	urls := NewURLCache(artifacts, 0, 15*time.Minute, 0)

	return &testEnv{
		store:      store,
		ledger:     ledger,
		artifacts:  artifacts,
		clock:      clock,
		ingestion:  NewIngestionService(ledger, artifacts, clock),
		resolution: NewResolutionService(ledger),
		redemption: NewRedemptionService(ledger, urls, clock, maxAttempts, DefaultMirrorAttempts),
		reconciler: NewReconciler(ledger, time.Hour, DefaultMirrorAttempts),
	}
}

// upload загружает файлы с указанными именами и возвращает ссылку
func (e *testEnv) upload(t *testing.T, limit int, ttl time.Duration, names ...string) *domain.LinkRecord {
	t.Helper()

	uploads := make([]domain.Upload, 0, len(names))
	for _, name := range names {
		data := []byte("content of " + name)
		uploads = append(uploads, domain.Upload{
			Name:        name,
			ContentType: "text/plain",
			Size:        int64(len(data)),
			Body:        bytes.NewReader(data),
		})
	}

	link, err := e.ingestion.Upload(context.Background(), uploads, UploadOptions{Limit: limit, TTL: ttl})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return link
}

func (e *testEnv) file(t *testing.T, id string) *domain.FileRecord {
	t.Helper()

	file, err := e.ledger.GetFile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetFile(%s): %v", id, err)
	}
	return file
}

func (e *testEnv) link(t *testing.T, id string) *domain.LinkRecord {
	t.Helper()

	link, err := e.ledger.GetLink(context.Background(), id)
	if err != nil {
		t.Fatalf("GetLink(%s): %v", id, err)
	}
	return link
}
