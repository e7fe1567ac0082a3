package artifact

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves the handful of path-style S3 calls MinIOStore makes.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
	calls   []string
}

func newFakeS3(buckets ...string) *fakeS3 {
	f := &fakeS3{
		buckets: make(map[string]bool),
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	return f
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.Trim(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	f.calls = append(f.calls, r.Method+" "+path)

	switch {
	case key == "" && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodPut:
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case key != "" && r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[path] = data
		f.types[path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeS3) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T, fake *fakeS3) *MinIOStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewMinIOStore(Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "bkt",
		Region:    "us-east-1",
	}, slog.Default())
	require.NoError(t, err)
	return s
}

func TestKey(t *testing.T) {
	assert.Equal(t, "runs/abc/scatter.png", Key("abc", "scatter.png"))
	assert.Equal(t, "runs/abc/result.json", Key("abc", "result.json"))
}

func TestMinIOStore_Put(t *testing.T) {
	fake := newFakeS3("bkt")
	s := newTestStore(t, fake)

	require.NoError(t, s.Put(context.Background(), Key("abc", "result.json"), ContentTypeJSON, []byte(`{"ok":true}`)))
	require.NoError(t, s.Put(context.Background(), Key("abc", "scatter.png"), ContentTypePNG, []byte("png")))

	fake.mu.Lock()
	// Signed uploads may frame the payload; the bytes are still present.
	assert.Contains(t, string(fake.objects["bkt/runs/abc/result.json"]), `{"ok":true}`)
	assert.Equal(t, ContentTypePNG, fake.types["bkt/runs/abc/scatter.png"])
	fake.mu.Unlock()

	assert.Equal(t, 1, fake.count("HEAD bkt"), "bucket checked once")
}

func TestMinIOStore_CreatesMissingBucket(t *testing.T) {
	fake := newFakeS3()
	s := newTestStore(t, fake)

	require.NoError(t, s.Put(context.Background(), Key("abc", "result.json"), ContentTypeJSON, []byte("{}")))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.True(t, fake.buckets["bkt"])
	assert.Contains(t, fake.objects, "bkt/runs/abc/result.json")
}

func TestMinIOStore_RetriesBucketCheckAfterFailure(t *testing.T) {
	fake := newFakeS3("bkt")
	s := newTestStore(t, fake)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Put(canceled, Key("abc", "result.json"), ContentTypeJSON, []byte("{}"))
	require.Error(t, err)

	require.NoError(t, s.Put(context.Background(), Key("abc", "result.json"), ContentTypeJSON, []byte("{}")))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.objects, "bkt/runs/abc/result.json")
}

func TestNopStore(t *testing.T) {
	var s Store = NopStore{}
	assert.NoError(t, s.Put(context.Background(), Key("abc", "result.json"), ContentTypeJSON, []byte("{}")))
}
