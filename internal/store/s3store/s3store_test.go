package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"fishingchat/internal/game"
	"fishingchat/internal/store"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestLoadMissingObjectIsEmpty(t *testing.T) {
	b := New(newFakeS3(), "bucket", "")
	doc, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Inventories) != 0 || len(doc.UserGold) != 0 {
		t.Fatalf("doc = %+v, want empty", doc)
	}
}

func TestUpsertRewritesWholeDocument(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	b := New(api, "bucket", "db.json")
	if _, err := b.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := b.Upsert(ctx, "10.0.0.1", store.Record{Inventory: game.Inventory{"mackerel": 2}, Gold: 5}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := b.Upsert(ctx, "10.0.0.2", store.Record{Inventory: game.Inventory{}, Gold: 7}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if api.puts != 2 {
		t.Fatalf("puts = %d, want 2", api.puts)
	}

	var doc store.Document
	if err := json.Unmarshal(api.objects["bucket/db.json"], &doc); err != nil {
		t.Fatalf("decode object: %v", err)
	}
	if doc.Inventories["10.0.0.1"]["mackerel"] != 2 || doc.UserGold["10.0.0.2"] != 7 {
		t.Fatalf("object = %+v", doc)
	}

	// Um processo novo lê o mesmo objeto.
	reloaded, err := New(api, "bucket", "db.json").Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.UserGold["10.0.0.1"] != 5 || reloaded.Inventories["10.0.0.2"] == nil {
		t.Fatalf("reloaded = %+v", reloaded)
	}
}
