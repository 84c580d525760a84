// Package s3store implementa store.Backend com um único objeto S3 (ou MinIO)
// que guarda o documento inteiro, reescrito a cada upsert como o db.json.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"fishingchat/internal/store"
)

// ObjectAPI é o pedaço do cliente S3 que o backend usa.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Config são os parâmetros de conexão.
type Config struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string // opcional, para MinIO
	PathStyle bool
}

// Backend guarda o documento em Bucket/Key.
type Backend struct {
	api    ObjectAPI
	bucket string
	key    string

	mu  sync.Mutex
	doc store.Document
}

var _ store.Backend = (*Backend)(nil)

// Open cria o cliente S3 com a cadeia padrão de credenciais da AWS.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store requires a bucket")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client, cfg.Bucket, cfg.Key), nil
}

// New monta o backend sobre um cliente já pronto (os testes passam um fake).
func New(api ObjectAPI, bucket, key string) *Backend {
	if key == "" {
		key = "fishingchat/db.json"
	}
	return &Backend{api: api, bucket: bucket, key: key, doc: store.NewDocument()}
}

func (b *Backend) Load(ctx context.Context) (store.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{Bucket: &b.bucket, Key: &b.key})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			b.doc = store.NewDocument()
			return store.NewDocument(), nil
		}
		return store.Document{}, fmt.Errorf("get s3://%s/%s: %w", b.bucket, b.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return store.Document{}, fmt.Errorf("read s3 object: %w", err)
	}
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return store.Document{}, fmt.Errorf("decode s3 object: %w", err)
	}
	doc.Normalize()
	b.doc = doc

	return doc.Copy(), nil
}

func (b *Backend) Upsert(ctx context.Context, id store.Identity, rec store.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.doc.Set(id, rec)
	data, err := json.MarshalIndent(b.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &b.bucket,
		Key:         &b.key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", b.bucket, b.key, err)
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	_, err := b.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &b.bucket})
	return err
}

func (b *Backend) Close() error { return nil }
