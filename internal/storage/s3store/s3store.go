// Package s3store keeps the storage scope in an S3 compatible bucket
// (AWS S3, MinIO). Values live under <prefix>/keys/<key>. Every write also
// puts a change object under <prefix>/changes/ whose name starts with a
// zero padded sequence number, so listing the prefix yields the feed in order.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrijs2005/planillas/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// API is the part of *s3.Client the store uses.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Options configure the S3 client.
type Options struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	RootUser     string
	RootPassword string
	Prefix       string
}

// seams for tests
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) API {
		return s3.NewFromConfig(cfg, optFns...)
	}
	clock = func() int64 { return time.Now().UnixNano() }
)

const (
	keysDir    = "keys/"
	changesDir = "changes/"
	seqDigits  = 20
)

type changeDoc struct {
	Key     string    `json:"key"`
	Value   []byte    `json:"value"`
	Deleted bool      `json:"deleted"`
	Origin  string    `json:"origin"`
	At      time.Time `json:"at"`
}

type Store struct {
	api    API
	bucket string
	prefix string

	mu      sync.Mutex
	lastSeq int64
	closed  bool
}

// New builds an S3 client with static credentials and a custom endpoint.
func New(ctx context.Context, opts Options) (*Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.RootUser,
			opts.RootPassword,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return NewWithAPI(client, opts.Bucket, opts.Prefix), nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api API, bucket, prefix string) *Store {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Store{api: api, bucket: bucket, prefix: prefix}
}

func (s *Store) valueKey(key string) string { return s.prefix + keysDir + key }

func (s *Store) changesPrefix() string { return s.prefix + changesDir }

func (s *Store) changeKey(seq int64, origin string) string {
	return fmt.Sprintf("%s%0*d-%s", s.changesPrefix(), seqDigits, seq, origin)
}

// startAfter sorts after every change object with the given seq. Origins are
// UUIDs, and '~' sorts after all of their characters.
func (s *Store) startAfter(seq int64) string {
	return fmt.Sprintf("%s%0*d-~", s.changesPrefix(), seqDigits, seq)
}

func (s *Store) parseSeq(objectKey string) (int64, error) {
	name := strings.TrimPrefix(objectKey, s.changesPrefix())
	digits, _, ok := strings.Cut(name, "-")
	if !ok || len(digits) != seqDigits {
		return 0, fmt.Errorf("malformed change object %q", objectKey)
	}
	return strconv.ParseInt(digits, 10, 64)
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

// nextSeq is wall clock based and strictly increasing within the process.
func (s *Store) nextSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := clock()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, fmt.Errorf("failed to get scope[%s]: %w", key, err)
	}

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.valueKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scope[%s]: %w", key, err)
	}
	defer out.Body.Close()

	value, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read scope[%s]: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, origin, key string, value []byte) error {
	if err := s.checkOpen(); err != nil {
		return fmt.Errorf("failed to set scope[%s]: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.valueKey(key)),
		Body:          bytes.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to set scope[%s]: %w", key, err)
	}

	if err := s.record(ctx, changeDoc{Key: key, Value: value, Origin: origin}); err != nil {
		return fmt.Errorf("failed to set scope[%s]: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, origin, key string) error {
	if err := s.checkOpen(); err != nil {
		return fmt.Errorf("failed to delete scope[%s]: %w", key, err)
	}

	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.valueKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete scope[%s]: %w", key, err)
	}

	if err := s.record(ctx, changeDoc{Key: key, Deleted: true, Origin: origin}); err != nil {
		return fmt.Errorf("failed to delete scope[%s]: %w", key, err)
	}
	return nil
}

func (s *Store) record(ctx context.Context, doc changeDoc) error {
	seq := s.nextSeq()
	doc.At = time.Unix(0, seq).UTC()

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.changeKey(seq, doc.Origin)),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("record change: %w", err)
	}
	return nil
}

func (s *Store) Changes(ctx context.Context, after int64, limit int) ([]storage.Change, error) {
	if err := s.checkOpen(); err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}

	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket:     aws.String(s.bucket),
		Prefix:     aws.String(s.changesPrefix()),
		StartAfter: aws.String(s.startAfter(after)),
	})

	var out []storage.Change
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list changes: %w", err)
		}

		for _, obj := range page.Contents {
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
			c, err := s.readChange(ctx, aws.ToString(obj.Key))
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) readChange(ctx context.Context, objectKey string) (storage.Change, error) {
	seq, err := s.parseSeq(objectKey)
	if err != nil {
		return storage.Change{}, fmt.Errorf("failed to scan change: %w", err)
	}

	obj, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return storage.Change{}, fmt.Errorf("failed to read change %d: %w", seq, err)
	}
	defer obj.Body.Close()

	var doc changeDoc
	if err := json.NewDecoder(obj.Body).Decode(&doc); err != nil {
		return storage.Change{}, fmt.Errorf("failed to decode change %d: %w", seq, err)
	}

	return storage.Change{
		Seq:     seq,
		Key:     doc.Key,
		Value:   doc.Value,
		Deleted: doc.Deleted,
		Origin:  doc.Origin,
		At:      doc.At,
	}, nil
}

func (s *Store) LatestSeq(ctx context.Context) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, fmt.Errorf("failed to read latest change: %w", err)
	}

	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.changesPrefix()),
	})

	var last string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to read latest change: %w", err)
		}
		if n := len(page.Contents); n > 0 {
			last = aws.ToString(page.Contents[n-1].Key)
		}
	}
	if last == "" {
		return 0, nil
	}

	seq, err := s.parseSeq(last)
	if err != nil {
		return 0, fmt.Errorf("failed to read latest change: %w", err)
	}
	return seq, nil
}

// Close marks the store closed. The SDK client holds no resources to free.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
