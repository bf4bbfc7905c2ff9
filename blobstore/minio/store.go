package minio

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/celltrack/blobstore"
)

// DefaultPartSize is the multipart chunk used by Create. Streaming uploads
// have no known length, and minio-go would otherwise size parts for the
// 5 TiB object limit and buffer each one in memory.
const DefaultPartSize = 16 << 20

// ContentType is attached to every object the store writes.
const ContentType = "application/vnd.celltrack.model"

// Option configures a Store.
type Option func(*Store)

// WithPartSize sets the multipart chunk size for Create. minio-go rejects
// parts below 5 MiB.
func WithPartSize(n uint64) Option {
	return func(s *Store) {
		s.partSize = n
	}
}

// WithUserMetadata attaches x-amz-meta-* headers to every written object.
func WithUserMetadata(md map[string]string) Option {
	return func(s *Store) {
		s.metadata = md
	}
}

var _ blobstore.BlobStore = (*Store)(nil)

// Store keeps blobs as objects below a key prefix of one bucket.
type Store struct {
	client   *minio.Client
	bucket   string
	prefix   string
	partSize uint64
	metadata map[string]string
}

// NewStore returns a store rooted at rootPrefix in bucket.
func NewStore(client *minio.Client, bucket, rootPrefix string, opts ...Option) *Store {
	s := &Store{
		client:   client,
		bucket:   bucket,
		prefix:   strings.Trim(rootPrefix, "/"),
		partSize: DefaultPartSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return strings.TrimPrefix(name, "/")
	}
	return path.Join(s.prefix, name)
}

// name maps an object key back to a blob name, reporting false for keys
// outside the root prefix.
func (s *Store) name(key string) (string, bool) {
	if s.prefix == "" {
		return key, key != ""
	}
	rest, ok := strings.CutPrefix(key, s.prefix+"/")
	return rest, ok && rest != ""
}

func (s *Store) putOptions() minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType:  ContentType,
		UserMetadata: s.metadata,
		PartSize:     s.partSize,
	}
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// Open stats the object and returns a ranged-read handle.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return &blob{client: s.client, bucket: s.bucket, key: key, size: info.Size}, nil
}

// Put uploads data in a single request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), s.putOptions())
	return err
}

// Create streams writes into a multipart upload that completes on Close.
// Abort cancels the upload, leaving no object behind.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(ctx)

	w := &writableBlob{pw: pw, cancel: cancel, done: make(chan error, 1)}
	go func() {
		defer cancel()
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, s.putOptions())
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

// Delete removes the object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns the sorted names below prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	full := prefix
	if s.prefix != "" {
		full = s.prefix + "/" + prefix
	}

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: full, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if name, ok := s.name(obj.Key); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
