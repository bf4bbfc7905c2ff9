package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/celltrack/blobstore"
)

var errAborted = errors.New("minio: upload aborted")

type blob struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
}

func (b *blob) Size() int64  { return b.size }
func (b *blob) Close() error { return nil }

// get fetches the half-open range [start, end).
func (b *blob) get(ctx context.Context, start, end int64) (*minio.Object, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end-1); err != nil {
		return nil, err
	}
	return b.client.GetObject(ctx, b.bucket, b.key, opts)
}

func (b *blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	start, end, err := blobstore.ClampRange(b.size, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	if start == end {
		return 0, io.EOF
	}
	obj, err := b.get(ctx, start, end)
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	n, err := io.ReadFull(obj, p[:end-start])
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (b *blob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	start, end, err := blobstore.ClampRange(b.size, off, length)
	if err != nil {
		return nil, err
	}
	if start == end {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return b.get(ctx, start, end)
}

type writableBlob struct {
	pw       *io.PipeWriter
	cancel   context.CancelFunc
	done     chan error
	finished atomic.Bool
}

func (w *writableBlob) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Sync is a no-op; data is durable once Close returns.
func (w *writableBlob) Sync() error { return nil }

func (w *writableBlob) Close() error {
	if !w.finished.CompareAndSwap(false, true) {
		return errors.New("minio: blob already closed")
	}
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}

func (w *writableBlob) Abort() error {
	if !w.finished.CompareAndSwap(false, true) {
		return nil
	}
	_ = w.pw.CloseWithError(errAborted)
	w.cancel()
	<-w.done
	return nil
}
