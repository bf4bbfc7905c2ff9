package minio

import (
	"context"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/celltrack/blobstore"
)

func TestKeys(t *testing.T) {
	s := NewStore(nil, "b", "/lineages/")
	assert.Equal(t, "lineages/a.ctrk", s.key("a.ctrk"))
	assert.Equal(t, "lineages/runs/a.ctrk", s.key("runs/a.ctrk"))

	name, ok := s.name("lineages/runs/a.ctrk")
	assert.True(t, ok)
	assert.Equal(t, "runs/a.ctrk", name)
	_, ok = s.name("lineagesX/a")
	assert.False(t, ok)
	_, ok = s.name("lineages/")
	assert.False(t, ok)

	root := NewStore(nil, "b", "")
	assert.Equal(t, "a.ctrk", root.key("a.ctrk"))
	name, ok = root.name("a.ctrk")
	assert.True(t, ok)
	assert.Equal(t, "a.ctrk", name)
}

func TestOptions(t *testing.T) {
	s := NewStore(nil, "b", "p")
	assert.Equal(t, uint64(DefaultPartSize), s.putOptions().PartSize)
	assert.Equal(t, ContentType, s.putOptions().ContentType)

	s = NewStore(nil, "b", "p", WithPartSize(8<<20), WithUserMetadata(map[string]string{"run": "42"}))
	opts := s.putOptions()
	assert.Equal(t, uint64(8<<20), opts.PartSize)
	assert.Equal(t, "42", opts.UserMetadata["run"])
}

// TestStore_Integration runs against the server named by
// CELLTRACK_MINIO_ENDPOINT (for example localhost:9000).
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("CELLTRACK_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("CELLTRACK_MINIO_ENDPOINT not set")
	}
	user, pass := os.Getenv("MINIO_ROOT_USER"), os.Getenv("MINIO_ROOT_PASSWORD")
	if user == "" {
		user, pass = "minioadmin", "minioadmin"
	}

	client, err := minio.New(endpoint, &minio.Options{Creds: credentials.NewStaticV4(user, pass, "")})
	require.NoError(t, err)

	ctx := context.Background()
	const bucket = "celltrack-test"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "it")
	t.Cleanup(func() {
		names, _ := store.List(ctx, "")
		for _, n := range names {
			_ = store.Delete(ctx, n)
		}
	})

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "runs/a", data))

	b, err := store.Open(ctx, "runs/a")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), b.Size())
	got, err := blobstore.ReadAll(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	rc, err := b.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part := make([]byte, 5)
	_, err = rc.Read(part)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, b.Close())

	w, err := store.Create(ctx, "runs/b")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = store.Create(ctx, "runs/aborted")
	require.NoError(t, err)
	_, err = w.Write([]byte("never"))
	require.NoError(t, err)
	require.NoError(t, blobstore.Abort(w))

	names, err := store.List(ctx, "runs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/a", "runs/b"}, names)

	require.NoError(t, store.Delete(ctx, "runs/a"))
	require.NoError(t, store.Delete(ctx, "runs/a"))
	_, err = store.Open(ctx, "runs/a")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
