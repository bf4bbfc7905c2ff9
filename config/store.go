package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	miniogo "github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/celltrack/blobstore"
	"github.com/hupe1980/celltrack/blobstore/minio"
	"github.com/hupe1980/celltrack/blobstore/s3"
)

// OpenStore connects the blob store selected by Storage. Remote backends
// are not probed; the first request reports unreachable endpoints.
func (c *Config) OpenStore(ctx context.Context) (blobstore.BlobStore, error) {
	sc := c.Storage
	switch sc.Kind {
	case StorageMemory:
		return blobstore.NewMemoryStore(), nil
	case StorageLocal:
		return blobstore.NewLocalStore(sc.Path), nil
	case StorageMinio:
		client, err := miniogo.New(sc.Endpoint, &miniogo.Options{
			Creds:  miniocreds.NewStaticV4(sc.AccessKey, sc.SecretKey, ""),
			Secure: sc.Secure,
			Region: sc.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return minio.NewStore(client, sc.Bucket, sc.Prefix), nil
	case StorageS3:
		var loadOpts []func(*awsconfig.LoadOptions) error
		if sc.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(sc.Region))
		}
		if sc.AccessKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(sc.AccessKey, sc.SecretKey, ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if sc.Endpoint != "" {
				o.BaseEndpoint = aws.String(sc.Endpoint)
			}
			o.UsePathStyle = sc.PathStyle
		})
		return s3.NewStore(client, sc.Bucket, sc.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown storage kind %q", sc.Kind)
	}
}
