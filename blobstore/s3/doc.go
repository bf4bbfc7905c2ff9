// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion("us-east-1"))
//	client := s3.NewFromConfig(cfg)
//	store := s3blob.NewStore(client, "my-bucket", "lineages/")
//
//	err = model.Save(ctx, store, "embryo-01.ctrk")
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large graphs
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
