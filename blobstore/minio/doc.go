// Package minio stores celltrack models in MinIO or any other
// S3-compatible service reachable with the minio-go client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	if err != nil { ... }
//	store := miniostore.NewStore(client, "lineages", "embryos")
//	err = m.Save(ctx, store, "embryo-01.ctrk")
//
// Create streams through a multipart upload sized by WithPartSize, so a
// model is never buffered whole. The object becomes visible when Close
// returns; Abort leaves nothing behind.
package minio
