// Package config loads celltrack settings from YAML.
//
// A minimal file:
//
//	graph:
//	  dimensions: 3
//	index:
//	  rebuild_threshold: 128
//	  maintenance_interval: 5s
//	storage:
//	  kind: local
//	  path: /var/lib/celltrack
//	log:
//	  level: debug
//	  format: json
//
// Storage kinds are local, memory, minio and s3. The minio kind needs an
// endpoint and a bucket; s3 needs a bucket and otherwise follows the AWS
// default credential chain unless access_key is set.
package config
