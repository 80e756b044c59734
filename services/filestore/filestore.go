// Package filestore implements core.FileStore on minio (S3 compatible) and on the local disk.
package filestore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
)

// New returns the FileStore selected by conf.Storage.Backend.
func New(ctx context.Context, conf *core.Config) (core.FileStore, error) {
	switch conf.Storage.Backend {
	case "minio":
		return NewMinioStore(ctx, conf)
	case "disk", "":
		return NewDiskStore(conf.Storage.DiskRoot)
	}
	return nil, errors.Errorf("unknown storage backend %q", conf.Storage.Backend)
}
