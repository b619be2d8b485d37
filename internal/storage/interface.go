// Package storage defines the interface and shared schema helpers for the
// archive record storage backends.
package storage

import (
	"context"
	"sync"

	"github.com/precipmeter/precipd/internal/types"
)

// StorageEngineInterface is an interface that provides a standardized method
// for the various storage backends to receive archive records.
type StorageEngineInterface interface {
	StartStorageEngine(context.Context, *sync.WaitGroup) chan<- types.ArchiveRecord
}
