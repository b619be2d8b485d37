package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/precipmeter/precipd/internal/storage"
	"github.com/precipmeter/precipd/internal/storage/mqttstore"
	"github.com/precipmeter/precipd/internal/storage/sqlitedb"
	"github.com/precipmeter/precipd/internal/storage/timescaledb"
	"github.com/precipmeter/precipd/internal/types"
	"github.com/precipmeter/precipd/pkg/config"
)

// StorageManager holds our active storage backends.
type StorageManager struct {
	Engines           []StorageEngine
	RecordDistributor chan types.ArchiveRecord
}

// StorageEngine holds a backend storage engine's interface as well as a
// channel for passing archive records to the engine.
type StorageEngine struct {
	Engine storage.StorageEngineInterface
	C      chan<- types.ArchiveRecord
}

// NewStorageManager creates a StorageManager populated with all configured
// storage engines.
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, cfgData *config.ConfigData) (*StorageManager, error) {
	var err error

	s := StorageManager{}

	s.RecordDistributor = make(chan types.ArchiveRecord, 20)

	// Start our record distributor to fan archive records out to the storage
	// backends.
	go s.startRecordDistributor(ctx, wg)

	if cfgData.Storage.TimescaleDB != nil && cfgData.Storage.TimescaleDB.ConnectionString != "" {
		err = s.AddEngine(ctx, wg, "timescaledb", cfgData)
		if err != nil {
			return &s, fmt.Errorf("could not add TimescaleDB storage backend: %v", err)
		}
	}

	if cfgData.Storage.SQLite != nil && cfgData.Storage.SQLite.Path != "" {
		err = s.AddEngine(ctx, wg, "sqlite", cfgData)
		if err != nil {
			return &s, fmt.Errorf("could not add SQLite storage backend: %v", err)
		}
	}

	if cfgData.Storage.MQTT != nil && cfgData.Storage.MQTT.Broker != "" {
		err = s.AddEngine(ctx, wg, "mqtt", cfgData)
		if err != nil {
			return &s, fmt.Errorf("could not add MQTT storage backend: %v", err)
		}
	}

	return &s, nil
}

// GetRecordDistributor returns the record distributor channel.
func (s *StorageManager) GetRecordDistributor() chan types.ArchiveRecord {
	return s.RecordDistributor
}

// AddEngine adds a new StorageEngine of name engineName to our StorageManager.
func (s *StorageManager) AddEngine(ctx context.Context, wg *sync.WaitGroup, engineName string, cfgData *config.ConfigData) error {
	var err error

	switch engineName {
	case "timescaledb":
		se := StorageEngine{}
		se.Engine, err = timescaledb.New(ctx, cfgData)
		if err != nil {
			return err
		}
		se.C = se.Engine.StartStorageEngine(ctx, wg)
		s.Engines = append(s.Engines, se)
	case "sqlite":
		se := StorageEngine{}
		se.Engine, err = sqlitedb.New(ctx, cfgData)
		if err != nil {
			return err
		}
		se.C = se.Engine.StartStorageEngine(ctx, wg)
		s.Engines = append(s.Engines, se)
	case "mqtt":
		se := StorageEngine{}
		se.Engine, err = mqttstore.New(cfgData)
		if err != nil {
			return err
		}
		se.C = se.Engine.StartStorageEngine(ctx, wg)
		s.Engines = append(s.Engines, se)
	}

	return nil
}

// startRecordDistributor receives archive records from the archiver and fans
// them out to the various storage backends.
func (s *StorageManager) startRecordDistributor(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case r := <-s.RecordDistributor:
			for _, e := range s.Engines {
				e.C <- r
			}
		case <-ctx.Done():
			return
		}
	}
}
