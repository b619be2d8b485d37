// Package timescaledb implements the TimescaleDB archive storage backend.
package timescaledb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/precipmeter/precipd/internal/log"
	"github.com/precipmeter/precipd/internal/storage"
	"github.com/precipmeter/precipd/internal/telegram"
	"github.com/precipmeter/precipd/internal/types"
	"github.com/precipmeter/precipd/pkg/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	createExtensionSQL  = `CREATE EXTENSION IF NOT EXISTS timescaledb;`
	createHypertableSQL = `SELECT create_hypertable('archive', 'dateTime', chunk_time_interval => 2592000, if_not_exists => TRUE, migrate_data => TRUE);`
)

// Storage holds the connection to a TimescaleDB archive backend.
type Storage struct {
	db      *gorm.DB
	columns []telegram.Column
}

// New sets up a new TimescaleDB storage backend: it connects, creates the
// archive table from the configured device schema and turns it into a
// hypertable.
func New(ctx context.Context, cfgData *config.ConfigData) (*Storage, error) {
	columns, err := storage.Schema(cfgData)
	if err != nil {
		return nil, err
	}

	dbLogger := gormlogger.New(
		zap.NewStdLog(log.GetZapLogger()),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Warn,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(cfgData.Storage.TimescaleDB.ConnectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("unable to create a TimescaleDB connection: %w", err)
	}

	t := &Storage{db: db, columns: columns}

	log.Info("creating archive table...")
	if err := db.WithContext(ctx).Exec(t.createTableSQL()).Error; err != nil {
		return nil, fmt.Errorf("could not create archive table: %w", err)
	}

	log.Info("creating TimescaleDB extension...")
	if err := db.WithContext(ctx).Exec(createExtensionSQL).Error; err != nil {
		return nil, fmt.Errorf("could not create TimescaleDB extension: %w", err)
	}

	log.Info("creating hypertable...")
	if err := db.WithContext(ctx).Exec(createHypertableSQL).Error; err != nil {
		return nil, fmt.Errorf("could not create hypertable: %w", err)
	}

	return t, nil
}

// createTableSQL builds the archive DDL from the device schema. Column names
// are quoted: observation names are camelCase.
func (t *Storage) createTableSQL() string {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS ` + storage.ArchiveTable + ` ("dateTime" BIGINT NOT NULL, "usUnits" INTEGER NOT NULL, "interval" INTEGER NOT NULL`)
	for _, c := range t.columns {
		sqlType := c.SQLType
		// Postgres has no unsized VARCHAR synonyms worth special-casing, but
		// REAL maps better to double precision for sensor values.
		if sqlType == "REAL" {
			sqlType = "DOUBLE PRECISION"
		}
		fmt.Fprintf(&b, `, %q %s`, c.Name, sqlType)
	}
	b.WriteString(`);`)
	return b.String()
}

// StartStorageEngine creates a goroutine loop to receive archive records and
// send them off to TimescaleDB.
func (t *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.ArchiveRecord {
	log.Info("starting TimescaleDB storage engine...")
	recordChan := make(chan types.ArchiveRecord, 10)
	go t.processRecords(ctx, wg, recordChan)
	return recordChan
}

func (t *Storage) processRecords(ctx context.Context, wg *sync.WaitGroup, rchan <-chan types.ArchiveRecord) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case r := <-rchan:
			if err := t.StoreRecord(ctx, r); err != nil {
				log.Error("could not store archive record:", err)
			}
		case <-ctx.Done():
			log.Info("cancellation request received. Cancelling record processor.")
			return
		}
	}
}

// StoreRecord stores one archive record in TimescaleDB.
func (t *Storage) StoreRecord(ctx context.Context, r types.ArchiveRecord) error {
	names := []string{`"dateTime"`, `"usUnits"`, `"interval"`}
	args := []interface{}{r.DateTime.Unix(), storage.MetricWXUnits, r.Interval}

	for _, c := range t.columns {
		obs, ok := r.Observations[c.Name]
		if !ok {
			continue
		}
		names = append(names, fmt.Sprintf("%q", c.Name))
		if obs.IsText {
			args = append(args, obs.Text)
		} else {
			args = append(args, obs.Value)
		}
	}

	sql := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING`,
		storage.ArchiveTable,
		strings.Join(names, ", "),
		placeholders(len(names)))
	return t.db.WithContext(ctx).Exec(sql, args...).Error
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
