// Package sqlitedb implements the SQLite archive storage backend, the
// single-host counterpart of the TimescaleDB engine.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/precipmeter/precipd/internal/log"
	"github.com/precipmeter/precipd/internal/storage"
	"github.com/precipmeter/precipd/internal/telegram"
	"github.com/precipmeter/precipd/internal/types"
	"github.com/precipmeter/precipd/pkg/config"
	_ "modernc.org/sqlite"
)

// Storage holds the connection to a SQLite archive database.
type Storage struct {
	db      *sql.DB
	columns []telegram.Column
}

// New sets up a new SQLite storage backend and creates the archive table
// from the configured device schema.
func New(ctx context.Context, cfgData *config.ConfigData) (*Storage, error) {
	columns, err := storage.Schema(cfgData)
	if err != nil {
		return nil, err
	}

	path := cfgData.Storage.SQLite.Path
	log.Infof("opening SQLite archive %s...", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open SQLite archive: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to open SQLite archive: %w", err)
	}

	s := &Storage{db: db, columns: columns}

	if _, err := db.ExecContext(ctx, s.createTableSQL()); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create archive table: %w", err)
	}

	return s, nil
}

func (s *Storage) createTableSQL() string {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS ` + storage.ArchiveTable +
		` ("dateTime" INTEGER NOT NULL UNIQUE PRIMARY KEY, "usUnits" INTEGER NOT NULL, "interval" INTEGER NOT NULL`)
	for _, c := range s.columns {
		fmt.Fprintf(&b, `, %q %s`, c.Name, c.SQLType)
	}
	b.WriteString(`)`)
	return b.String()
}

// StartStorageEngine creates a goroutine loop to receive archive records and
// write them to the SQLite archive.
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.ArchiveRecord {
	log.Info("starting SQLite storage engine...")
	recordChan := make(chan types.ArchiveRecord, 10)
	go s.processRecords(ctx, wg, recordChan)
	return recordChan
}

func (s *Storage) processRecords(ctx context.Context, wg *sync.WaitGroup, rchan <-chan types.ArchiveRecord) {
	wg.Add(1)
	defer wg.Done()
	defer s.db.Close()

	for {
		select {
		case r := <-rchan:
			if err := s.StoreRecord(ctx, r); err != nil {
				log.Error("could not store archive record:", err)
			}
		case <-ctx.Done():
			log.Info("cancellation request received. Cancelling record processor.")
			return
		}
	}
}

// StoreRecord stores one archive record. Re-delivered records for the same
// timestamp are ignored.
func (s *Storage) StoreRecord(ctx context.Context, r types.ArchiveRecord) error {
	names := []string{`"dateTime"`, `"usUnits"`, `"interval"`}
	args := []interface{}{r.DateTime.Unix(), storage.MetricWXUnits, r.Interval}

	for _, c := range s.columns {
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

	stmt := fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s) VALUES (%s)`,
		storage.ArchiveTable,
		strings.Join(names, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "))
	_, err := s.db.ExecContext(ctx, stmt, args...)
	return err
}
