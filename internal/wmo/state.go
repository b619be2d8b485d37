package wmo

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// State persists the present-weather history of one device: completed spans
// go to a small SQLite database, the open span list is snapshotted to a JSON
// file on shutdown and restored on the next start.
type State struct {
	db           *sql.DB
	snapshotPath string
	logger       *zap.SugaredLogger
}

const createSpanTableSQL = "CREATE TABLE IF NOT EXISTS precipitation(" +
	"`start` INTEGER NOT NULL UNIQUE PRIMARY KEY," +
	"`stop` INTEGER NOT NULL," +
	"`ww` INTEGER," +
	"`wawa` INTEGER)"

// OpenState opens the per-device state database and restores the snapshot.
// A missing snapshot is not an error; a missing state directory is.
func OpenState(stateDir, deviceName string, logger *zap.SugaredLogger) (*State, []Span, error) {
	base := filepath.Join(stateDir, deviceName)

	var spans []Span
	data, err := os.ReadFile(base + ".json")
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &spans); err != nil {
			logger.Errorf("discarding unreadable present weather snapshot %s: %v", base+".json", err)
			spans = nil
		}
	case errors.Is(err, fs.ErrNotExist):
		// first run
	default:
		return nil, nil, err
	}

	db, err := sql.Open("sqlite", base+".sdb")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping state database: %w", err)
	}
	if _, err := db.Exec(createSpanTableSQL); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create precipitation table: %w", err)
	}

	return &State{
		db:           db,
		snapshotPath: base + ".json",
		logger:       logger,
	}, spans, nil
}

// InsertSpan stores a completed weather-code span.
func (s *State) InsertSpan(span Span) error {
	_, err := s.db.Exec("INSERT INTO precipitation VALUES (?,?,?,?)",
		span.Start, span.Stop, nullableInt(span.WW), nullableInt(span.Wawa))
	if err != nil {
		s.logger.Errorf("could not store weather span: %v", err)
	}
	return err
}

// Close snapshots the open spans and closes the state database.
func (s *State) Close(spans []Span) error {
	data, err := json.Marshal(spans)
	if err == nil {
		err = os.WriteFile(s.snapshotPath, data, 0o644)
	}
	if err != nil {
		s.logger.Errorf("could not write present weather snapshot: %v", err)
	}
	if cerr := s.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
