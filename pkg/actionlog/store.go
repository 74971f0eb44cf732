package actionlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"engagebot/pkg/logger"
)

// Store persists the action history as a JSON log file.
//
// The file layout is stable across restarts:
//
//	{
//	  "actions": [{"type": "...", "success": true, "timestamp": "...", ...}],
//	  "last_updated": "<RFC3339>",
//	  "total_actions": <n>
//	}
//
// Load never fails the caller: a missing or corrupt file yields an empty
// history, and individual records with unparseable timestamps are dropped.
type Store struct {
	path   string
	logger logger.Logger
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		logger: logger.GetLogger(),
	}
}

// wireRecord keeps the timestamp textual so a single malformed entry can be
// skipped without aborting the whole load.
type wireRecord struct {
	ID        string                 `json:"id,omitempty"`
	Type      string                 `json:"type"`
	Success   bool                   `json:"success"`
	Timestamp string                 `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type wireLog struct {
	Actions      []wireRecord `json:"actions"`
	LastUpdated  string       `json:"last_updated"`
	TotalActions int          `json:"total_actions"`
}

// Load reads the persisted log, drops records older than the retention
// period relative to now, and returns the remaining history in order.
func (s *Store) Load(now time.Time) *History {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).Warn("failed to read actions log, starting with empty history")
		}
		return NewHistory()
	}

	var wire wireLog
	if err := json.Unmarshal(data, &wire); err != nil {
		s.logger.WithError(err).Warn("corrupt actions log, starting with empty history")
		return NewHistory()
	}

	cutoff := now.Add(-RetentionPeriod)
	records := make([]Record, 0, len(wire.Actions))
	dropped := 0
	for _, action := range wire.Actions {
		ts, err := time.Parse(time.RFC3339Nano, action.Timestamp)
		if err != nil {
			dropped++
			continue
		}
		if !ts.After(cutoff) {
			continue
		}
		records = append(records, Record{
			ID:        action.ID,
			Type:      Type(action.Type),
			Success:   action.Success,
			Timestamp: ts,
			Metadata:  action.Metadata,
		})
	}

	if dropped > 0 {
		s.logger.WarnWithFields("dropped records with malformed timestamps", map[string]interface{}{
			"dropped": dropped,
		})
	}
	s.logger.InfoWithFields("loaded actions history", map[string]interface{}{
		"records": len(records),
		"path":    s.path,
	})

	return newHistoryFromRecords(records)
}

// Save serializes the history to disk atomically (write to a temp file,
// fsync, rename). The caller's in-memory history remains authoritative on
// failure.
func (s *Store) Save(history *History, now time.Time) error {
	records := history.Snapshot()
	wire := wireLog{
		Actions:      make([]wireRecord, 0, len(records)),
		LastUpdated:  now.Format(time.RFC3339Nano),
		TotalActions: len(records),
	}
	for _, record := range records {
		wire.Actions = append(wire.Actions, wireRecord{
			ID:        record.ID,
			Type:      string(record.Type),
			Success:   record.Success,
			Timestamp: record.Timestamp.Format(time.RFC3339Nano),
			Metadata:  record.Metadata,
		})
	}

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary log file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&wire); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode actions log: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync actions log: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close actions log: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace actions log: %w", err)
	}

	s.logger.DebugWithFields("saved actions history", map[string]interface{}{
		"records": len(records),
	})

	return nil
}
