package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	logFileMutex sync.Mutex
)

// ChangeLogEntry is one line of the rule change journal.
type ChangeLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Category  string    `json:"category"`
	RuleID    string    `json:"rule_id"`
	RuleName  string    `json:"rule_name,omitempty"`
	Created   bool      `json:"created,omitempty"`
}

// InitChangeLog makes sure the journal directory exists.
func InitChangeLog(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func changeLogPath(logDir string, day time.Time) string {
	return filepath.Join(logDir, fmt.Sprintf("changes-%s.jsonl", day.Format("2006-01-02")))
}

// WriteChangeLog appends entry to the journal file of its day.
func WriteChangeLog(logDir string, entry *ChangeLogEntry) error {
	logFileMutex.Lock()
	defer logFileMutex.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	file, err := os.OpenFile(changeLogPath(logDir, entry.Timestamp), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}

	return nil
}

type ChangeLogQuery struct {
	Category  string     `json:"category,omitempty"`
	RuleID    string     `json:"rule_id,omitempty"`
	Kind      string     `json:"kind,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}

type ChangeLogResult struct {
	Total   int               `json:"total"`
	Entries []*ChangeLogEntry `json:"entries"`
}

// QueryChangeLogs scans the journal files of the requested days, newest
// first. Without a start time the last 7 days are read.
func QueryChangeLogs(logDir string, req *ChangeLogQuery) (*ChangeLogResult, error) {
	result := &ChangeLogResult{
		Entries: make([]*ChangeLogEntry, 0),
	}

	endDate := time.Now()
	if req.EndTime != nil {
		endDate = *req.EndTime
	}
	startDate := endDate.AddDate(0, 0, -7)
	if req.StartTime != nil {
		startDate = *req.StartTime
	}

	matched := make([]*ChangeLogEntry, 0)
	for d := startDate; !d.After(endDate.AddDate(0, 0, 1)); d = d.AddDate(0, 0, 1) {
		path := changeLogPath(logDir, d)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		entries, err := readChangeLog(path)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if matchesQuery(entry, req) {
				matched = append(matched, entry)
			}
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	result.Total = len(matched)
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	start := req.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	if start < end {
		result.Entries = matched[start:end]
	}

	return result, nil
}

func readChangeLog(path string) ([]*ChangeLogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	entries := make([]*ChangeLogEntry, 0)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		var entry ChangeLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue // skip torn lines
		}
		entries = append(entries, &entry)
	}

	return entries, scanner.Err()
}

func matchesQuery(entry *ChangeLogEntry, req *ChangeLogQuery) bool {
	if req.Category != "" && entry.Category != req.Category {
		return false
	}
	if req.RuleID != "" && entry.RuleID != req.RuleID {
		return false
	}
	if req.Kind != "" && entry.Kind != req.Kind {
		return false
	}
	if req.StartTime != nil && entry.Timestamp.Before(*req.StartTime) {
		return false
	}
	if req.EndTime != nil && entry.Timestamp.After(*req.EndTime) {
		return false
	}
	return true
}
