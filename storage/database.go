package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	historyFileName = "history.json"
	configDirName   = "faucet-cli"
)

// JSONDB is a JSON file holding the local transaction history.
type JSONDB struct {
	mu   sync.Mutex
	path string
}

// Connect opens the history file in the user config directory, creating it if needed.
func Connect() (*JSONDB, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("could not get db path: %w", err)
	}
	return Open(dbPath)
}

// Open opens the history file at path, creating it and its directory if needed.
func Open(path string) (*JSONDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("could not create history file: %w", err)
		}
		file.Close()
	}

	return &JSONDB{path: path}, nil
}

// Append stores r with the next free ID.
func (db *JSONDB) Append(r Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	records, err := db.read()
	if err != nil {
		return err
	}
	r.ID = len(records) + 1
	records = append(records, r)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal history: %w", err)
	}
	if err := os.WriteFile(db.path, data, 0644); err != nil {
		return fmt.Errorf("could not write history file: %w", err)
	}
	return nil
}

// List returns the records for cluster, newest first. An empty cluster returns all of them.
func (db *JSONDB) List(cluster string, limit int) ([]Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	records, err := db.read()
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if cluster != "" && records[i].Cluster != cluster {
			continue
		}
		out = append(out, records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (db *JSONDB) read() ([]Record, error) {
	data, err := os.ReadFile(db.path)
	if err != nil {
		return nil, fmt.Errorf("could not read history file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("could not parse history file: %w", err)
	}
	return records, nil
}

func getDBPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get config directory: %w", err)
	}
	return filepath.Join(dir, configDirName, historyFileName), nil
}

// Close is a no-op; the file is opened per call.
func (db *JSONDB) Close() error {
	return nil
}
