package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"tutorsim.ai/internal/persistence/indexdb"
)

func openRuntimeIndex(dataDir string, disableDB bool, logger *log.Logger) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("TUTOR_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		path := filepath.Join(dataDir, "index", "episodes.sqlite")
		idx, err := indexdb.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		logger.Printf("index backend=sqlite path=%s", path)
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown TUTOR_INDEX_BACKEND=%q", backend)
	}
}
