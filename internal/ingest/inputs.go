package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RecordExtensions are the file extensions picked up from an input directory.
var RecordExtensions = []string{".json", ".jsonl", ".ndjson"}

// ExpandInputs resolves input paths into record files. A directory contributes
// its record files (not recursive) in name order; a file is taken as is.
// Duplicates are dropped, keeping the first occurrence.
func ExpandInputs(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, errors.New("no input file")
	}

	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		clean := filepath.Clean(path)
		if !seen[clean] {
			seen[clean] = true
			files = append(files, clean)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", path, err)
		}
		var names []string
		for _, e := range entries {
			if e.Type().IsRegular() && isRecordFile(e.Name()) {
				names = append(names, e.Name())
			}
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("input %s: no record files", path)
		}
		sort.Strings(names)
		for _, name := range names {
			add(filepath.Join(path, name))
		}
	}
	return files, nil
}

func isRecordFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range RecordExtensions {
		if ext == want {
			return true
		}
	}
	return false
}
