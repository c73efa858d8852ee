package orchestrator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// promptFile and fullPromptFile are written into the workspace before
// each run and excluded from artifact detection.
const (
	promptFile     = "prompt.txt"
	fullPromptFile = "full_prompt.txt"
)

// snapshotFiles returns the set of files under dir, keyed by path
// relative to dir. Prompt files are ignored.
func snapshotFiles(dir string) (map[string]bool, error) {
	files := make(map[string]bool)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == promptFile || rel == fullPromptFile {
			return nil
		}
		files[rel] = true
		return nil
	})
	if os.IsNotExist(err) {
		return files, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan workspace: %w", err)
	}
	return files, nil
}

// newFiles returns paths present in after but not in before, sorted.
func newFiles(before, after map[string]bool) []string {
	var created []string
	for path := range after {
		if !before[path] {
			created = append(created, path)
		}
	}
	sort.Strings(created)
	return created
}
