package workflow

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed templates/*.yaml
var embeddedTemplates embed.FS

// SeedTemplates writes the shipped workflow templates into the
// manager's templates directory. Existing files are left alone so
// local edits survive upgrades.
func (m *Manager) SeedTemplates() error {
	entries, err := fs.ReadDir(embeddedTemplates, "templates")
	if err != nil {
		return fmt.Errorf("read embedded templates: %w", err)
	}

	for _, entry := range entries {
		dest := filepath.Join(m.root, TemplatesDir, entry.Name())
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		data, err := embeddedTemplates.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read embedded template %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return fmt.Errorf("write template %s: %w", entry.Name(), err)
		}
	}
	return nil
}
