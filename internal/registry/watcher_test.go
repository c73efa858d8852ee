package registry

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/ensemble-cli/ensemble/pkg/models"
)

// waitForCount polls until the registry holds want agents or the
// deadline passes. The watcher debounces writes, so reloads are not
// immediate.
func waitForCount(t *testing.T, r *Registry, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if r.Count() == want {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("Count() = %d after waiting, want %d", r.Count(), want)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	r := tempRegistry(t)

	w, err := Watch(r)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	// Replace the seeded registry with a single agent, as an external
	// edit would.
	solo := map[string]*models.AgentDefinition{
		"solo": {
			Name:         "solo",
			Description:  "the only agent",
			Role:         "generalist",
			Tools:        []string{"Read", "Write"},
			Capabilities: []string{"everything"},
		},
	}
	data, err := json.Marshal(solo)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(r.Path(), data, 0644); err != nil {
		t.Fatalf("write registry: %v", err)
	}

	waitForCount(t, r, 1)
	if _, err := r.Get("solo"); err != nil {
		t.Errorf("Get(solo) after reload error = %v", err)
	}
}

func TestWatch_BadJSONKeepsState(t *testing.T) {
	r := tempRegistry(t)
	before := r.Count()

	w, err := Watch(r)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	// A half-written file must not wipe the in-memory registry.
	if err := os.WriteFile(r.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write registry: %v", err)
	}

	// Give the watcher time to debounce and attempt the reload.
	time.Sleep(600 * time.Millisecond)

	if r.Count() != before {
		t.Errorf("Count() = %d after bad reload, want %d", r.Count(), before)
	}
	if _, err := r.Get("code_writer"); err != nil {
		t.Errorf("Get(code_writer) after bad reload error = %v", err)
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	r := tempRegistry(t)
	before := r.Count()

	w, err := Watch(r)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	other := r.Path() + ".bak"
	if err := os.WriteFile(other, []byte("{}"), 0644); err != nil {
		t.Fatalf("write sibling file: %v", err)
	}

	time.Sleep(400 * time.Millisecond)
	if r.Count() != before {
		t.Errorf("Count() = %d after sibling write, want %d", r.Count(), before)
	}
}
