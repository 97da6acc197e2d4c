package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStatesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "states.json")
	content := `[
	  {"id": "FRD", "name": "Freedonia", "lat": 12.5, "lon": -3.25},
	  {"id": "SYL", "name": "Sylvania", "lat": null, "lon": null},
	  {"id": "", "name": "Headless"},
	  {"id": "XXX", "name": ""}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	states, err := LoadStatesFile(path)
	if err != nil {
		t.Fatalf("LoadStatesFile error: %v", err)
	}

	if len(states) != 2 {
		t.Fatalf("expected invalid entries skipped, got %d states", len(states))
	}
	if states[0].ISO3 != "FRD" || states[0].Name != "Freedonia" {
		t.Fatalf("unexpected first state: %+v", states[0])
	}
	if states[0].Lat == nil || *states[0].Lat != 12.5 {
		t.Fatalf("unexpected latitude: %+v", states[0].Lat)
	}
	if states[1].Lat != nil {
		t.Fatal("null latitude must stay absent")
	}
}

func TestLoadStatesFileMissing(t *testing.T) {
	t.Parallel()

	if _, err := LoadStatesFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
