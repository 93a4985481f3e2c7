package librarian

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/simbridge/simbridge/pkg/telemetry"
)

func TestCoreLibrary(t *testing.T) {
	l, err := NewCore()
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	if l.Len() == 0 {
		t.Fatal("core library is empty")
	}

	rec, err := l.Get("vase_02")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.WCategory != "vase" || rec.ScaleFactor != 1 {
		t.Errorf("record = %+v", rec)
	}
	url, err := rec.URLForPlatform("linux")
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if !strings.Contains(url, "vase_02") {
		t.Errorf("url = %q", url)
	}
	if _, err := rec.URLForPlatform("plan9"); err == nil {
		t.Error("expected an error for an unsupported platform")
	}

	if _, err := l.Get("nonexistent_model"); err == nil {
		t.Error("expected an error for an unknown model")
	}
}

func TestSearch(t *testing.T) {
	l, err := NewCore()
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	jugs := l.Search("jug")
	if len(jugs) != 2 {
		t.Fatalf("got %d jugs", len(jugs))
	}
	if jugs[0].Name != "jug01" || jugs[1].Name != "jug02" {
		t.Errorf("search results out of order: %v, %v", jugs[0].Name, jugs[1].Name)
	}
}

func TestReadLibraryValidation(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"no name", `{"records": [{"urls": {"linux": "u"}, "scale_factor": 1}]}`},
		{"no urls", `{"records": [{"name": "m", "scale_factor": 1}]}`},
		{"bad scale", `{"records": [{"name": "m", "urls": {"linux": "u"}, "scale_factor": 0}]}`},
		{"unknown field", `{"records": [], "extra": true}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadLibrary(strings.NewReader(tc.json)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestAddLibraryRejectsDuplicates(t *testing.T) {
	l, err := NewCore()
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	dup := &Library{Records: []*ModelRecord{{
		Name:        "vase_02",
		URLs:        map[string]string{"linux": "u"},
		ScaleFactor: 1,
	}}}
	if err := l.AddLibrary("other", dup); err == nil {
		t.Error("expected a duplicate record error")
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	custom := `{
  "description": "Test library.",
  "records": [
    {"name": "prototype_widget", "urls": {"linux": "https://assets.example.com/prototype_widget"},
     "scale_factor": 0.5, "wcategory": "widget", "do_not_use": false}
  ]
}`
	if err := os.WriteFile(filepath.Join(dir, "models_custom.json"), []byte(custom), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Non-JSON files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	log, err := telemetry.NewLogger(telemetry.LoggingConfig{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	librarian, err := NewLoader(log).LoadFromPaths([]string{dir})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rec, err := librarian.Get("prototype_widget")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.ScaleFactor != 0.5 {
		t.Errorf("record = %+v", rec)
	}
	// The core library is still present.
	if _, err := librarian.Get("iron_box"); err != nil {
		t.Errorf("core record missing: %v", err)
	}
}

func TestReplaceSwapsIndex(t *testing.T) {
	l, err := NewCore()
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	next := map[string]*Library{
		"only": {Records: []*ModelRecord{{
			Name:        "lonely_model",
			URLs:        map[string]string{"linux": "u"},
			ScaleFactor: 1,
		}}},
	}
	if err := l.Replace(next); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if l.Len() != 1 {
		t.Errorf("len = %d", l.Len())
	}
	if _, err := l.Get("vase_02"); err == nil {
		t.Error("old records survived the swap")
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	library := func(name string) string {
		return `{"records": [{"name": "` + name + `", "urls": {"linux": "u"}, "scale_factor": 1}]}`
	}
	path := filepath.Join(dir, "models_local.json")
	if err := os.WriteFile(path, []byte(library("draft_widget")), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	log, err := telemetry.NewLogger(telemetry.LoggingConfig{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	loader := NewLoader(log)
	librarian, err := loader.LoadFromPaths([]string{dir})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := loader.Watch(ctx, []string{dir}, librarian); err != nil {
		t.Fatalf("watch: %v", err)
	}

	if err := os.WriteFile(path, []byte(library("final_widget")), 0644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	// The reload is debounced, so poll past the delay.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := librarian.Get("final_widget"); err == nil {
			if _, err := librarian.Get("draft_widget"); err == nil {
				t.Fatal("stale record survived the reload")
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("librarian never picked up the changed file")
}
