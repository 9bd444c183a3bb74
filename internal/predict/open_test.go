package predict

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shaiso/Riskwatch/internal/advice"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := testBundle().Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	catalogPath := filepath.Join(dir, "catalog.yaml")
	catalogYAML := "features:\n  dept:\n    label: Department\n    category: Academic\n"
	if err := os.WriteFile(catalogPath, []byte(catalogYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Open(Options{ModelPath: path, CatalogPath: catalogPath, AdvisorURL: AdvisorRules})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	info := p.Info()
	if info.Version != "test-v1" || !info.Advisor || !info.Explainer {
		t.Errorf("info = %+v", info)
	}
	if got, _ := p.catalog.Lookup("dept"); got.Label != "Department" {
		t.Errorf("catalog not loaded from file: %+v", got)
	}
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := testBundle().Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	tests := []struct {
		name string
		opts Options
	}{
		{"missing model", Options{ModelPath: filepath.Join(dir, "nope.json")}},
		{"missing catalog", Options{ModelPath: path, CatalogPath: filepath.Join(dir, "nope.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(tt.opts); err == nil {
				t.Error("Open() error = nil")
			}
		})
	}
}

func TestNewAdvisor(t *testing.T) {
	if a := newAdvisor(Options{}); a != nil {
		t.Errorf("empty url: advisor = %T, want nil", a)
	}
	if _, ok := newAdvisor(Options{AdvisorURL: AdvisorRules}).(advice.RuleAdvisor); !ok {
		t.Error("rules url: advisor is not RuleAdvisor")
	}
	if a := newAdvisor(Options{AdvisorURL: "http://localhost:11434"}); a == nil {
		t.Error("ollama url: advisor = nil")
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("MODEL_PATH", "")
	t.Setenv("ADVISOR_URL", "rules")
	t.Setenv("MAX_NEW_LABELS", "50")
	opts := OptionsFromEnv()
	if opts.ModelPath != DefaultModelPath || opts.AdvisorURL != AdvisorRules || opts.MaxNewLabels != 50 {
		t.Errorf("opts = %+v", opts)
	}

	t.Setenv("MAX_NEW_LABELS", "lots")
	if opts := OptionsFromEnv(); opts.MaxNewLabels != 0 {
		t.Errorf("MaxNewLabels = %d, want 0 for invalid value", opts.MaxNewLabels)
	}
}
