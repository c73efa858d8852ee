package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ensemble-cli/ensemble/pkg/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCheckOutputs_MissingOutput(t *testing.T) {
	dir := t.TempDir()
	step := models.Step{ID: "s", Outputs: []string{"present.txt", "missing.txt"}}
	writeFile(t, dir, "present.txt", "here")

	errs := checkOutputs(dir, step)
	if len(errs) != 1 {
		t.Fatalf("checkOutputs() = %v, want 1 error", errs)
	}
}

func TestCheckRule_OutputExists(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "x")

	if err := checkRule(dir, models.ValidationRule{Type: "output_exists", File: "a.txt"}); err != nil {
		t.Errorf("existing file failed: %v", err)
	}
	if err := checkRule(dir, models.ValidationRule{Type: "output_exists", File: "b.txt"}); err == nil {
		t.Error("missing file passed")
	}
}

func TestCheckRule_MinLines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "short.txt", "one\ntwo\n")

	if err := checkRule(dir, models.ValidationRule{Type: "min_lines", File: "short.txt", Value: 2}); err != nil {
		t.Errorf("2-line file failed min_lines 2: %v", err)
	}
	if err := checkRule(dir, models.ValidationRule{Type: "min_lines", File: "short.txt", Value: 5}); err == nil {
		t.Error("2-line file passed min_lines 5")
	}
}

func TestCheckRule_SyntaxJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.json", `{"ok": true}`)
	writeFile(t, dir, "bad.json", `{"ok": tru`)

	if err := checkRule(dir, models.ValidationRule{Type: "syntax_valid", File: "good.json", Language: "json"}); err != nil {
		t.Errorf("valid JSON failed: %v", err)
	}
	if err := checkRule(dir, models.ValidationRule{Type: "syntax_valid", File: "bad.json", Language: "json"}); err == nil {
		t.Error("invalid JSON passed")
	}
}

func TestCheckRule_SyntaxHTML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.html", "<!DOCTYPE html>\n<html>\n<body>\n<p>hi</p>\n</body>\n</html>\n")
	writeFile(t, dir, "nodoctype.html", "<html><body></body></html>")
	writeFile(t, dir, "unbalanced.html", "<!DOCTYPE html>\n<html><body></body>\n")

	tests := []struct {
		file   string
		wantOK bool
	}{
		{"good.html", true},
		{"nodoctype.html", false},
		{"unbalanced.html", false},
	}
	for _, tt := range tests {
		err := checkRule(dir, models.ValidationRule{Type: "syntax_valid", File: tt.file, Language: "html"})
		if (err == nil) != tt.wantOK {
			t.Errorf("%s: err = %v, wantOK %v", tt.file, err, tt.wantOK)
		}
	}
}

func TestCheckRule_UnknownLanguagePasses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "script.py", "print('hi')\n")

	if err := checkRule(dir, models.ValidationRule{Type: "syntax_valid", File: "script.py", Language: "python"}); err != nil {
		t.Errorf("unknown language failed: %v", err)
	}
}

func TestCheckRule_AllTestsPass(t *testing.T) {
	tests := []struct {
		name   string
		report string
		wantOK bool
	}{
		{"clean report", "# QA Report\n\nAll checks passed. Works as expected.\n", true},
		{"mentions failure", "# QA Report\n\nTest 3: FAIL on empty input\n", false},
		{"mentions bug", "Found a bug in the parser.\n", false},
		{"mentions issue", "One issue remains with timeouts.\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, qaReportFile, tt.report)

			err := checkRule(dir, models.ValidationRule{Type: "custom", Check: "all_tests_pass"})
			if (err == nil) != tt.wantOK {
				t.Errorf("err = %v, wantOK %v", err, tt.wantOK)
			}
		})
	}
}

func TestCheckRule_AllTestsPass_MissingReport(t *testing.T) {
	dir := t.TempDir()
	if err := checkRule(dir, models.ValidationRule{Type: "custom", Check: "all_tests_pass"}); err == nil {
		t.Error("missing QA report passed")
	}
}

func TestCheckRule_UnknownType(t *testing.T) {
	if err := checkRule(t.TempDir(), models.ValidationRule{Type: "mystery"}); err == nil {
		t.Error("unknown rule type passed")
	}
}
