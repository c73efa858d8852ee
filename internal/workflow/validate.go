package workflow

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ensemble-cli/ensemble/pkg/models"
)

// qaReportFile is scanned by the all_tests_pass check.
const qaReportFile = "QA_REPORT.md"

// checkOutputs verifies a step's declared outputs and validation rules
// against dir. It returns every problem found rather than stopping at
// the first.
func checkOutputs(dir string, step models.Step) []string {
	var errs []string

	for _, output := range step.Outputs {
		if _, err := os.Stat(filepath.Join(dir, output)); err != nil {
			errs = append(errs, fmt.Sprintf("expected output %s was not created", output))
		}
	}

	for _, rule := range step.Validation {
		if err := checkRule(dir, rule); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func checkRule(dir string, rule models.ValidationRule) error {
	switch rule.Type {
	case "output_exists":
		if _, err := os.Stat(filepath.Join(dir, rule.File)); err != nil {
			return fmt.Errorf("%s does not exist", rule.File)
		}
		return nil
	case "min_lines":
		return checkMinLines(filepath.Join(dir, rule.File), rule.Value)
	case "syntax_valid":
		return checkSyntax(filepath.Join(dir, rule.File), rule.Language)
	case "custom":
		return checkCustom(dir, rule.Check)
	default:
		return fmt.Errorf("unknown validation rule type %q", rule.Type)
	}
}

func checkMinLines(path string, min int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s does not exist", filepath.Base(path))
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines++
		if lines >= min {
			return nil
		}
	}
	return fmt.Errorf("%s has %d lines, expected at least %d", filepath.Base(path), lines, min)
}

func checkSyntax(path, language string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s does not exist", filepath.Base(path))
	}

	switch strings.ToLower(language) {
	case "json":
		if !json.Valid(data) {
			return fmt.Errorf("%s is not valid JSON", filepath.Base(path))
		}
		return nil
	case "html":
		return checkHTML(filepath.Base(path), string(data))
	default:
		// Unknown languages pass; a missing checker should not fail
		// otherwise good output.
		return nil
	}
}

// checkHTML applies a structural smoke test: a doctype, html and body
// tags, and balanced html tags.
func checkHTML(name, content string) error {
	lower := strings.ToLower(content)
	if !strings.Contains(lower, "<!doctype") {
		return fmt.Errorf("%s is missing a doctype", name)
	}
	if !strings.Contains(lower, "<html") {
		return fmt.Errorf("%s is missing an html tag", name)
	}
	if !strings.Contains(lower, "<body") {
		return fmt.Errorf("%s is missing a body tag", name)
	}
	if strings.Count(lower, "<html") != strings.Count(lower, "</html>") {
		return fmt.Errorf("%s has unbalanced html tags", name)
	}
	return nil
}

func checkCustom(dir, check string) error {
	switch check {
	case "all_tests_pass":
		return checkTestsPass(dir)
	default:
		return fmt.Errorf("unknown custom check %q", check)
	}
}

// checkTestsPass scans the QA report for failure language. No report
// means the testing step never produced one, which is itself a failure.
func checkTestsPass(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, qaReportFile))
	if err != nil {
		return fmt.Errorf("%s not found", qaReportFile)
	}

	lower := strings.ToLower(string(data))
	for _, marker := range []string{"fail", "bug", "issue"} {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%s reports problems (found %q)", qaReportFile, marker)
		}
	}
	return nil
}
