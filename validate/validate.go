// Package validate checks topic JSON files before they are served. It
// reports, per file:
//   - JSON structure and required fields
//   - Pair count bounds
//   - Duplicate terms or definitions, which would make two pairs look alike
//   - Pairs whose term and definition are the same text
//   - A topic id that differs from the file name
package validate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Result captures the outcome of validating a single file. Info holds
// summary lines for valid files.
type Result struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *Result) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// File loads and validates a single topic file
func File(path string) Result {
	result := Result{
		File:  filepath.Base(path),
		Valid: true,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	topic, err := engine.ParseTopic(data)
	if err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	// Report every failed field, not only the first
	if err := structValidator.Struct(topic); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				result.fail("%s failed on '%s'%s", fe.Namespace(), fe.Tag(), paramSuffix(fe.Param()))
			}
		} else {
			result.fail("%v", err)
		}
	}

	for _, problem := range engine.DuplicateProblems(topic) {
		result.fail("%s", problem)
	}

	if want := strings.TrimSuffix(result.File, filepath.Ext(result.File)); topic.ID != "" && topic.ID != want {
		result.fail("Topic id %q does not match file name %q", topic.ID, want)
	}

	if result.Valid {
		missingIcons := 0
		for _, p := range topic.Pairs {
			if p.Icon == "" {
				missingIcons++
			}
		}
		result.Info = append(result.Info,
			fmt.Sprintf("✓ Name: %s", topic.Name),
			fmt.Sprintf("✓ Pairs: %d (%d cards)", len(topic.Pairs), len(topic.Pairs)*engine.SelectionSize),
		)
		if missingIcons > 0 {
			result.Info = append(result.Info, fmt.Sprintf("• Pairs without icon: %d", missingIcons))
		}
	}

	return result
}

func paramSuffix(param string) string {
	if param == "" {
		return ""
	}
	return fmt.Sprintf(" (param %s)", param)
}

// Dir validates every *.json file in dir, sorted by name
func Dir(dir string) ([]Result, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("finding topic files: %w", err)
	}
	sort.Strings(files)

	results := make([]Result, 0, len(files))
	for _, file := range files {
		results = append(results, File(file))
	}
	return results, nil
}

// Report prints a concise report of results to w and tells whether all of
// them are valid.
func Report(w io.Writer, results []Result) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
			continue
		}

		fmt.Fprintln(w, "❌ INVALID")
		allValid = false
		for _, msg := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+msg)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "No topic files found")
	case allValid:
		fmt.Fprintln(w, "✅ All topics are valid!")
	default:
		fmt.Fprintln(w, "❌ Some topics have errors")
	}
	return allValid
}
