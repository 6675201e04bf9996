package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sbstnppl/branch-engine/pkg/world"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <scenario.json | scenarios-dir> [...]\n", os.Args[0])
		os.Exit(1)
	}

	var files []string
	for _, arg := range os.Args[1:] {
		expanded, err := expandArg(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		files = append(files, expanded...)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No scenario files found\n")
		os.Exit(1)
	}

	failed := 0
	for _, f := range files {
		if err := validateFile(f); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s\n%v\n", f, err)
			failed++
			continue
		}
		fmt.Printf("OK   %s\n", f)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d scenario files failed validation\n", failed, len(files))
		os.Exit(1)
	}
}

// expandArg resolves a path argument to the scenario files beneath it.
func expandArg(arg string) ([]string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", arg, err)
	}
	if !info.IsDir() {
		return []string{arg}, nil
	}

	var files []string
	err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
	}
	return files, nil
}

func validateFile(filename string) error {
	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("scenario file must have .json extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidScenarioFilename(nameWithoutExt) {
		return fmt.Errorf("scenario filename '%s' must be lowercase snake_case (e.g., my_scenario.json, not my-scenario.json or MyScenario.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var sc world.Scenario
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&sc); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	problems := sc.Validate()
	for _, loc := range sc.Locations {
		if !isValidKey(loc.Key) {
			problems = append(problems, fmt.Sprintf("location key %q should be lowercase snake_case", loc.Key))
		}
	}
	for _, e := range sc.Entities {
		if !isValidKey(e.Key) {
			problems = append(problems, fmt.Sprintf("entity key %q should be lowercase snake_case", e.Key))
		}
	}
	for _, it := range sc.Items {
		if !isValidKey(it.Key) {
			problems = append(problems, fmt.Sprintf("item key %q should be lowercase snake_case", it.Key))
		}
	}

	if len(problems) > 0 {
		var b strings.Builder
		for _, p := range problems {
			b.WriteString("  - " + p + "\n")
		}
		return fmt.Errorf("%s", strings.TrimRight(b.String(), "\n"))
	}
	return nil
}

var validKeyRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidKey(key string) bool {
	return validKeyRegex.MatchString(key)
}

func isValidScenarioFilename(name string) bool {
	// Allow 'x.' prefix for experimental scenarios
	name = strings.TrimPrefix(name, "x.")
	return validKeyRegex.MatchString(name)
}
