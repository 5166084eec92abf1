package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadStopList reads a stop list from path, one lower-case word per line.
// Blank lines are skipped.
func LoadStopList(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open stop list %q: %w", path, err)
	}
	defer f.Close()

	out := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" {
			continue
		}
		out[word] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: scan stop list %q: %w", path, err)
	}
	return out, nil
}
