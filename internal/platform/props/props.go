// Package props reads and writes the flat newline-delimited key=value format
// used by the engine configuration and the plugin registry store.
package props

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Parse reads key=value lines. Blank lines and lines starting with '#' are
// skipped. Later keys overwrite earlier ones.
func Parse(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("malformed property line: %q", line)
		}
		out[strings.TrimSpace(key)] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read properties: %w", err)
	}
	return out, nil
}

// Write serializes properties in sorted key order so rewrites are
// deterministic and diffs stay readable.
func Write(w io.Writer, properties map[string]string) error {
	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, err := fmt.Fprintf(w, "%s=%s\n", key, properties[key]); err != nil {
			return fmt.Errorf("write property %q: %w", key, err)
		}
	}
	return nil
}
