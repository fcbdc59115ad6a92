package token

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// headerPrefix starts the first line of a token file:
//
//	group_num: 3,member_num: 4
const headerPrefix = "group_num:"

// File is the parsed content of a token file.
type File struct {
	Groups  int
	Members int
	Tokens  []string
}

// WriteFile writes the header line followed by one token per line.
func WriteFile(path string, groups, members int, tokens []string) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "group_num: %d,member_num: %d\n", groups, members)
	for _, t := range tokens {
		buf.WriteString(t)
		buf.WriteByte('\n')
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// ReadFile parses a token file. The header is optional; blank lines are
// skipped and every remaining line must pass Validate.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return Parse(data)
}

// Parse parses token file content. Duplicate tokens are rejected.
func Parse(data []byte) (*File, error) {
	f := &File{}
	seen := make(map[string]struct{})

	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, headerPrefix) {
			if _, err := fmt.Sscanf(line, "group_num: %d,member_num: %d", &f.Groups, &f.Members); err != nil {
				return nil, fmt.Errorf("line %d: malformed header %q", lineNo, line)
			}
			continue
		}
		if err := Validate(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if _, dup := seen[line]; dup {
			return nil, fmt.Errorf("line %d: duplicate token %q", lineNo, line)
		}
		seen[line] = struct{}{}
		f.Tokens = append(f.Tokens, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return f, nil
}
