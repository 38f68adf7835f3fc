package file

import (
	"bufio"
	"os"
	"strings"
)

// ReadList reads a text file line by line and returns its non-empty,
// non-comment lines in order. It is used for source-list files naming the
// input paths of a run: blank lines and lines starting with '#' (after
// trimming) are skipped so lists can carry comments and separators.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
