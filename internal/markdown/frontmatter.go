package markdown

import (
	"bufio"
	"strings"

	"gopkg.in/yaml.v3"
)

// SplitFrontmatter splits a markdown document into raw YAML frontmatter and
// body. The delimiters must be a leading "---" line and a later closing "---"
// line.
func SplitFrontmatter(contents string) (string, string, bool) {
	sc := bufio.NewScanner(strings.NewReader(contents))
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "---" {
		return "", contents, false
	}

	var yamlLines []string
	var bodyLines []string
	foundEnd := false
	for sc.Scan() {
		line := sc.Text()
		if !foundEnd {
			if strings.TrimSpace(line) == "---" {
				foundEnd = true
				continue
			}
			yamlLines = append(yamlLines, line)
			continue
		}
		bodyLines = append(bodyLines, line)
	}
	if !foundEnd {
		return "", contents, false
	}
	return strings.Join(yamlLines, "\n"), strings.Join(bodyLines, "\n"), true
}

// ParseFrontmatter parses YAML frontmatter into a typed object and returns the
// markdown body. ok=false means either no frontmatter exists, or the
// frontmatter is invalid YAML.
func ParseFrontmatter[T any](contents string) (T, string, bool) {
	var zero T
	raw, body, hasFrontmatter := SplitFrontmatter(contents)
	if !hasFrontmatter {
		return zero, contents, false
	}

	var out T
	if err := yaml.Unmarshal([]byte(raw), &out); err != nil {
		return zero, body, false
	}
	return out, body, true
}
