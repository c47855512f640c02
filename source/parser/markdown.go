// Package parser provides document parsing functionality.
package parser

import (
	"fmt"
	"strings"

	"github.com/c360studio/octiron/source"
	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// ParseMarkdown parses a markdown document, splitting the YAML frontmatter
// from the body. A document without a frontmatter header has a nil
// Frontmatter. Malformed YAML inside a header is an error.
func ParseMarkdown(path string, content []byte) (*source.Document, error) {
	doc := &source.Document{
		Path:    path,
		Content: string(content),
	}

	frontmatter, body, err := ExtractFrontmatter(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	doc.Frontmatter = frontmatter
	doc.Body = body
	return doc, nil
}

// ExtractFrontmatter parses YAML frontmatter from markdown content.
// Returns the parsed frontmatter map, the remaining body, and any error.
// Content that does not open with a "---" line has no frontmatter; an
// opening delimiter without a closing one is treated the same way.
func ExtractFrontmatter(content string) (map[string]any, string, error) {
	first, rest, ok := cutLine(content)
	if !ok || strings.TrimRight(first, " \t") != delimiter {
		return nil, content, nil
	}

	var header strings.Builder
	for remaining := rest; remaining != ""; {
		line, after, _ := cutLine(remaining)
		if strings.TrimRight(line, " \t") == delimiter {
			body := strings.TrimLeft(after, "\r\n")
			frontmatter, err := decodeFrontmatter(header.String())
			if err != nil {
				return nil, content, err
			}
			return frontmatter, body, nil
		}
		header.WriteString(line)
		header.WriteByte('\n')
		remaining = after
	}
	return nil, content, nil
}

func decodeFrontmatter(yamlContent string) (map[string]any, error) {
	var frontmatter map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &frontmatter); err != nil {
		return nil, fmt.Errorf("parse YAML frontmatter: %w", err)
	}
	return frontmatter, nil
}

// cutLine splits off the first line, dropping its terminator. ok is false
// when s has no line terminator.
func cutLine(s string) (line, rest string, ok bool) {
	line, rest, ok = strings.Cut(s, "\n")
	return strings.TrimSuffix(line, "\r"), rest, ok
}
