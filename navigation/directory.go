package navigation

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/c360studio/octiron"
)

// FromDirectory builds a navigation tree of the Markdown files below root.
// Hidden entries and directories without pages are left out. Page titles
// come from octa:title in graph, falling back to the file name.
func FromDirectory(root string, graph Querier) (*Node, error) {
	p := &Processor{Graph: graph}
	node := &Node{Kind: KindSection}
	if err := p.readDir(root, "", node); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Processor) readDir(root, rel string, section *Node) error {
	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("read directory %s: %w", rel, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		srcPath := path.Join(rel, name)
		if entry.IsDir() {
			child := &Node{Kind: KindSection, Title: name}
			if err := p.readDir(root, srcPath, child); err != nil {
				return err
			}
			if len(child.Children) > 0 {
				section.Children = append(section.Children, child)
			}
			continue
		}
		if path.Ext(name) != ".md" {
			continue
		}
		page := &Node{
			Kind:    KindPage,
			SrcPath: srcPath,
			URL:     octiron.IRIToURL(octiron.SrcPathToIRI(srcPath)),
		}
		title, ok, err := p.lookup(titleQuery, page.IRI(), "title")
		if err != nil {
			return err
		}
		if s, isString := title.(string); ok && isString && s != "" {
			page.Title = s
		} else {
			page.Title = strings.TrimSuffix(name, ".md")
		}
		section.Children = append(section.Children, page)
	}
	return nil
}
