package design

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound indicates the design document file does not exist.
var ErrNotFound = errors.New("design document not found")

// UnknownType is reported for nodes without a data.type field.
const UnknownType = "Unknown"

// Document is a flow-builder export: a graph of typed nodes and edges.
// Missing data, nodes, or edges decode as empty.
type Document struct {
	Data Graph `json:"data" yaml:"data"`
}

// Graph holds the nodes and edges of a Document.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Node is a node descriptor. ID is the raw identifier as authored.
type Node struct {
	ID   string         `json:"id" yaml:"id"`
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// Type returns data.type, or UnknownType.
func (n Node) Type() string {
	if t, ok := n.Data["type"].(string); ok && t != "" {
		return t
	}
	return UnknownType
}

// Params returns the node's data block for typed parameter lookup.
func (n Node) Params() Params {
	return NewParams(n.Data)
}

// Edge is a directed edge between raw node ids.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Malformed reports whether the edge lacks a source or a target.
func (e Edge) Malformed() bool {
	return e.Source == "" || e.Target == ""
}

// Nodes returns the document's nodes.
func (d *Document) Nodes() []Node {
	if d == nil {
		return nil
	}
	return d.Data.Nodes
}

// Edges returns the document's edges.
func (d *Document) Edges() []Edge {
	if d == nil {
		return nil
	}
	return d.Data.Edges
}

// Empty reports whether the document has no nodes.
func (d *Document) Empty() bool {
	return len(d.Nodes()) == 0
}

// Format is a document encoding.
type Format int

const (
	// FormatJSON is the flow-builder's native export format.
	FormatJSON Format = iota
	// FormatYAML accepts the same keys as JSON.
	FormatYAML
)

// FormatFromPath picks the format from the file extension.
// .yaml and .yml are YAML; everything else is JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and parses the document at path.
// A missing file returns an error wrapping ErrNotFound.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read design document: %w", err)
	}
	doc, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// LoadFirst loads the first path that exists.
// Returns the loaded path, or an error wrapping ErrNotFound if none exist.
func LoadFirst(paths ...string) (*Document, string, error) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		doc, err := Load(p)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, p, err
		}
		return doc, p, nil
	}
	return nil, "", fmt.Errorf("%w: tried %s", ErrNotFound, strings.Join(paths, ", "))
}

// Parse decodes a document. Empty input yields an empty document.
func Parse(data []byte, format Format) (*Document, error) {
	doc := &Document{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, doc)
	default:
		err = json.Unmarshal(data, doc)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}
