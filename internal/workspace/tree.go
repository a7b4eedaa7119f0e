// Package workspace keeps the editor's in-memory file and folder tree.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"livecode/internal/languages"
	"livecode/internal/logging"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("node not found")
	ErrInvalidName = errors.New("name must not be empty")
	ErrNotFolder   = errors.New("parent is not a folder")
	ErrNotFile     = errors.New("node is not a file")
	ErrExists      = errors.New("name already exists in folder")
)

// Kind distinguishes files from folders.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// NewFileContent is the content of a freshly created file.
const NewFileContent = "// New file\n"

// Node is one entry of the tree. Parent is empty for top-level nodes.
type Node struct {
	ID       string
	Name     string
	Kind     Kind
	Parent   string
	Content  string
	Expanded bool
}

// Tree is a hierarchical file/folder tree. It is safe for concurrent use.
type Tree struct {
	mu       sync.RWMutex
	nodes    map[string]*Node
	children map[string][]string // parent id -> child ids in insertion order
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
	}
}

// Seed returns the starter tree new sessions open with.
func Seed() *Tree {
	t := NewTree()
	must := func(n *Node, err error) *Node {
		if err != nil {
			panic(err)
		}
		return n
	}
	must(t.create("", "main.js", KindFile, languages.Default().DefaultCode))
	src := must(t.create("", "src", KindFolder, ""))
	must(t.create(src.ID, "utils.js", KindFile, "// Utility functions\nfunction helper() {\n  return \"Helper function\";\n}"))
	components := must(t.create("", "components", KindFolder, ""))
	must(t.create(components.ID, "App.js", KindFile, "import React from \"react\";\n\nfunction App() {\n  return <div>Hello React!</div>;\n}\n\nexport default App;"))
	return t
}

// CreateFile adds a file under parent ("" for top level).
func (t *Tree) CreateFile(parent, name string) (Node, error) {
	n, err := t.create(parent, name, KindFile, NewFileContent)
	if err != nil {
		return Node{}, err
	}
	return *n, nil
}

// CreateFolder adds a collapsed folder under parent ("" for top level).
func (t *Tree) CreateFolder(parent, name string) (Node, error) {
	n, err := t.create(parent, name, KindFolder, "")
	if err != nil {
		return Node{}, err
	}
	return *n, nil
}

func (t *Tree) create(parent, name string, kind Kind, content string) (*Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if parent != "" {
		p, ok := t.nodes[parent]
		if !ok {
			return nil, fmt.Errorf("parent %s: %w", parent, ErrNotFound)
		}
		if p.Kind != KindFolder {
			return nil, fmt.Errorf("parent %s: %w", p.Name, ErrNotFolder)
		}
	}
	if t.nameTakenLocked(parent, name, "") {
		return nil, fmt.Errorf("%s: %w", name, ErrExists)
	}

	n := &Node{ID: uuid.NewString(), Name: name, Kind: kind, Parent: parent, Content: content}
	t.nodes[n.ID] = n
	t.children[parent] = append(t.children[parent], n.ID)
	return n, nil
}

func (t *Tree) nameTakenLocked(parent, name, except string) bool {
	for _, id := range t.children[parent] {
		if id != except && t.nodes[id].Name == name {
			return true
		}
	}
	return false
}

// Rename changes a node's name.
func (t *Tree) Rename(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return ErrNotFound
	}
	if t.nameTakenLocked(n.Parent, name, id) {
		return fmt.Errorf("%s: %w", name, ErrExists)
	}
	n.Name = name
	return nil
}

// Delete removes a node and everything below it. It returns how many nodes
// were removed.
func (t *Tree) Delete(id string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return 0, ErrNotFound
	}

	siblings := t.children[n.Parent]
	for i, sid := range siblings {
		if sid == id {
			t.children[n.Parent] = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	return t.deleteLocked(id), nil
}

func (t *Tree) deleteLocked(id string) int {
	removed := 1
	for _, child := range t.children[id] {
		removed += t.deleteLocked(child)
	}
	delete(t.children, id)
	delete(t.nodes, id)
	return removed
}

// Toggle flips a folder's expansion and returns the new value.
func (t *Tree) Toggle(id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return false, ErrNotFound
	}
	if n.Kind != KindFolder {
		return false, ErrNotFolder
	}
	n.Expanded = !n.Expanded
	return n.Expanded, nil
}

// SetContent replaces a file's content.
func (t *Tree) SetContent(id, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return ErrNotFound
	}
	if n.Kind != KindFile {
		return ErrNotFile
	}
	n.Content = content
	return nil
}

// Get returns a copy of the node.
func (t *Tree) Get(id string) (Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Children lists the nodes directly under parent in insertion order.
func (t *Tree) Children(parent string) []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := t.children[parent]
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, *t.nodes[id])
	}
	return out
}

// Path returns the slash-separated path of a node from the top level.
func (t *Tree) Path(id string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var parts []string
	for id != "" {
		n, ok := t.nodes[id]
		if !ok {
			return "", ErrNotFound
		}
		parts = append([]string{n.Name}, parts...)
		id = n.Parent
	}
	return strings.Join(parts, "/"), nil
}

// Find resolves a slash-separated path.
func (t *Tree) Find(path string) (Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	parent := ""
	var found *Node
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		found = nil
		for _, id := range t.children[parent] {
			if t.nodes[id].Name == part {
				found = t.nodes[id]
				break
			}
		}
		if found == nil {
			return Node{}, false
		}
		parent = found.ID
	}
	if found == nil {
		return Node{}, false
	}
	return *found, true
}

// Walk visits every node depth-first in insertion order.
func (t *Tree) Walk(fn func(n Node, depth int)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.walkLocked("", 0, fn)
}

func (t *Tree) walkLocked(parent string, depth int, fn func(Node, int)) {
	for _, id := range t.children[parent] {
		fn(*t.nodes[id], depth)
		t.walkLocked(id, depth+1, fn)
	}
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// LoadDir imports root from disk. Hidden entries are skipped and files
// larger than maxBytes are imported empty.
func LoadDir(root string, maxBytes int64) (*Tree, error) {
	t := NewTree()
	ids := map[string]string{root: ""}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		parent := ids[filepath.Dir(path)]
		if d.IsDir() {
			n, err := t.create(parent, d.Name(), KindFolder, "")
			if err != nil {
				return err
			}
			ids[path] = n.ID
			return nil
		}

		content := ""
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() <= maxBytes {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			content = string(data)
		}
		_, err = t.create(parent, d.Name(), KindFile, content)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", root, err)
	}

	logging.Workspace("loaded %d nodes from %s", t.Len(), root)
	return t, nil
}
