// Package catalog supplies the entity trees behind the "applies to" pickers
// of the rule forms.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrLoad          = errors.New("catalog load failed")
	ErrUnknownModule = errors.New("unknown catalog module")
)

// Node is one selectable entry of a catalog tree.
type Node struct {
	ID       string `yaml:"id" json:"id"`
	Label    string `yaml:"label" json:"label"`
	Kind     string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Children []Node `yaml:"children,omitempty" json:"children,omitempty"`
}

// Entity is a flattened catalog entry with the labels of its ancestors.
type Entity struct {
	ID    string   `yaml:"id" json:"id"`
	Label string   `yaml:"label" json:"label"`
	Kind  string   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Path  []string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Source is the external catalog collaborator.
type Source interface {
	Tree(ctx context.Context, module string) ([]Node, error)
	Flat(ctx context.Context, module string) ([]Entity, error)
}

// Flatten lists the nodes of tree depth first.
func Flatten(tree []Node) []Entity {
	var out []Entity
	var walk func(nodes []Node, path []string)
	walk = func(nodes []Node, path []string) {
		for _, n := range nodes {
			e := Entity{ID: n.ID, Label: n.Label, Kind: n.Kind}
			if len(path) > 0 {
				e.Path = append([]string(nil), path...)
			}
			out = append(out, e)
			walk(n.Children, append(path, n.Label))
		}
	}
	walk(tree, nil)
	return out
}

// Selection is the catalog data of the selected module.
type Selection struct {
	Module   string    `json:"module"`
	Tree     []Node    `json:"tree"`
	Flat     []Entity  `json:"flat"`
	LoadedAt time.Time `json:"loadedAt"`
}

// Cache loads a module's tree and flat list once per module selection.
type Cache struct {
	mu      sync.Mutex
	src     Source
	current *Selection
	now     func() time.Time
}

func NewCache(src Source) *Cache {
	return &Cache{src: src, now: time.Now}
}

// Select makes module current. Reselecting the current module returns the
// cached data; a failed load keeps the previous selection.
func (c *Cache) Select(ctx context.Context, module string) (*Selection, error) {
	module = strings.ToLower(strings.TrimSpace(module))
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.Module == module {
		return c.current, nil
	}
	tree, err := c.src.Tree(ctx, module)
	if err != nil {
		return nil, fmt.Errorf("%w: tree of %s: %w", ErrLoad, module, err)
	}
	flat, err := c.src.Flat(ctx, module)
	if err != nil {
		return nil, fmt.Errorf("%w: entities of %s: %w", ErrLoad, module, err)
	}
	c.current = &Selection{Module: module, Tree: tree, Flat: flat, LoadedAt: c.now()}
	return c.current, nil
}

// Current returns the selected module data, or nil.
func (c *Cache) Current() *Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Invalidate forgets the current selection so the next Select reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

type fileModule struct {
	Tree []Node   `yaml:"tree"`
	Flat []Entity `yaml:"flat,omitempty"`
}

type fileCatalog struct {
	Modules map[string]fileModule `yaml:"modules"`
}

// FileSource reads catalogs from a YAML file on every call. Modules without
// an explicit flat list get the flattened tree.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource { return &FileSource{Path: path} }

func (f *FileSource) load(module string) (fileModule, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return fileModule{}, err
	}
	var cat fileCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return fileModule{}, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	for name, m := range cat.Modules {
		if strings.EqualFold(name, module) {
			return m, nil
		}
	}
	return fileModule{}, ErrUnknownModule
}

func (f *FileSource) Tree(_ context.Context, module string) ([]Node, error) {
	m, err := f.load(module)
	if err != nil {
		return nil, err
	}
	return m.Tree, nil
}

func (f *FileSource) Flat(_ context.Context, module string) ([]Entity, error) {
	m, err := f.load(module)
	if err != nil {
		return nil, err
	}
	if len(m.Flat) > 0 {
		return m.Flat, nil
	}
	return Flatten(m.Tree), nil
}

// Modules lists the module names present in the file.
func (f *FileSource) Modules() ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var cat fileCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(cat.Modules))
	for name := range cat.Modules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
