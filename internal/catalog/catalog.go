package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dagnyr/canvas-critic/internal/domain"
)

// ErrNotFound indicates the class id has no catalog entry.
var ErrNotFound = errors.New("catalog: class not found")

// Catalog is the immutable class and category listing loaded at startup.
// It is safe for concurrent use.
type Catalog struct {
	classes    []domain.Class
	byID       map[string]int
	categories []domain.Category
}

// Load reads the classes file and, if categoriesPath is non-empty, the
// categories file. Without a categories file the categories are derived from
// the classes.
func Load(classesPath, categoriesPath string) (*Catalog, error) {
	var classes []domain.Class
	if err := readJSON(classesPath, &classes); err != nil {
		return nil, err
	}

	var categories []domain.Category
	if categoriesPath != "" {
		if err := readJSON(categoriesPath, &categories); err != nil {
			return nil, err
		}
	}
	return New(classes, categories)
}

// New builds a catalog from in-memory records. A nil categories slice is
// derived from classes.
func New(classes []domain.Class, categories []domain.Category) (*Catalog, error) {
	c := &Catalog{
		classes: make([]domain.Class, 0, len(classes)),
		byID:    make(map[string]int, len(classes)),
	}
	for i, cls := range classes {
		cls.ID = strings.TrimSpace(cls.ID)
		if cls.ID == "" {
			return nil, fmt.Errorf("catalog: class at index %d has empty id", i)
		}
		if _, dup := c.byID[cls.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate class id %q", cls.ID)
		}
		c.byID[cls.ID] = len(c.classes)
		c.classes = append(c.classes, cls)
	}

	if categories == nil {
		categories = deriveCategories(c.classes)
	}
	c.categories = categories
	return c, nil
}

func readJSON(path string, dst any) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", path, err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return nil
}

func deriveCategories(classes []domain.Class) []domain.Category {
	counts := make(map[string]int)
	for _, cls := range classes {
		counts[cls.Category]++
	}
	out := make([]domain.Category, 0, len(counts))
	for name, n := range counts {
		out = append(out, domain.Category{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Class looks up a class by id.
func (c *Catalog) Class(id string) (domain.Class, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return domain.Class{}, false
	}
	return c.classes[idx], true
}

// Get is Class with an error instead of a flag.
func (c *Catalog) Get(id string) (domain.Class, error) {
	cls, ok := c.Class(id)
	if !ok {
		return domain.Class{}, ErrNotFound
	}
	return cls, nil
}

// Classes returns every class in file order.
func (c *Catalog) Classes() []domain.Class {
	out := make([]domain.Class, len(c.classes))
	copy(out, c.classes)
	return out
}

// ClassesInCategory returns classes whose category matches name exactly.
func (c *Catalog) ClassesInCategory(name string) []domain.Class {
	out := make([]domain.Class, 0)
	for _, cls := range c.classes {
		if cls.Category == name {
			out = append(out, cls)
		}
	}
	return out
}

// Categories returns the category listing.
func (c *Catalog) Categories() []domain.Category {
	out := make([]domain.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Len reports the number of classes.
func (c *Catalog) Len() int {
	return len(c.classes)
}
