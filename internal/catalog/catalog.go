// Package catalog holds the process-wide, read-only registry mapping
// model names to one-hot bits in a 64-bit model mask.
package catalog

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MaxModels is the hard cap on distinct models a single process can track.
const MaxModels = 64

// Limits describes provider-advertised limits for a model, surfaced verbatim
// in model-list responses.
type Limits struct {
	MaxInputTokens  int64
	MaxOutputTokens int64
}

// Model is a single catalog entry.
type Model struct {
	Name                       string
	Mask                       uint64
	SupportedGenerationMethods []string
	Limits                     Limits
}

// Catalog is a static, read-only-after-init registry of models.
type Catalog struct {
	mu      sync.RWMutex
	byName  map[string]*Model
	byMask  map[uint64]*Model
	ordered []*Model
}

// New builds a Catalog from the given model definitions. Bit order is
// assigned by a content-hashed sort over the model names so that the same
// set of names always yields the same bit assignment across restarts,
// regardless of the order callers supply them in.
func New(models []Model) (*Catalog, error) {
	if len(models) > MaxModels {
		return nil, fmt.Errorf("catalog: %d models exceeds max of %d", len(models), MaxModels)
	}

	names := make([]string, 0, len(models))
	byName := make(map[string]Model, len(models))
	for _, m := range models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog: model name must not be blank")
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("catalog: duplicate model name %q", name)
		}
		byName[name] = m
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		return stableOrderKey(names[i]) < stableOrderKey(names[j])
	})

	c := &Catalog{
		byName: make(map[string]*Model, len(names)),
		byMask: make(map[uint64]*Model, len(names)),
	}
	for i, name := range names {
		m := byName[name]
		m.Name = name
		m.Mask = uint64(1) << uint(i)
		entry := m
		c.byName[name] = &entry
		c.byMask[entry.Mask] = &entry
		c.ordered = append(c.ordered, &entry)
	}
	return c, nil
}

// stableOrderKey content-hashes a model name into a sortable, deterministic
// key so bit assignment order survives process restarts independent of
// config-file ordering.
func stableOrderKey(name string) string {
	sum := sha256.Sum256([]byte(name))
	return string(sum[:])
}

// Mask returns the one-hot bit for a known model name.
func (c *Catalog) Mask(name string) (uint64, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byName[strings.TrimSpace(name)]
	if !ok {
		return 0, false
	}
	return m.Mask, true
}

// Lookup returns the full Model entry for a name.
func (c *Catalog) Lookup(name string) (Model, bool) {
	if c == nil {
		return Model{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byName[strings.TrimSpace(name)]
	if !ok {
		return Model{}, false
	}
	return *m, true
}

// NamesFor enumerates every model name whose bit is set in mask.
func (c *Catalog) NamesFor(mask uint64) []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var names []string
	for _, m := range c.ordered {
		if mask&m.Mask != 0 {
			names = append(names, m.Name)
		}
	}
	return names
}

// All returns every registered model, in stable bit order.
func (c *Catalog) All() []Model {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Model, len(c.ordered))
	for i, m := range c.ordered {
		out[i] = *m
	}
	return out
}

// FullMask returns a mask with every registered model's bit set, used when a
// credential supports "all" models.
func (c *Catalog) FullMask() uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var mask uint64
	for _, m := range c.ordered {
		mask |= m.Mask
	}
	return mask
}

// MaskFromNames ORs together the masks for a list of model names, ignoring
// unknown names.
func (c *Catalog) MaskFromNames(names []string) uint64 {
	var mask uint64
	for _, n := range names {
		if bit, ok := c.Mask(n); ok {
			mask |= bit
		}
	}
	return mask
}
