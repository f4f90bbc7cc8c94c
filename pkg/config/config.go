// Package config loads scope.cfg files and exposes typed, access-tracked
// option getters per section.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/ini.v1"
)

// Config provides access to a configuration file with access tracking.
type Config struct {
	mu       sync.RWMutex
	path     string
	sections map[string]*Section
	order    []string // Maintains section order

	accessedSections map[string]struct{}
}

// New creates a new empty Config.
func New() *Config {
	return &Config{
		sections:         make(map[string]*Section),
		accessedSections: make(map[string]struct{}),
	}
}

// loadOptions keeps '#' inside values (colors are written "#ff0"); only
// " #" and " ;" start an inline comment.
var loadOptions = ini.LoadOptions{
	SpaceBeforeInlineComment: true,
	AllowBooleanKeys:         false,
	KeyValueDelimiters:       ":=",
}

// Load reads a configuration file and returns a Config.
func Load(path string) (*Config, error) {
	f, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return nil, fmt.Errorf("config: unable to load %s: %w", path, err)
	}
	c := fromINI(f)
	c.path = path
	return c, nil
}

// LoadOrDefault loads path, returning an empty Config when path is empty
// or the file does not exist. Every getter then falls back to its default.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return New(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		c := New()
		c.path = path
		return c, nil
	}
	return Load(path)
}

// LoadString parses a configuration from a string.
func LoadString(data string) (*Config, error) {
	f, err := ini.LoadSources(loadOptions, []byte(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse error: %w", err)
	}
	return fromINI(f), nil
}

func fromINI(f *ini.File) *Config {
	c := New()
	for _, sec := range f.Sections() {
		keys := sec.Keys()
		// ini always has a DEFAULT section; options before the first
		// header are ignored, as they have no section to belong to.
		if sec.Name() == ini.DefaultSection {
			continue
		}
		opts := make(map[string]string, len(keys))
		for _, k := range keys {
			opts[k.Name()] = k.String()
		}
		c.addSection(sec.Name(), opts)
	}
	return c
}

// addSection adds or merges a section; later options win.
func (c *Config) addSection(name string, options map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(name)
	if existing, ok := c.sections[key]; ok {
		for k, v := range options {
			existing.options[strings.ToLower(k)] = v
		}
		return
	}
	c.sections[key] = newSection(name, options)
	c.order = append(c.order, key)
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// GetSection returns a section by name, or an error if it does not exist.
func (c *Config) GetSection(name string) (*Section, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(name)
	s, ok := c.sections[key]
	if !ok {
		return nil, ErrMissingSection(name)
	}
	c.accessedSections[key] = struct{}{}
	return s, nil
}

// GetSectionOptional returns a section by name. A missing section yields an
// empty one, so callers can read defaults without checking existence.
func (c *Config) GetSectionOptional(name string) *Section {
	if s, err := c.GetSection(name); err == nil {
		return s
	}
	return newSection(name, nil)
}

// HasSection checks if a section exists.
func (c *Config) HasSection(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sections[strings.ToLower(name)]
	return ok
}

// GetSectionNames returns section names in file order.
func (c *Config) GetSectionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.order))
	for _, key := range c.order {
		names = append(names, c.sections[key].GetName())
	}
	return names
}

// GetUnusedSections returns sections that were never looked up.
func (c *Config) GetUnusedSections() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var unused []string
	for _, key := range c.order {
		if _, ok := c.accessedSections[key]; !ok {
			unused = append(unused, c.sections[key].GetName())
		}
	}
	return unused
}

// UnusedOptions maps each accessed section to its options that were never
// read. Typos in scope.cfg show up here.
func (c *Config) UnusedOptions() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]string)
	for key := range c.accessedSections {
		if opts := c.sections[key].GetUnusedOptions(); len(opts) > 0 {
			sort.Strings(opts)
			out[c.sections[key].GetName()] = opts
		}
	}
	return out
}
