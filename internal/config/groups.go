package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
)

//go:embed groups.default.yaml
var defaultGroupsYAML []byte

// Cohorts is the immutable table of named groups loaded at startup.
type Cohorts struct {
	groups map[string]models.Group
	source string
}

type cohortSpec struct {
	Description string   `yaml:"description" toml:"description"`
	Members     []string `yaml:"members" toml:"members"`
}

type cohortFile struct {
	Groups map[string]cohortSpec `yaml:"groups" toml:"groups"`
}

// LoadCohorts reads the cohort table from path, or the built-in table when
// path is empty. Files ending in .toml are decoded as TOML, anything else
// as YAML.
func LoadCohorts(path string) (*Cohorts, error) {
	if path == "" {
		return ParseCohorts(defaultGroupsYAML, "yaml", "built-in")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read groups file: %w", err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	return ParseCohorts(data, format, path)
}

// ParseCohorts decodes a cohort table in the given format ("yaml" or "toml").
func ParseCohorts(data []byte, format, source string) (*Cohorts, error) {
	var file cohortFile
	switch format {
	case "toml":
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, fmt.Errorf("failed to parse groups file %s: %w", source, err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse groups file %s: %w", source, err)
		}
	default:
		return nil, fmt.Errorf("unsupported groups format %q", format)
	}

	c := &Cohorts{groups: make(map[string]models.Group, len(file.Groups)), source: source}
	for name, spec := range file.Groups {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if key == models.AllGroup {
			return nil, fmt.Errorf("groups file %s: %q is reserved", source, models.AllGroup)
		}
		if _, dup := c.groups[key]; dup {
			return nil, fmt.Errorf("groups file %s: duplicate group %q", source, key)
		}
		members := lo.Uniq(lo.Compact(lo.Map(spec.Members, func(e string, _ int) string {
			return models.NormalizeEmail(e)
		})))
		sort.Strings(members)
		c.groups[key] = models.Group{Name: key, Description: spec.Description, Members: members}
	}
	return c, nil
}

// Source names where the table came from.
func (c *Cohorts) Source() string {
	return c.source
}

// Get returns a copy of the named group.
func (c *Cohorts) Get(name string) (models.Group, bool) {
	g, ok := c.groups[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return models.Group{}, false
	}
	g.Members = append([]string(nil), g.Members...)
	return g, true
}

// Names returns all group names, sorted.
func (c *Cohorts) Names() []string {
	names := lo.Keys(c.groups)
	sort.Strings(names)
	return names
}

// All returns copies of every group, sorted by name.
func (c *Cohorts) All() []models.Group {
	out := make([]models.Group, 0, len(c.groups))
	for _, name := range c.Names() {
		g, _ := c.Get(name)
		out = append(out, g)
	}
	return out
}
