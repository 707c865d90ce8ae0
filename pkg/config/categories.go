package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category holds the match configuration for one POI category.
// Order of declaration is the tag-match priority order.
type Category struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Icon     string `json:"icon" yaml:"icon"`
	OSMKey   string `json:"osm_key" yaml:"osm_key"`
	// OSMValues restricts the match to these tag values. Empty = any value.
	OSMValues []string `json:"osm_values" yaml:"osm_values"`
	// NodeOnly limits the query clause to node elements.
	NodeOnly bool `json:"node_only" yaml:"node_only"`
	// Keywords feed the text classifier fallback when no tag matched.
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// MatchesTag reports whether the given tag key/value satisfies the category.
func (c *Category) MatchesTag(key, value string) bool {
	if key != c.OSMKey {
		return false
	}
	if len(c.OSMValues) == 0 {
		return true
	}
	for _, v := range c.OSMValues {
		if v == value {
			return true
		}
	}
	return false
}

// CategoriesConfig holds the ordered category set.
type CategoriesConfig struct {
	Categories []Category `json:"categories" yaml:"categories"`

	// Internal lookup for O(1) id checking
	byID map[string]*Category
}

// DefaultCategory is announced when neither tags nor keywords match.
const DefaultCategory = "tourism"

// DefaultCategories returns the built-in category set.
func DefaultCategories() *CategoriesConfig {
	cfg := &CategoriesConfig{
		Categories: []Category{
			{
				ID:     "historical",
				Name:   "Исторические объекты",
				Icon:   "🏛️",
				OSMKey: "historic",
				Keywords: []string{
					"battle", "fortress", "monument", "memorial", "ancient",
					"крепост", "битв", "памятник", "историч",
				},
			},
			{
				ID:        "religious_buildings",
				Name:      "Религиозные здания",
				Icon:      "⛪",
				OSMKey:    "building",
				OSMValues: []string{"church", "cathedral", "chapel", "mosque", "temple", "synagogue"},
				Keywords: []string{
					"church", "cathedral", "chapel", "mosque", "temple", "synagogue",
					"церковь", "собор", "мечеть", "храм", "синагог",
				},
			},
			{
				ID:        "religion",
				Name:      "Религиозная принадлежность",
				Icon:      "📿",
				OSMKey:    "religion",
				OSMValues: []string{"christian", "muslim", "buddhist"},
				NodeOnly:  true,
				Keywords: []string{
					"christian", "muslim", "buddhist",
					"христиан", "мусульман", "буддист",
				},
			},
			{
				ID:        "denomination",
				Name:      "Конфессии",
				Icon:      "✝️",
				OSMKey:    "denomination",
				OSMValues: []string{"orthodox", "catholic"},
				NodeOnly:  true,
				Keywords: []string{
					"orthodox", "catholic",
					"православн", "католич",
				},
			},
			{
				ID:        "tourism",
				Name:      "Туристические",
				Icon:      "🏨",
				OSMKey:    "tourism",
				OSMValues: []string{"attraction", "museum", "artwork", "viewpoint", "information", "hotel", "guest_house"},
				Keywords: []string{
					"attraction", "museum", "artwork", "viewpoint", "information", "hotel", "guest_house",
					"достопримечательн", "музей", "обзорн", "информацион", "отель", "гостев",
				},
			},
		},
	}
	cfg.buildLookup()
	return cfg
}

// LoadCategories loads a category configuration from a YAML file, falling
// back to the built-in set when the file does not exist.
func LoadCategories(path string) (*CategoriesConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultCategories(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}

	var cfg CategoriesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse categories file: %w", err)
	}
	if len(cfg.Categories) == 0 {
		return nil, fmt.Errorf("categories file %s defines no categories", path)
	}

	// Normalize ids to lowercase so lookups don't have to.
	for i := range cfg.Categories {
		cfg.Categories[i].ID = strings.ToLower(cfg.Categories[i].ID)
	}
	cfg.buildLookup()

	return &cfg, nil
}

func (c *CategoriesConfig) buildLookup() {
	c.byID = make(map[string]*Category, len(c.Categories))
	for i := range c.Categories {
		c.byID[c.Categories[i].ID] = &c.Categories[i]
	}
}

// Get returns the category with the given id.
func (c *CategoriesConfig) Get(id string) (*Category, bool) {
	cat, ok := c.byID[strings.ToLower(id)]
	return cat, ok
}

// GetIcon returns the icon for a category id, or empty string.
func (c *CategoriesConfig) GetIcon(id string) string {
	if cat, ok := c.Get(id); ok {
		return cat.Icon
	}
	return ""
}

// IDs returns the category ids in declaration order.
func (c *CategoriesConfig) IDs() []string {
	ids := make([]string, len(c.Categories))
	for i := range c.Categories {
		ids[i] = c.Categories[i].ID
	}
	return ids
}
