package classifier

import (
	"strings"

	"geoguidego/pkg/config"
)

// rule is one compiled keyword rule. Rules are evaluated in category
// declaration order; the first hit wins.
type rule struct {
	category string
	keywords []string
}

// Classifier assigns a category to a POI from its title and description
// when tag matching found nothing. Matching is case-insensitive substring
// containment, which also covers inflected Cyrillic stems ("крепост"
// matches "Крепостная стена").
type Classifier struct {
	rules    []rule
	fallback string
}

// New compiles the keyword rules from the category configuration.
func New(cfg *config.CategoriesConfig) *Classifier {
	c := &Classifier{fallback: config.DefaultCategory}
	for _, cat := range cfg.Categories {
		if len(cat.Keywords) == 0 {
			continue
		}
		kws := make([]string, len(cat.Keywords))
		for i, kw := range cat.Keywords {
			kws[i] = strings.ToLower(kw)
		}
		c.rules = append(c.rules, rule{category: cat.ID, keywords: kws})
	}
	return c
}

// Classify returns the category id for the given title and description.
// Falls back to the default category when nothing matches.
func (c *Classifier) Classify(title, description string) string {
	text := strings.ToLower(title + " " + description)
	for _, r := range c.rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.category
			}
		}
	}
	return c.fallback
}
