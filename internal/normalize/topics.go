// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package normalize

import (
	"unicode/utf8"

	"github.com/vinsight/vinsight/internal/match"
)

// OtherTopic is the fallback label for queries no taxonomy term or catalog
// entity matches.
const OtherTopic = "other"

// minEntityRunes filters out catalog entity names too short to be
// meaningful substrings ("de", "la").
const minEntityRunes = 3

// Taxonomy is the fixed global topic list for beverage storefronts,
// English and Hebrew terms mixed. Classification is greedy longest-match;
// ties on length resolve to the earlier entry, so broad catch-alls sit at
// the end of the list.
var Taxonomy = []string{
	// varietals and styles
	"cabernet sauvignon", "sauvignon blanc", "pinot noir", "pinot grigio",
	"cabernet franc", "chenin blanc", "petite sirah", "gewurztraminer",
	"chardonnay", "riesling", "merlot", "malbec", "shiraz", "syrah",
	"carignan", "grenache", "viognier", "semillon", "moscato", "muscat",
	"lambrusco", "prosecco", "champagne", "cava", "brut",
	"red wine", "white wine", "dessert wine", "orange wine", "natural wine",
	"kosher wine", "sparkling", "rose", "port", "sherry", "vermouth",
	// spirits and adjacent
	"single malt", "whiskey", "whisky", "bourbon", "scotch", "vodka", "gin",
	"tequila", "arak", "brandy", "cognac", "liqueur", "rum", "sake",
	"beer", "cider",
	// occasions and gear
	"gift", "sale", "accessories", "glasses", "decanter", "corkscrew",
	// hebrew
	"קברנה סוביניון", "סוביניון בלאן", "פינו נואר", "שרדונה", "מרלו",
	"מלבק", "סירה", "ריזלינג", "גוורצטרמינר", "מוסקט",
	"יין אדום", "יין לבן", "יין רוזה", "יין מבעבע", "יין כשר",
	"יין מתוק", "יין יבש", "שמפניה", "פרוסקו", "קאווה", "רוזה",
	"וויסקי", "ויסקי", "וודקה", "עראק", "קוניאק", "ברנדי", "בירה",
	"מתנה", "מארז", "מבצע", "אביזרים", "כוסות", "פותחן",
	// catch-alls, shortest so any longer term above beats them
	"wine", "יין",
}

var taxonomyMatcher = newTermMatcher(Taxonomy)

func newTermMatcher(terms []string) *match.Matcher {
	patterns := make([]match.Pattern, 0, len(terms))
	for _, term := range terms {
		patterns = append(patterns, match.Pattern{Text: Query(term)})
	}
	return match.NewMatcher(patterns...)
}

// Classifier maps normalized queries to topic labels. Catalog entity names
// (wineries, brands) take priority over the global taxonomy so that a store
// selling "Recanati" rolls those searches under the winery, not under
// whatever generic term happens to co-occur.
type Classifier struct {
	entities *match.Matcher
}

// NewClassifier builds a classifier seeded with the store's catalog entity
// names. Names are normalized like queries; names shorter than three runes
// after normalization are ignored. A nil or empty entity list yields a
// taxonomy-only classifier.
func NewClassifier(entityNames []string) *Classifier {
	patterns := make([]match.Pattern, 0, len(entityNames))
	for _, name := range entityNames {
		n := Query(name)
		if utf8.RuneCountInString(n) < minEntityRunes {
			continue
		}
		patterns = append(patterns, match.Pattern{Text: n})
	}
	return &Classifier{entities: match.NewMatcher(patterns...)}
}

// Classify returns the topic label for an already-normalized query:
// the longest matching catalog entity, else the longest matching taxonomy
// term, else OtherTopic. Ties on match length go to the earlier entry.
func (c *Classifier) Classify(normalizedQuery string) string {
	if normalizedQuery == "" {
		return OtherTopic
	}
	if c != nil && c.entities != nil {
		if m, ok := c.entities.Longest(normalizedQuery); ok {
			return m.Pattern
		}
	}
	if m, ok := taxonomyMatcher.Longest(normalizedQuery); ok {
		return m.Pattern
	}
	return OtherTopic
}
