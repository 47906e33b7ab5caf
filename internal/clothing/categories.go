package clothing

// Category is a tag-based clothing filter: an item belongs to the category
// when it carries at least one Include tag and none of the Exclude tags.
type Category struct {
	Include []string
	Exclude []string
}

// Categories maps category names to their tag sets.
var Categories = map[string]Category{
	"formal": {
		Include: []string{"formal", "elegant", "dress", "suit"},
		Exclude: []string{"casual", "sportswear", "sleepwear", "torn"},
	},
	"casual": {
		Include: []string{"casual", "everyday", "comfortable"},
		Exclude: []string{"formal", "armor"},
	},
	"sleepwear": {
		Include: []string{"sleepwear", "pajamas", "nightwear"},
		Exclude: []string{"armor"},
	},
	"sportswear": {
		Include: []string{"sportswear", "athletic", "training"},
		Exclude: []string{"formal"},
	},
	"armor": {
		Include: []string{"armor", "protective", "plate", "mail"},
	},
	"waterproof": {
		Include: []string{"waterproof", "water_resistant"},
		Exclude: []string{"absorbent"},
	},
}

// Admits reports whether a wearable with the given tags belongs to c.
func (c Category) Admits(w Wearable) bool {
	for _, t := range c.Exclude {
		if w.HasTag(t) {
			return false
		}
	}
	for _, t := range c.Include {
		if w.HasTag(t) {
			return true
		}
	}
	return false
}
