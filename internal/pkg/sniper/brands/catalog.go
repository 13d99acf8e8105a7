package brands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Unknown is returned by Detect when no brand matches
const Unknown = "unknown"

// excluded brand keys are dropped at load time
var excluded = []string{"undercoverism"}

// Brand is one designer from brands.json
type Brand struct {
	Name     string   `json:"name"`
	Variants []string `json:"variants"`
}

// PrimaryVariant is the search term used for keyword generation
func (b Brand) PrimaryVariant() string {
	if len(b.Variants) > 0 && b.Variants[0] != "" {
		return b.Variants[0]
	}
	return b.Name
}

// Catalog is the ordered brand list. Order follows the file so detection is
// deterministic when a title names two brands.
type Catalog struct {
	brands []Brand
	byName map[string]int
}

// Parse reads the brands.json object, keeping key order
func Parse(data []byte) (*Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read brands: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("brands file must be a JSON object")
	}

	c := &Catalog{byName: make(map[string]int)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read brand name: %w", err)
		}
		name, _ := keyTok.(string)

		var info struct {
			Variants []string `json:"variants"`
		}
		if err := dec.Decode(&info); err != nil {
			return nil, fmt.Errorf("failed to read brand %q: %w", name, err)
		}

		if isExcluded(name) {
			continue
		}
		c.byName[strings.ToLower(name)] = len(c.brands)
		c.brands = append(c.brands, Brand{Name: name, Variants: info.Variants})
	}

	return c, nil
}

// Load reads and parses a brands file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open brands file: %w", err)
	}
	return Parse(data)
}

func isExcluded(name string) bool {
	lower := strings.ToLower(name)
	for _, e := range excluded {
		if strings.Contains(lower, e) {
			return true
		}
	}
	return false
}

// Brands returns the brands in file order
func (c *Catalog) Brands() []Brand {
	return c.brands
}

// Len returns the number of brands
func (c *Catalog) Len() int {
	return len(c.brands)
}

// Lookup finds a brand by name, case-insensitively
func (c *Catalog) Lookup(name string) (Brand, bool) {
	i, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return Brand{}, false
	}
	return c.brands[i], true
}

// Detect returns the first brand whose name or a variant appears in title
func (c *Catalog) Detect(title string) string {
	if title == "" {
		return Unknown
	}

	lower := strings.ToLower(title)
	for _, b := range c.brands {
		if strings.Contains(lower, strings.ToLower(b.Name)) {
			return b.Name
		}
		for _, v := range b.Variants {
			if v != "" && strings.Contains(lower, strings.ToLower(v)) {
				return b.Name
			}
		}
	}
	return Unknown
}

// Keywords builds up to limit search terms for a brand
func Keywords(b Brand, limit int) []string {
	if limit <= 0 {
		return nil
	}

	primary := b.PrimaryVariant()
	keywords := []string{primary}
	if limit > 1 {
		keywords = append(keywords, primary+" fw", primary+" ss")
	}
	if limit > 3 {
		keywords = append(keywords, primary+" jacket", primary+" pants")
	}

	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return keywords
}
