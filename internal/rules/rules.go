// Package rules holds the token grammar used to classify and extract listing
// messages. The built-in grammar covers the conventions agents use in group
// chats; deployments can overlay it with a YAML file.
package rules

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Pattern pairs a canonical label with a case-insensitive regular expression.
type Pattern struct {
	Label   string `yaml:"label"`
	Pattern string `yaml:"pattern"`
}

// Rules is the full grammar. Empty sections in a loaded file keep the defaults.
type Rules struct {
	RejectPhrases []string  `yaml:"reject_phrases"`
	Currencies    []string  `yaml:"currencies"`
	SizeUnits     []Pattern `yaml:"size_units"`
	UnitTypes     []string  `yaml:"unit_types"`
	Statuses      []Pattern `yaml:"statuses"`
	DatePatterns  []string  `yaml:"date_patterns"`
	// CountWords follow numbers that count things rather than price them,
	// as in "1500 units".
	CountWords []string `yaml:"count_words"`
}

const monthRE = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?`

// Default returns the built-in grammar.
func Default() Rules {
	return Rules{
		RejectPhrases: []string{
			"thanks",
			"any update",
			"?",
			"how much",
			"interested",
			"availability",
			"payment plan",
			"how many bedrooms",
			"can you",
			"are you",
			"what is",
		},
		Currencies: []string{"AED", "USD", "SGD", "INR", "EUR", "GBP", "QAR", "SAR", "OMR", "MYR", "RM", "Rs", "Dhs", "$", "£", "€", "₹"},
		SizeUnits: []Pattern{
			{Label: "sqft", Pattern: `sq\.?\s*f(?:ee)?t\.?|sqft|square\s+f(?:ee)?t|ft²|ft2|sf\b`},
			{Label: "sqm", Pattern: `sq\.?\s*m(?:et(?:er|re)s?)?\b\.?|sqm|square\s+met(?:er|re)s?|m²|m2\b`},
		},
		UnitTypes: []string{"studio", "penthouse", "duplex", "townhouse", "villa", "loft", "office", "shop", "retail", "plot"},
		Statuses: []Pattern{
			{Label: "Pre-launch", Pattern: `pre[\s-]?launch`},
			{Label: "Off-plan", Pattern: `off[\s-]?plan`},
			{Label: "Sold out", Pattern: `sold[\s-]?out`},
			{Label: "Under construction", Pattern: `under[\s-]construction`},
			{Label: "Ready", Pattern: `ready(?:\s+to\s+move)?`},
			{Label: "Launched", Pattern: `new\s+launch|launched`},
		},
		DatePatterns: []string{
			`Q[1-4]\s*['’]?\s*(?:20)?\d{2}`,
			`H[12]\s*['’]?\s*(?:20)?\d{2}`,
			`\d{4}-\d{2}-\d{2}\b`,
			`\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}`,
			`\d{1,2}(?:st|nd|rd|th)?\s+` + monthRE + `,?\s+\d{4}`,
			monthRE + `\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`,
			monthRE + `,?\s+\d{4}`,
		},
		CountWords: []string{
			"unit", "units", "apartment", "apartments", "home", "homes", "residence", "residences",
			"floor", "floors", "storey", "storeys", "stories", "tower", "towers", "building", "buildings",
			"parking", "bay", "bays", "space", "spaces", "room", "rooms", "key", "keys",
			"people", "families", "visitors", "sold", "booked", "left",
		},
	}
}

// Load reads a YAML grammar file and overlays it on the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (Rules, error) {
	r := Default()
	if path == "" {
		return r, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	var file Rules
	if err := yaml.Unmarshal(b, &file); err != nil {
		return Rules{}, fmt.Errorf("parse rules file: %w", err)
	}
	r.overlay(file)
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func (r *Rules) overlay(o Rules) {
	if len(o.RejectPhrases) > 0 {
		r.RejectPhrases = o.RejectPhrases
	}
	if len(o.Currencies) > 0 {
		r.Currencies = o.Currencies
	}
	if len(o.SizeUnits) > 0 {
		r.SizeUnits = o.SizeUnits
	}
	if len(o.UnitTypes) > 0 {
		r.UnitTypes = o.UnitTypes
	}
	if len(o.Statuses) > 0 {
		r.Statuses = o.Statuses
	}
	if len(o.DatePatterns) > 0 {
		r.DatePatterns = o.DatePatterns
	}
	if len(o.CountWords) > 0 {
		r.CountWords = o.CountWords
	}
}

// Validate checks that every pattern compiles.
func (r Rules) Validate() error {
	for _, p := range r.SizeUnits {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return fmt.Errorf("size unit %q: %w", p.Label, err)
		}
	}
	for _, p := range r.Statuses {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return fmt.Errorf("status %q: %w", p.Label, err)
		}
	}
	for _, p := range r.DatePatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("date pattern %q: %w", p, err)
		}
	}
	return nil
}
