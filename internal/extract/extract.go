// Package extract turns a listing message into structured listing fields.
//
// The grammar is rule based and best effort:
//   - the first non-empty line is the title, split on the last " by " into
//     project and developer
//   - the remaining lines are scanned for unit variants, each made of a price,
//     a size and a unit type, in the order they appear
//   - the whole text is scanned for a sales status and a launch date
//
// Extraction never fails. Input the grammar does not understand yields a
// record with placeholder arrays and the verbatim text in Notes.
package extract

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"propertybot/internal/rules"
)

// Result holds the fields extracted from one message.
type Result struct {
	Developer  string
	Project    string
	Prices     []float64
	Sizes      []string
	UnitTypes  []string
	Status     string
	LaunchDate string
	Notes      string
	// Units is the number of unit variants detected. Zero means the arrays
	// hold a single placeholder element each.
	Units int
}

// Degraded reports that no unit variant was recognised.
func (r Result) Degraded() bool {
	return r.Units == 0
}

type labeledRE struct {
	label string
	re    *regexp.Regexp
}

// Extractor applies a compiled grammar. It is immutable after New and safe
// for concurrent use.
type Extractor struct {
	sizeREs   []labeledRE
	bedroomRE *regexp.Regexp
	unitRE    *regexp.Regexp
	priceRE   *regexp.Regexp
	countRE   *regexp.Regexp
	maskREs   []*regexp.Regexp
	statusREs []labeledRE
	dateREs   []*regexp.Regexp
	lang      language.Tag
}

const numberRE = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`

var (
	bedroomRE = regexp.MustCompile(`(?i)\b(\d{1,2})\s*-?\s*(?:br|bhk|bed(?:room)?s?|b/r)\b`)

	phoneREs = []*regexp.Regexp{
		regexp.MustCompile(`\+\d[\d\s().-]{7,}\d`),
		regexp.MustCompile(`\b\d{9,}\b`),
	}

	magnitudes = map[string]float64{
		"k":       1e3,
		"m":       1e6,
		"mn":      1e6,
		"mil":     1e6,
		"million": 1e6,
		"b":       1e9,
		"bn":      1e9,
		"billion": 1e9,
	}
)

// New compiles r into an Extractor.
func New(r rules.Rules) (*Extractor, error) {
	e := &Extractor{
		bedroomRE: bedroomRE,
		maskREs:   phoneREs,
		lang:      language.English,
	}

	for _, u := range r.SizeUnits {
		re, err := regexp.Compile(`(?i)\b` + numberRE + `\s*(?:` + u.Pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("compile size unit %q: %w", u.Label, err)
		}
		e.sizeREs = append(e.sizeREs, labeledRE{label: u.Label, re: re})
	}

	if len(r.UnitTypes) > 0 {
		words := make([]string, 0, len(r.UnitTypes))
		for _, w := range r.UnitTypes {
			words = append(words, regexp.QuoteMeta(strings.ToLower(w)))
		}
		e.unitRE = regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)s?\b`)
	}

	cur := currencyRE(r.Currencies)
	price := `(?i)(` + cur + `)?\s*\.?\s*` + numberRE +
		`(?:\s*(million|mil|mn|m|billion|bn|b|k)\b)?(?:\s*(` + cur + `))?`
	re, err := regexp.Compile(price)
	if err != nil {
		return nil, fmt.Errorf("compile price pattern: %w", err)
	}
	e.priceRE = re

	if len(r.CountWords) > 0 {
		words := make([]string, 0, len(r.CountWords))
		for _, w := range r.CountWords {
			words = append(words, regexp.QuoteMeta(w))
		}
		e.countRE = regexp.MustCompile(`(?i)^\s+(?:` + strings.Join(words, "|") + `)\b`)
	}

	for _, s := range r.Statuses {
		re, err := regexp.Compile(`(?i)\b(?:` + s.Pattern + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("compile status %q: %w", s.Label, err)
		}
		e.statusREs = append(e.statusREs, labeledRE{label: s.Label, re: re})
	}

	for _, d := range r.DatePatterns {
		re, err := regexp.Compile(`(?i)\b(?:` + d + `)`)
		if err != nil {
			return nil, fmt.Errorf("compile date pattern %q: %w", d, err)
		}
		e.dateREs = append(e.dateREs, re)
	}

	return e, nil
}

// MustNew is New for grammars known to be valid, such as rules.Default().
func MustNew(r rules.Rules) *Extractor {
	e, err := New(r)
	if err != nil {
		panic(err)
	}
	return e
}

func currencyRE(currencies []string) string {
	if len(currencies) == 0 {
		return `\$`
	}
	parts := make([]string, 0, len(currencies))
	for _, c := range currencies {
		q := regexp.QuoteMeta(c)
		if r := []rune(c); len(r) > 0 && unicode.IsLetter(r[0]) {
			q = `\b` + q + `\b`
		}
		parts = append(parts, q)
	}
	return `(?:` + strings.Join(parts, "|") + `)`
}

// Extract parses text. Notes always equals text.
func (e *Extractor) Extract(text string) Result {
	res := Result{Notes: text}

	lines := splitLines(text)
	titleIdx := -1
	for i, l := range lines {
		if l != "" {
			titleIdx = i
			break
		}
	}
	if titleIdx >= 0 {
		res.Project, res.Developer = splitTitle(lines[titleIdx])

		var tokens []token
		for _, l := range lines[titleIdx+1:] {
			if l == "" {
				continue
			}
			tokens = append(tokens, e.lineTokens(l)...)
		}
		res.Prices, res.Sizes, res.UnitTypes, res.Units = groupUnits(tokens)
	}

	if res.Units == 0 {
		res.Prices = []float64{0}
		res.Sizes = []string{""}
		res.UnitTypes = []string{""}
	}

	res.Status = e.findStatus(text)
	res.LaunchDate = e.findDate(text)
	return res
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = strings.TrimSpace(l)
	}
	return out
}

// splitTitle splits on the last case-insensitive " by ". The separator is
// located on the line's own bytes so offsets stay valid for any UTF-8 input.
func splitTitle(line string) (project, developer string) {
	idx := lastBy(line)
	if idx < 0 {
		return line, ""
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+len(" by "):])
}

// lastBy returns the byte offset of the last ASCII " by " in s, ignoring case,
// or -1. Bytes of multi-byte runes never match ASCII, so no rune is split.
func lastBy(s string) int {
	for i := len(s) - 4; i >= 0; i-- {
		if s[i] == ' ' && s[i+3] == ' ' && s[i+1]|0x20 == 'b' && s[i+2]|0x20 == 'y' {
			return i
		}
	}
	return -1
}

func (e *Extractor) findStatus(text string) string {
	best, bestStart := "", -1
	for _, s := range e.statusREs {
		loc := s.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if bestStart < 0 || loc[0] < bestStart {
			best, bestStart = s.label, loc[0]
		}
	}
	return best
}

func (e *Extractor) findDate(text string) string {
	var best []int
	for _, re := range e.dateREs {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best == nil || loc[0] < best[0] || (loc[0] == best[0] && loc[1] > best[1]) {
			best = loc
		}
	}
	if best == nil {
		return ""
	}
	return strings.TrimSpace(text[best[0]:best[1]])
}

type tokenKind int

const (
	kindMask tokenKind = iota
	kindPrice
	kindSize
	kindUnitType
)

type token struct {
	kind       tokenKind
	start, end int
	text       string
	price      float64
}

// lineTokens finds size, unit-type and price tokens in one line. Dates and
// phone numbers are masked out before prices are scanned so their digits are
// not read as amounts.
func (e *Extractor) lineTokens(line string) []token {
	var spans []token

	for _, s := range e.sizeREs {
		for _, m := range s.re.FindAllStringSubmatchIndex(line, -1) {
			spans = append(spans, token{kind: kindSize, start: m[0], end: m[1], text: line[m[2]:m[3]] + " " + s.label})
		}
	}
	for _, m := range e.bedroomRE.FindAllStringSubmatchIndex(line, -1) {
		n, _ := strconv.Atoi(line[m[2]:m[3]])
		spans = append(spans, token{kind: kindUnitType, start: m[0], end: m[1], text: strconv.Itoa(n) + "BR"})
	}
	if e.unitRE != nil {
		caser := cases.Title(e.lang)
		for _, m := range e.unitRE.FindAllStringSubmatchIndex(line, -1) {
			label := caser.String(strings.ToLower(line[m[2]:m[3]]))
			spans = append(spans, token{kind: kindUnitType, start: m[0], end: m[1], text: label})
		}
	}
	for _, re := range e.dateREs {
		for _, m := range re.FindAllStringIndex(line, -1) {
			spans = append(spans, token{kind: kindMask, start: m[0], end: m[1]})
		}
	}
	for _, re := range e.maskREs {
		for _, m := range re.FindAllStringIndex(line, -1) {
			spans = append(spans, token{kind: kindMask, start: m[0], end: m[1]})
		}
	}

	kept := dropOverlaps(spans)

	masked := []byte(line)
	for _, t := range kept {
		for i := t.start; i < t.end; i++ {
			masked[i] = ' '
		}
	}

	out := make([]token, 0, len(kept))
	for _, t := range kept {
		if t.kind != kindMask {
			out = append(out, t)
		}
	}
	out = append(out, e.priceTokens(string(masked), len(out) > 0)...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// dropOverlaps keeps the earliest span at each position, preferring the
// longer one when two start together.
func dropOverlaps(spans []token) []token {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})
	var kept []token
	lastEnd := 0
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		kept = append(kept, s)
		lastEnd = s.end
	}
	return kept
}

// priceTokens scans line for amounts. A bare number, with neither currency
// nor magnitude, counts only on a line that also names a size or unit type,
// and never when a count word follows it.
func (e *Extractor) priceTokens(line string, unitContext bool) []token {
	var out []token
	for _, m := range e.priceRE.FindAllStringSubmatchIndex(line, -1) {
		numStart, numEnd := m[4], m[5]
		hasCurrency := m[2] >= 0 || m[8] >= 0
		mag := ""
		if m[6] >= 0 {
			mag = strings.ToLower(line[m[6]:m[7]])
		}

		if !hasCurrency {
			if numStart > 0 && isAlnum(line[numStart-1]) {
				continue
			}
			if mag == "" && numEnd < len(line) && (isAlpha(line[numEnd]) || line[numEnd] == '%') {
				continue
			}
		}

		numText := line[numStart:numEnd]
		v, err := strconv.ParseFloat(strings.ReplaceAll(numText, ",", ""), 64)
		if err != nil {
			continue
		}
		if mag != "" {
			v *= magnitudes[mag]
		} else if !hasCurrency {
			if !unitContext || v < 1000 || looksLikeYear(numText) {
				continue
			}
			if e.countRE != nil && e.countRE.MatchString(line[numEnd:]) {
				continue
			}
		}

		out = append(out, token{
			kind:  kindPrice,
			start: numStart,
			end:   m[1],
			price: math.Round(v*100) / 100,
		})
	}
	return out
}

func looksLikeYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	y, err := strconv.Atoi(s)
	return err == nil && y >= 1900 && y <= 2100
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isAlnum(b byte) bool {
	return isAlpha(b) || (b >= '0' && b <= '9')
}

type unitGroup struct {
	has      [kindUnitType + 1]bool
	price    float64
	size     string
	unitType string
}

func (g *unitGroup) empty() bool {
	return !g.has[kindPrice] && !g.has[kindSize] && !g.has[kindUnitType]
}

// groupUnits folds the token stream into unit variants. A group holds at most
// one token of each kind; a repeated kind starts the next group. Missing
// members are padded so the three slices stay index-aligned.
func groupUnits(tokens []token) (prices []float64, sizes, unitTypes []string, n int) {
	var cur unitGroup
	flush := func() {
		if cur.empty() {
			return
		}
		prices = append(prices, cur.price)
		sizes = append(sizes, cur.size)
		unitTypes = append(unitTypes, cur.unitType)
		n++
		cur = unitGroup{}
	}

	for _, t := range tokens {
		if cur.has[t.kind] {
			flush()
		}
		cur.has[t.kind] = true
		switch t.kind {
		case kindPrice:
			cur.price = t.price
		case kindSize:
			cur.size = t.text
		case kindUnitType:
			cur.unitType = t.text
		}
	}
	flush()
	return prices, sizes, unitTypes, n
}
