package epub

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

const (
	metaSeries      = "calibre:series"
	metaSeriesIndex = "calibre:series_index"
	metaCover       = "cover"
)

// Contributor is a dc:creator or dc:contributor entry.
type Contributor struct {
	Name   string
	FileAs string
	Role   string
}

// Identifier is a dc:identifier entry, e.g. an ISBN.
type Identifier struct {
	ID     string
	Value  string
	Scheme string
	Type   string
}

// Metadata is the typed view of an OPF metadata section.
type Metadata struct {
	Title        string
	Creators     []Contributor
	Contributors []Contributor
	Identifiers  []Identifier
	Series       string
	SeriesIndex  *int
	Description  string
	Date         string
	Year         *int
	Type         string

	// CoverPath is the absolute path of the cover image inside the
	// extracted archive, empty when no usable cover was found.
	CoverPath string
}

// Author returns the first creator's name, or an empty string.
func (m Metadata) Author() string {
	for _, c := range m.Creators {
		if name := strings.TrimSpace(c.Name); name != "" {
			return name
		}
	}
	return ""
}

// Clone returns a copy that shares no slices or pointers with m.
func (m Metadata) Clone() Metadata {
	c := m
	c.Creators = append([]Contributor(nil), m.Creators...)
	c.Contributors = append([]Contributor(nil), m.Contributors...)
	c.Identifiers = append([]Identifier(nil), m.Identifiers...)
	if m.SeriesIndex != nil {
		v := *m.SeriesIndex
		c.SeriesIndex = &v
	}
	if m.Year != nil {
		v := *m.Year
		c.Year = &v
	}
	return c
}

func parseMetadata(el *etree.Element) Metadata {
	m := Metadata{
		Title:       firstText(el, "title"),
		Date:        firstText(el, "date"),
		Description: firstText(el, "description"),
		Series:      metaValue(el, metaSeries),
	}
	m.Year = yearFromDate(m.Date)
	m.SeriesIndex = parseSeriesIndex(metaValue(el, metaSeriesIndex))

	if t := firstText(el, "type"); IsBookType(t) {
		m.Type = t
	}

	for _, child := range descendants(el, "creator") {
		m.Creators = append(m.Creators, parseContributor(child))
	}
	for _, child := range descendants(el, "contributor") {
		m.Contributors = append(m.Contributors, parseContributor(child))
	}
	for _, child := range descendants(el, "identifier") {
		m.Identifiers = append(m.Identifiers, Identifier{
			ID:     attrValue(child, "id"),
			Value:  innerText(child),
			Scheme: attrValue(child, "scheme"),
			Type:   attrValue(child, "type"),
		})
	}
	return m
}

func parseContributor(el *etree.Element) Contributor {
	return Contributor{
		Name:   innerText(el),
		FileAs: attrValue(el, "file-as"),
		Role:   attrValue(el, "role"),
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"01/02/2006",
	"January 2, 2006",
	"2 January 2006",
	"Jan 2, 2006",
}

var yearToken = regexp.MustCompile(`^\d{4,}$`)

// yearFromDate extracts a year from a full date or a bare year token.
func yearFromDate(date string) *int {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			y := t.Year()
			return &y
		}
	}
	if yearToken.MatchString(date) {
		if y, err := strconv.Atoi(date); err == nil {
			return &y
		}
	}
	return nil
}

// parseSeriesIndex accepts "2" and integral decimals such as "2.0".
func parseSeriesIndex(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		return &i
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil
	}
	i := int(f)
	return &i
}

// descendants returns every element below el whose local name is tag,
// ignoring namespace prefixes.
func descendants(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, child := range e.ChildElements() {
			if child.Tag == tag {
				out = append(out, child)
			}
			walk(child)
		}
	}
	walk(el)
	return out
}

func firstDescendant(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
		if found := firstDescendant(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func firstText(el *etree.Element, tag string) string {
	if found := firstDescendant(el, tag); found != nil {
		return innerText(found)
	}
	return ""
}

// metaValue finds <meta name="..."> and returns its content attribute,
// falling back to the element text.
func metaValue(el *etree.Element, name string) string {
	meta := findMeta(el, name)
	if meta == nil {
		return ""
	}
	if content := attrValue(meta, "content"); content != "" {
		return content
	}
	return innerText(meta)
}

func findMeta(el *etree.Element, name string) *etree.Element {
	for _, meta := range descendants(el, "meta") {
		if attrValue(meta, "name") == name {
			return meta
		}
	}
	return nil
}

// attrValue matches an attribute by local name regardless of prefix.
func attrValue(el *etree.Element, key string) string {
	for _, a := range el.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

func innerText(el *etree.Element) string {
	var b strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				b.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(el)
	return strings.TrimSpace(b.String())
}
