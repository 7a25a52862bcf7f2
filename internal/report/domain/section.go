package domain

import (
	"fmt"
	"strings"
)

// Section tags a photo with the part of the document it belongs to.
type Section string

const (
	SectionIsolation    Section = "isolamento"
	SectionCoilHousing  Section = "bobina-carcaca"
	SectionRunout       Section = "batimento"
	SectionMethodology  Section = "metodologia"
	SectionCurrentParts Section = "pecas-atuais"
)

// Sections is the fixed document order.
var Sections = []Section{
	SectionIsolation,
	SectionCoilHousing,
	SectionRunout,
	SectionMethodology,
	SectionCurrentParts,
}

var sectionTitles = map[Section]string{
	SectionIsolation:    "Resistência de Isolamento",
	SectionCoilHousing:  "Bobina / Carcaça",
	SectionRunout:       "Batimento",
	SectionMethodology:  "Metodologia",
	SectionCurrentParts: "Peças Atuais",
}

var sectionAliases = map[string]Section{
	"isolation":      SectionIsolation,
	"bobina-carcaça": SectionCoilHousing,
	"peças-atuais":   SectionCurrentParts,
}

func (s Section) Valid() bool {
	_, ok := sectionTitles[s]
	return ok
}

func (s Section) Title() string {
	return sectionTitles[s]
}

// ParseSection accepts the canonical tags plus their accented spellings.
func ParseSection(raw string) (Section, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if s := Section(v); s.Valid() {
		return s, nil
	}
	if s, ok := sectionAliases[v]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSection, raw)
}
