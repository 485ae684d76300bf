// Package terminology loads the domain vocabulary document: phrase
// corrections, abbreviation expansions, and the district/station/rank/crime
// word lists shared by the normalizer and the entity extractor.
package terminology

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PhraseCorrection rewrites a multi-word phrase to its canonical form, e.g.
// "station house officer" -> "SHO".
type PhraseCorrection struct {
	Match   string `yaml:"match"`
	Replace string `yaml:"replace"`
}

// CrimeType pairs a display name with its IPC section code.
type CrimeType struct {
	Name       string `yaml:"name"`
	IPCSection string `yaml:"ipc_section"`
}

// Vocabulary is the loaded terminology document. Immutable after load.
type Vocabulary struct {
	PhraseCorrections []PhraseCorrection `yaml:"phrase_corrections"`
	Abbreviations     map[string]string  `yaml:"abbreviations"`
	Districts         []string           `yaml:"districts"`
	Stations          []string           `yaml:"stations"`
	OfficerRanks      []string           `yaml:"officer_ranks"`
	CrimeTypes        []CrimeType        `yaml:"crime_types"`
}

// Load reads the terminology document. Fatal at startup if missing or
// malformed.
func Load(path string) (*Vocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read terminology: %w", err)
	}
	return Parse(raw)
}

// Parse decodes raw YAML and orders phrase corrections longest-match-first so
// "station house officer" is never pre-empted by a shorter partial match.
func Parse(raw []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parse terminology: %w", err)
	}
	if len(v.PhraseCorrections) == 0 && len(v.Abbreviations) == 0 {
		return nil, fmt.Errorf("terminology document has no corrections")
	}

	sort.SliceStable(v.PhraseCorrections, func(i, j int) bool {
		return len(v.PhraseCorrections[i].Match) > len(v.PhraseCorrections[j].Match)
	})

	return &v, nil
}

// IsDistrict resolves a token against the district list, returning the
// canonical casing.
func (v *Vocabulary) IsDistrict(word string) (string, bool) {
	return matchWord(v.Districts, word)
}

// IsStation resolves a token against the station list.
func (v *Vocabulary) IsStation(word string) (string, bool) {
	return matchWord(v.Stations, word)
}

// IsOfficerRank resolves a token against the rank list.
func (v *Vocabulary) IsOfficerRank(word string) (string, bool) {
	return matchWord(v.OfficerRanks, word)
}

// IsCrimeType resolves a token against the crime type names.
func (v *Vocabulary) IsCrimeType(word string) (string, bool) {
	for _, ct := range v.CrimeTypes {
		if strings.EqualFold(ct.Name, word) {
			return ct.Name, true
		}
	}
	return "", false
}

func matchWord(list []string, word string) (string, bool) {
	for _, w := range list {
		if strings.EqualFold(w, word) {
			return w, true
		}
	}
	return "", false
}
