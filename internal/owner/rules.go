package owner

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Replacement rewrites every occurrence of From with To.
type Replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Rules controls how owner names are cleaned before the fallback lookup.
type Rules struct {
	// Suffixes and prefixes are removed wherever they occur in the name.
	Suffixes    []string      `yaml:"suffixes"`
	Prefixes    []string      `yaml:"prefixes"`
	Corrections []Replacement `yaml:"corrections"`
	// Municipality is the substitution tried when the cleaned name contains
	// Municipality.From.
	Municipality Replacement `yaml:"municipality"`
}

// DefaultRules returns the rules used when no rules file is configured.
func DefaultRules() Rules {
	return Rules{
		Suffixes:    []string{" (na 2019)"},
		Prefixes:    []string{"Provincie "},
		Corrections: []Replacement{{From: "Vlaams Brabant", To: "Vlaams-Brabant"}},
		Municipality: Replacement{
			From: "Gemeente",
			To:   "Stad",
		},
	}
}

// LoadRules parses a YAML rules file. Keys missing from the file keep their
// default values.
func LoadRules(filePath string) (Rules, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Rules{}, err
	}
	defer file.Close()

	return LoadRulesFromReader(file)
}

// LoadRulesFromReader parses rules from an io.Reader.
func LoadRulesFromReader(r io.Reader) (Rules, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Rules{}, err
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, err
	}
	return rules, nil
}
