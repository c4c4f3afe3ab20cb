package diag

import (
	_ "embed"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed codes.yaml
var codesYAML []byte

// CodeEntry is a single diagnostic code definition.
type CodeEntry struct {
	ID    string `yaml:"id"`    // e.g., "JSE0001"
	Title string `yaml:"title"` // short human title e.g., "use of undeclared identifier"
	Help  string `yaml:"help"`  // optional default help text
}

// Registry is the top-level catalog format.
type Registry struct {
	Semantic map[string]CodeEntry `yaml:"semantic"`
	Warning  map[string]CodeEntry `yaml:"warning"`
}

var (
	regOnce sync.Once
	reg     Registry
	regErr  error
)

func load() error {
	regOnce.Do(func() {
		if len(codesYAML) == 0 {
			return
		}
		regErr = yaml.Unmarshal(codesYAML, &reg)
	})
	return regErr
}

// Lookup returns the catalog entry for kind k. Errors live in the
// "semantic" section, warnings in "warning".
func Lookup(k Kind) (CodeEntry, bool) {
	if err := load(); err != nil {
		return CodeEntry{}, false
	}
	section := reg.Semantic
	if k.Severity() == Warning {
		section = reg.Warning
	}
	ce, ok := section[k.String()]
	return ce, ok
}

// MustLookup returns the entry for k, or a placeholder built from the kind
// name when the catalog has none.
func MustLookup(k Kind) CodeEntry {
	if ce, ok := Lookup(k); ok {
		return ce
	}
	return CodeEntry{ID: k.String(), Title: k.String()}
}

// Code is the stable identifier of kind k, e.g. "JSE0003".
func (k Kind) Code() string { return MustLookup(k).ID }
