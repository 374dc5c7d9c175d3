package catalog

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
)

//go:embed default.toml
var defaultTOML string

type file struct {
	Version int     `toml:"version"`
	Credit  []Entry `toml:"credit"`
	Debit   []Entry `toml:"debit"`
}

// Load reads the catalogs from path, or the built-in catalogs when path is empty.
func Load(path string) (Set, error) {
	if path == "" {
		return Parse(defaultTOML)
	}
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return Set{}, fmt.Errorf("parse %s: %w", path, err)
	}
	set, err := build(f)
	if err != nil {
		return Set{}, fmt.Errorf("validate %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes catalogs from TOML text.
func Parse(text string) (Set, error) {
	var f file
	if _, err := toml.Decode(text, &f); err != nil {
		return Set{}, fmt.Errorf("parse catalog: %w", err)
	}
	return build(f)
}

func build(f file) (Set, error) {
	if f.Version != 1 {
		return Set{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidCatalog, f.Version)
	}
	credit, err := New(KindCredit, f.Credit)
	if err != nil {
		return Set{}, err
	}
	debit, err := New(KindDebit, f.Debit)
	if err != nil {
		return Set{}, err
	}
	return Set{Credit: credit, Debit: debit}, nil
}
