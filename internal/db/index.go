package db

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// StorageType defines the document storage backend for FT indexes.
type StorageType string

const (
	// StorageHash stores documents as Redis hashes.
	StorageHash StorageType = "HASH"
)

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is a tag field.
	IndexFieldTag
	// IndexFieldText is a text field.
	IndexFieldText
)

func (t IndexFieldType) keyword() (string, bool) {
	switch t {
	case IndexFieldNumeric:
		return "NUMERIC", true
	case IndexFieldTag:
		return "TAG", true
	case IndexFieldText:
		return "TEXT", true
	}
	return "", false
}

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name     string
	Alias    string // AS alias in FT.CREATE SCHEMA
	Type     IndexFieldType
	Sortable bool

	// TAG options.
	Separator     string
	CaseSensitive bool
	// SuffixTrie enables suffix and infix (*x, *x*) tag queries.
	SuffixTrie bool

	// NoStem keeps TEXT terms unstemmed, so words match as written.
	NoStem bool
}

func (f *IndexField) key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func (f *IndexField) args() ([]string, error) {
	kw, ok := f.Type.keyword()
	if !ok {
		return nil, fmt.Errorf("field %s: unknown type %d", f.key(), f.Type)
	}
	args := []string{f.Name}
	if f.Alias != "" {
		args = append(args, "AS", f.Alias)
	}
	args = append(args, kw)
	if f.Type == IndexFieldTag {
		if f.Separator != "" {
			args = append(args, "SEPARATOR", f.Separator)
		}
		if f.CaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
		if f.SuffixTrie {
			args = append(args, "WITHSUFFIXTRIE")
		}
	}
	if f.Type == IndexFieldText && f.NoStem {
		args = append(args, "NOSTEM")
	}
	if f.Sortable {
		args = append(args, "SORTABLE")
	}
	return args, nil
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	// KeepStopwords indexes every word (STOPWORDS 0), so free text matches
	// "the" or "of" like a substring search would.
	KeepStopwords bool
	Fields        []IndexField
}

var identifier = regexp.MustCompile(`^[a-zA-Z0-9_:-]+$`)

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool { return identifier.MatchString(s) }

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		key := f.key()
		if seen[key] {
			return errors.New("duplicate field name: " + key)
		}
		seen[key] = true

		if f.Type != IndexFieldTag && (f.SuffixTrie || f.Separator != "" || f.CaseSensitive) {
			return errors.New("tag options on non-tag field: " + key)
		}
		if f.Type != IndexFieldText && f.NoStem {
			return errors.New("NOSTEM on non-text field: " + key)
		}
	}
	return nil
}

// Args renders the FT.CREATE arguments after the command name.
func (idx *IndexDefinition) Args() ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	storage := idx.StorageType
	if storage == "" {
		storage = StorageHash
	}
	args := []string{idx.Name, "ON", string(storage)}
	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	if idx.KeepStopwords {
		args = append(args, "STOPWORDS", "0")
	}
	args = append(args, "SCHEMA")
	for i := range idx.Fields {
		fa, err := idx.Fields[i].args()
		if err != nil {
			return nil, err
		}
		args = append(args, fa...)
	}
	return args, nil
}
