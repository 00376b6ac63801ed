package db

import "strings"

// FieldOption adjusts one index field.
type FieldOption func(*IndexField)

// Sortable allows SORTBY on the field.
func Sortable() FieldOption { return func(f *IndexField) { f.Sortable = true } }

// Alias names the field in queries.
func Alias(name string) FieldOption { return func(f *IndexField) { f.Alias = name } }

// Separator splits a tag field into members.
func Separator(sep string) FieldOption { return func(f *IndexField) { f.Separator = sep } }

// CaseSensitive keeps tag members as written.
func CaseSensitive() FieldOption { return func(f *IndexField) { f.CaseSensitive = true } }

// SuffixTrie enables suffix and infix matches on a tag field.
func SuffixTrie() FieldOption { return func(f *IndexField) { f.SuffixTrie = true } }

// NoStem disables stemming on a text field.
func NoStem() FieldOption { return func(f *IndexField) { f.NoStem = true } }

// IndexBuilder is a fluent builder for FT index definitions over hashes.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name, StorageType: StorageHash}}
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// KeepStopwords indexes every word.
func (b *IndexBuilder) KeepStopwords() *IndexBuilder {
	b.def.KeepStopwords = true
	return b
}

// Numeric adds a NUMERIC field.
func (b *IndexBuilder) Numeric(name string, opts ...FieldOption) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldNumeric}, opts)
}

// Tag adds a TAG field.
func (b *IndexBuilder) Tag(name string, opts ...FieldOption) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldTag}, opts)
}

// Text adds a TEXT field.
func (b *IndexBuilder) Text(name string, opts ...FieldOption) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldText}, opts)
}

func (b *IndexBuilder) add(f IndexField, opts []FieldOption) *IndexBuilder {
	for _, o := range opts {
		o(&f)
	}
	b.def.Fields = append(b.def.Fields, f)
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	return &def, nil
}

// String renders the FT.CREATE command, or the validation error.
func (idx *IndexDefinition) String() string {
	args, err := idx.Args()
	if err != nil {
		return "invalid index: " + err.Error()
	}
	return "FT.CREATE " + strings.Join(args, " ")
}
