package search

import (
	"strconv"
	"strings"
)

// DefaultPrefix namespaces every key the engine owns.
const DefaultPrefix = "facetdex:"

// Keys derives index, document and metadata key names from one prefix.
type Keys struct {
	prefix string
}

// NewKeys uses DefaultPrefix when prefix is empty.
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{prefix: prefix}
}

// Index is the FT index name.
func (k Keys) Index() string { return k.prefix + "idx" }

// DocPrefix prefixes every document hash.
func (k Keys) DocPrefix() string { return k.prefix + "res:" }

// Doc is the hash key of resource id.
func (k Keys) Doc(id int64) string { return k.DocPrefix() + strconv.FormatInt(id, 10) }

// Meta holds the catalog of the current index.
func (k Keys) Meta() string { return k.prefix + "meta" }

// ID parses a document key back to its resource id.
func (k Keys) ID(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, k.DocPrefix())
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	return id, err == nil
}

// Document fields.
const (
	fieldID        = "id"
	fieldType      = "resource_type"
	fieldClass     = "resource_class"
	fieldPublic    = "is_public"
	fieldItemSet   = "item_set"
	fieldSite      = "site"
	fieldMediaType = "media_type"
	fieldHasMedia  = "has_media"
	fieldCreated   = "created"
	fieldModified  = "modified"
	fieldTitle     = "title"
	fieldValues    = "__values"
	fieldRes       = "__res"
	fieldFields    = "__fields"
	fieldDataTypes = "__datatypes"
	// fieldLiterals holds literal values for suggestions; not indexed.
	fieldLiterals = "__literals"

	// sep separates the members of multi-valued fields.
	sep = "|"
)

func valueField(id int64) string { return "p" + strconv.FormatInt(id, 10) }

func resField(id int64) string { return valueField(id) + "_res" }

// literalField holds the literal values of one property for facets; not indexed.
func literalField(id int64) string { return valueField(id) + "_lit" }
