package blevesearch

import (
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/facetdex/internal/domain/resource"
)

// Document fields. Matching fields hold lowercased terms; the _lit and
// _txt fields keep literals as entered.
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
	fieldValues    = "_values"
	fieldRes       = "_res"
	fieldFields    = "_fields"
	fieldDataTypes = "_datatypes"
	fieldLiterals  = "_literals"
	// fieldLinked flags resources that other resources point to.
	fieldLinked    = "_linked"
	fieldLinkProps = "_link_props"
	fieldLinkers   = "_linkers"
)

func valueField(id int64) string { return "p" + strconv.FormatInt(id, 10) }

func resField(id int64) string { return valueField(id) + "_res" }

func literalField(id int64) string { return valueField(id) + "_lit" }

// textField holds the literals of a property that do not parse as numbers.
func textField(id int64) string { return valueField(id) + "_txt" }

func numberField(id int64) string { return valueField(id) + "_num" }

// Mapping is the static index mapping for the documents of cat.
func Mapping(cat resource.Catalog) mapping.IndexMapping {
	doc := bleve.NewDocumentStaticMapping()
	keyword := func(names ...string) {
		for _, n := range names {
			fm := bleve.NewKeywordFieldMapping()
			fm.Store = false
			doc.AddFieldMappingsAt(n, fm)
		}
	}
	numeric := func(names ...string) {
		for _, n := range names {
			fm := bleve.NewNumericFieldMapping()
			fm.Store = false
			doc.AddFieldMappingsAt(n, fm)
		}
	}

	keyword(fieldType, fieldClass, fieldPublic, fieldItemSet, fieldSite, fieldMediaType, fieldHasMedia,
		fieldTitle, fieldValues, fieldRes, fieldFields, fieldDataTypes, fieldLiterals,
		fieldLinked, fieldLinkProps, fieldLinkers)
	numeric(fieldID, fieldCreated, fieldModified)
	for _, p := range cat.Properties {
		keyword(valueField(p.ID), resField(p.ID), literalField(p.ID), textField(p.ID))
		numeric(numberField(p.ID))
	}

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.IndexDynamic = false
	m.StoreDynamic = false
	m.DocValuesDynamic = false
	return m
}

// terms collects distinct members in insertion order.
type terms struct {
	seen map[string]struct{}
	list []string
}

func (t *terms) add(vs ...string) {
	if t.seen == nil {
		t.seen = make(map[string]struct{})
	}
	for _, v := range vs {
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		if _, dup := t.seen[v]; dup {
			continue
		}
		t.seen[v] = struct{}{}
		t.list = append(t.list, v)
	}
}

func (t *terms) addIDs(ids ...int64) {
	for _, id := range ids {
		t.add(strconv.FormatInt(id, 10))
	}
}

func (t *terms) lower(vs ...string) {
	for _, v := range vs {
		t.add(strings.ToLower(v))
	}
}

func docID(id int64) string { return strconv.FormatInt(id, 10) }

// Document flattens r for indexing. Only public values are indexed; linked
// values also match the title of the resource they point to.
func Document(r resource.Resource, cat resource.Catalog, dir resource.Directory) map[string]any {
	d := map[string]any{
		fieldID:      float64(r.ID),
		fieldType:    string(r.Type),
		fieldPublic:  flag(r.IsPublic),
		fieldTitle:   r.Title,
		fieldCreated: float64(r.Created.UTC().Unix()),
	}
	if r.Class != "" {
		d[fieldClass] = r.Class
	}
	if r.Modified != nil {
		d[fieldModified] = float64(r.Modified.UTC().Unix())
	}

	var sets, sites, mediaTypes terms
	switch r.Type {
	case resource.Items:
		sets.addIDs(r.ItemSetIDs...)
		sites.addIDs(r.SiteIDs...)
		mediaTypes.add(r.MediaTypes...)
		d[fieldHasMedia] = flag(r.HasMedia())
	case resource.Media:
		parent := dir[r.ItemID]
		sets.addIDs(parent.ItemSetIDs...)
		sites.addIDs(parent.SiteIDs...)
		mediaTypes.add(r.MediaType)
	case resource.ItemSets:
		sets.addIDs(r.ID)
		sites.addIDs(r.SiteIDs...)
	}
	put(d, fieldItemSet, &sets)
	put(d, fieldSite, &sites)
	put(d, fieldMediaType, &mediaTypes)

	var (
		all, res, fields, types, literals terms
		byProp                            = map[int64]*terms{}
		resByProp                         = map[int64]*terms{}
		litByProp                         = map[int64]*terms{}
		txtByProp                         = map[int64]*terms{}
		numByProp                         = map[int64][]float64{}
	)
	get := func(m map[int64]*terms, id int64) *terms {
		if m[id] == nil {
			m[id] = &terms{}
		}
		return m[id]
	}
	for _, v := range r.Values {
		if !v.IsPublic {
			continue
		}
		id, ok := cat.PropertyID(v.Property)
		if !ok {
			continue
		}
		texts := []string{v.Value, v.URI}
		if v.ResourceID > 0 {
			texts = append(texts, dir.Title(v.ResourceID))
			get(resByProp, id).addIDs(v.ResourceID)
			res.addIDs(v.ResourceID)
		}
		get(byProp, id).lower(texts...)
		all.lower(texts...)
		if v.Value != "" {
			get(litByProp, id).add(v.Value)
			literals.add(v.Value)
			if n, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64); err == nil {
				numByProp[id] = append(numByProp[id], n)
			} else {
				get(txtByProp, id).add(v.Value)
			}
		}
		fields.addIDs(id)
		if v.DataType != "" {
			types.add(v.DataType, strconv.FormatInt(id, 10)+":"+v.DataType)
		}
	}
	for id, t := range byProp {
		put(d, valueField(id), t)
	}
	for id, t := range resByProp {
		put(d, resField(id), t)
	}
	for id, t := range litByProp {
		put(d, literalField(id), t)
	}
	for id, t := range txtByProp {
		put(d, textField(id), t)
	}
	for id, ns := range numByProp {
		d[numberField(id)] = ns
	}
	put(d, fieldValues, &all)
	put(d, fieldRes, &res)
	put(d, fieldFields, &fields)
	put(d, fieldDataTypes, &types)
	put(d, fieldLiterals, &literals)

	var props, linkers terms
	for _, l := range r.LinkedBy {
		pid, ok := cat.PropertyID(l.Property)
		if !ok {
			continue
		}
		props.addIDs(pid)
		linkers.add(strconv.FormatInt(l.Subject, 10), strconv.FormatInt(pid, 10)+":"+strconv.FormatInt(l.Subject, 10))
	}
	if len(props.list) > 0 {
		d[fieldLinked] = "1"
	}
	put(d, fieldLinkProps, &props)
	put(d, fieldLinkers, &linkers)
	return d
}

// put leaves empty sets out so the field is absent.
func put(d map[string]any, name string, t *terms) {
	if len(t.list) > 0 {
		d[name] = t.list
	}
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
