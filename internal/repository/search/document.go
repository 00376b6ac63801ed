package search

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain/resource"
)

// Schema is the FT index over the documents of cat.
func Schema(k Keys, cat resource.Catalog) (*db.IndexDefinition, error) {
	list := db.Separator(sep)
	b := db.NewIndex(k.Index()).
		Prefix(k.DocPrefix()).
		KeepStopwords().
		Numeric(fieldID, db.Sortable()).
		Tag(fieldType).
		Tag(fieldClass, list, db.CaseSensitive()).
		Tag(fieldPublic).
		Tag(fieldItemSet, list).
		Tag(fieldSite, list).
		Tag(fieldMediaType, list).
		Tag(fieldHasMedia).
		Numeric(fieldCreated, db.Sortable()).
		Numeric(fieldModified, db.Sortable()).
		Text(fieldTitle, db.NoStem(), db.Sortable()).
		Tag(fieldValues, list, db.SuffixTrie()).
		Tag(fieldRes, list).
		Tag(fieldFields, list).
		Tag(fieldDataTypes, list)
	for _, p := range cat.Properties {
		b.Tag(valueField(p.ID), list, db.SuffixTrie()).Tag(resField(p.ID), list)
	}
	return b.Build()
}

// tagSet collects distinct members in insertion order.
type tagSet struct {
	seen map[string]struct{}
	list []string
}

func (s *tagSet) add(vs ...string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, v := range vs {
		// The separator cannot appear inside a member.
		v = strings.TrimSpace(strings.ReplaceAll(v, sep, " "))
		if v == "" {
			continue
		}
		if _, dup := s.seen[v]; dup {
			continue
		}
		s.seen[v] = struct{}{}
		s.list = append(s.list, v)
	}
}

func (s *tagSet) addIDs(ids ...int64) {
	for _, id := range ids {
		s.add(strconv.FormatInt(id, 10))
	}
}

func (s *tagSet) String() string { return strings.Join(s.list, sep) }

// Document flattens r into hash fields. Only public values are indexed;
// linked values also match the title of the resource they point to.
func Document(r resource.Resource, cat resource.Catalog, dir resource.Directory) map[string]string {
	f := map[string]string{
		fieldID:      strconv.FormatInt(r.ID, 10),
		fieldType:    string(r.Type),
		fieldPublic:  flag(r.IsPublic),
		fieldTitle:   r.Title,
		fieldCreated: strconv.FormatInt(r.Created.UTC().Unix(), 10),
	}
	if r.Class != "" {
		f[fieldClass] = r.Class
	}
	if r.Modified != nil {
		f[fieldModified] = strconv.FormatInt(r.Modified.UTC().Unix(), 10)
	}

	var sets, sites, mediaTypes tagSet
	switch r.Type {
	case resource.Items:
		sets.addIDs(r.ItemSetIDs...)
		sites.addIDs(r.SiteIDs...)
		mediaTypes.add(r.MediaTypes...)
		f[fieldHasMedia] = flag(r.HasMedia())
	case resource.Media:
		parent := dir[r.ItemID]
		sets.addIDs(parent.ItemSetIDs...)
		sites.addIDs(parent.SiteIDs...)
		mediaTypes.add(r.MediaType)
	case resource.ItemSets:
		sets.addIDs(r.ID)
		sites.addIDs(r.SiteIDs...)
	}
	setTags(f, fieldItemSet, &sets)
	setTags(f, fieldSite, &sites)
	setTags(f, fieldMediaType, &mediaTypes)

	var (
		all, res, fields, types, literals tagSet
		byProp                            = map[int64]*tagSet{}
		resByProp                         = map[int64]*tagSet{}
		litByProp                         = map[int64]*tagSet{}
	)
	set := func(m map[int64]*tagSet, id int64) *tagSet {
		if m[id] == nil {
			m[id] = &tagSet{}
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
			set(resByProp, id).addIDs(v.ResourceID)
			res.addIDs(v.ResourceID)
		}
		set(byProp, id).add(texts...)
		all.add(texts...)
		if v.Value != "" {
			set(litByProp, id).add(v.Value)
			literals.add(v.Value)
		}
		fields.addIDs(id)
		if v.DataType != "" {
			types.add(v.DataType, strconv.FormatInt(id, 10)+":"+v.DataType)
		}
	}
	for id, s := range byProp {
		setTags(f, valueField(id), s)
	}
	for id, s := range resByProp {
		setTags(f, resField(id), s)
	}
	for id, s := range litByProp {
		setTags(f, literalField(id), s)
	}
	setTags(f, fieldValues, &all)
	setTags(f, fieldRes, &res)
	setTags(f, fieldFields, &fields)
	setTags(f, fieldDataTypes, &types)
	setTags(f, fieldLiterals, &literals)
	return f
}

// setTags leaves empty sets out so they are not indexed.
func setTags(f map[string]string, name string, s *tagSet) {
	if len(s.list) > 0 {
		f[name] = s.String()
	}
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
