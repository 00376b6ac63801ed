package sqlsearch

import (
	"strconv"

	sb "github.com/kailas-cloud/facetdex/internal/db/sqlbuilder"
	"github.com/kailas-cloud/facetdex/internal/domain/resource"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
)

// scope compiles visibility, site and the scoping shortcuts for one
// resource type. Shortcuts that do not apply to the type are ignored.
func (c *compiler) scope(p plan.Plan, t resource.Type) sb.Expr {
	s := p.Scope
	var parts []sb.Expr
	if c.public {
		parts = append(parts, sb.Eq("r.is_public", true))
	}
	if c.hasSite {
		parts = append(parts, siteScope(t, []int64{c.siteID}))
	}
	if len(s.SiteIDs) > 0 {
		parts = append(parts, siteScope(t, s.SiteIDs))
	}
	if s.HasMedia != nil && t == resource.Items {
		has := sb.Exists(sb.NewSelect("hm.id").From("media", "hm").Where(sb.Raw("hm.item_id = r.id")))
		if !*s.HasMedia {
			has = sb.Not(has)
		}
		parts = append(parts, has)
	}
	if len(s.MediaTypes) > 0 {
		parts = append(parts, mediaTypeScope(t, s.MediaTypes))
	}
	if len(s.ItemSetIDs) > 0 {
		parts = append(parts, itemSetScope(t, s.ItemSetIDs))
	}
	if len(s.ResourceClassTerms) > 0 {
		parts = append(parts, c.classScope(s.ResourceClassTerms))
	}
	for _, con := range p.Constraints {
		switch con.Kind {
		case plan.ConstrainResourceClass:
			parts = append(parts, c.classScope(con.Values))
		case plan.ConstrainItemSet:
			parts = append(parts, itemSetScope(t, parseIDs(con.Values)))
		}
	}
	return sb.And(parts...)
}

func siteScope(t resource.Type, sites []int64) sb.Expr {
	if t == resource.Media {
		return sb.Exists(sb.NewSelect("sm.id").From("media", "sm").
			Join(sb.Join{Kind: sb.InnerJoin, Table: "resource_site", Alias: "rs", On: sb.Raw("rs.resource_id = sm.item_id")}).
			Where(sb.Raw("sm.id = r.id")).
			Where(sb.In("rs.site_id", sb.Ints(sites)...)))
	}
	return sb.Exists(sb.NewSelect("rs.resource_id").From("resource_site", "rs").
		Where(sb.Raw("rs.resource_id = r.id")).
		Where(sb.In("rs.site_id", sb.Ints(sites)...)))
}

func mediaTypeScope(t resource.Type, types []string) sb.Expr {
	sel := sb.NewSelect("mt.id").From("media", "mt").Where(sb.In("mt.media_type", sb.Strings(types)...))
	switch t {
	case resource.Items:
		return sb.Exists(sel.Where(sb.Raw("mt.item_id = r.id")))
	case resource.Media:
		return sb.Exists(sel.Where(sb.Raw("mt.id = r.id")))
	}
	return nil
}

func itemSetScope(t resource.Type, ids []int64) sb.Expr {
	switch t {
	case resource.ItemSets:
		return sb.In("r.id", sb.Ints(ids)...)
	case resource.Media:
		return sb.Exists(sb.NewSelect("im.id").From("media", "im").
			Join(sb.Join{Kind: sb.InnerJoin, Table: "item_item_set", Alias: "iis", On: sb.Raw("iis.item_id = im.item_id")}).
			Where(sb.Raw("im.id = r.id")).
			Where(sb.In("iis.item_set_id", sb.Ints(ids)...)))
	}
	return sb.Exists(sb.NewSelect("iis.item_id").From("item_item_set", "iis").
		Where(sb.Raw("iis.item_id = r.id")).
		Where(sb.In("iis.item_set_id", sb.Ints(ids)...)))
}

// classScope matches nothing when no term is known.
func (c *compiler) classScope(terms []string) sb.Expr {
	return sb.In("r.resource_class_id", sb.Ints(c.tables.ClassIDs(terms))...)
}

func parseIDs(values []string) []int64 {
	var out []int64
	for _, v := range values {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}
