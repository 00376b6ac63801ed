// Package resource reads and writes searchable records in the relational source.
package resource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kailas-cloud/facetdex/internal/db/sqlbuilder"
	"github.com/kailas-cloud/facetdex/internal/db/sqldb"
	domres "github.com/kailas-cloud/facetdex/internal/domain/resource"
)

const timeLayout = "2006-01-02 15:04:05"

// store is the consumer interface for the relational source (ISP).
type store interface {
	Select(ctx context.Context, sel *sqlbuilder.Select) (*sql.Rows, error)
	Exec(ctx context.Context, query string, args ...any) error
	Tx(ctx context.Context, fn func(tx *sqldb.Tx) error) error
}

// Repo implements the indexing source and seeding sink.
type Repo struct {
	store store
}

// New creates a resource repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SaveCatalog upserts properties and resource classes.
func (r *Repo) SaveCatalog(ctx context.Context, c domres.Catalog) error {
	return r.store.Tx(ctx, func(tx *sqldb.Tx) error {
		for _, p := range c.Properties {
			if err := tx.Exec(ctx, `INSERT INTO property (id, term, label) VALUES (?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET term = excluded.term, label = excluded.label`,
				p.ID, p.Term, p.Label); err != nil {
				return fmt.Errorf("save property %s: %w", p.Term, err)
			}
		}
		for _, cl := range c.Classes {
			if err := tx.Exec(ctx, `INSERT INTO resource_class (id, term, label) VALUES (?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET term = excluded.term, label = excluded.label`,
				cl.ID, cl.Term, cl.Label); err != nil {
				return fmt.Errorf("save class %s: %w", cl.Term, err)
			}
		}
		return nil
	})
}

// Save replaces the given resources with their values and links.
// Property and class terms must already exist in the catalog.
func (r *Repo) Save(ctx context.Context, resources []domres.Resource) error {
	return r.store.Tx(ctx, func(tx *sqldb.Tx) error {
		for _, res := range resources {
			if err := saveOne(ctx, tx, res); err != nil {
				return fmt.Errorf("save resource %d: %w", res.ID, err)
			}
		}
		return nil
	})
}

func saveOne(ctx context.Context, tx *sqldb.Tx, res domres.Resource) error {
	if !res.Type.Valid() {
		return fmt.Errorf("unknown resource type %q", res.Type)
	}
	for _, stmt := range []string{
		"DELETE FROM value WHERE resource_id = ?",
		"DELETE FROM item_item_set WHERE item_id = ?",
		"DELETE FROM resource_site WHERE resource_id = ?",
		"DELETE FROM media WHERE id = ?",
	} {
		if err := tx.Exec(ctx, stmt, res.ID); err != nil {
			return err
		}
	}

	var modified any
	if res.Modified != nil {
		modified = res.Modified.UTC().Format(timeLayout)
	}
	var class any
	if res.Class != "" {
		class = res.Class
	}
	err := tx.Exec(ctx, `INSERT INTO resource (id, resource_type, resource_class_id, title, is_public, created, modified)
		VALUES (?, ?, (SELECT c.id FROM resource_class c WHERE c.term = ?), ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET resource_type = excluded.resource_type,
			resource_class_id = excluded.resource_class_id, title = excluded.title,
			is_public = excluded.is_public, created = excluded.created, modified = excluded.modified`,
		res.ID, res.Type.Row(), class, res.Title, res.IsPublic, res.Created.UTC().Format(timeLayout), modified)
	if err != nil {
		return err
	}

	for _, v := range res.Values {
		dataType := v.DataType
		if dataType == "" {
			dataType = domres.DataLiteral
		}
		err := tx.Exec(ctx, `INSERT INTO value (resource_id, property_id, type, lang, value, uri, value_resource_id, is_public)
			VALUES (?, (SELECT p.id FROM property p WHERE p.term = ?), ?, ?, ?, ?, ?, ?)`,
			res.ID, v.Property, dataType, nullString(v.Lang), nullString(v.Value), nullString(v.URI),
			nullInt(v.ResourceID), v.IsPublic)
		if err != nil {
			return fmt.Errorf("value %s: %w", v.Property, err)
		}
	}
	for _, setID := range res.ItemSetIDs {
		if err := tx.Exec(ctx, "INSERT INTO item_item_set (item_id, item_set_id) VALUES (?, ?)", res.ID, setID); err != nil {
			return err
		}
	}
	for _, siteID := range res.SiteIDs {
		if err := tx.Exec(ctx, "INSERT INTO resource_site (resource_id, site_id) VALUES (?, ?)", res.ID, siteID); err != nil {
			return err
		}
	}
	if res.Type == domres.Media {
		if err := tx.Exec(ctx, "INSERT INTO media (id, item_id, media_type) VALUES (?, ?, ?)",
			res.ID, res.ItemID, nullString(res.MediaType)); err != nil {
			return err
		}
	}
	return nil
}

// Catalog returns every property and resource class.
func (r *Repo) Catalog(ctx context.Context) (domres.Catalog, error) {
	var c domres.Catalog
	rows, err := r.store.Select(ctx, sqlbuilder.NewSelect("p.id", "p.term", "p.label").
		From("property", "p").OrderBy(sqlbuilder.Raw("p.id"), false))
	if err != nil {
		return c, fmt.Errorf("list properties: %w", err)
	}
	for rows.Next() {
		var p domres.Property
		if err := rows.Scan(&p.ID, &p.Term, &p.Label); err != nil {
			_ = rows.Close()
			return c, fmt.Errorf("scan property: %w", err)
		}
		c.Properties = append(c.Properties, p)
	}
	if err := closeRows(rows); err != nil {
		return c, err
	}

	rows, err = r.store.Select(ctx, sqlbuilder.NewSelect("c.id", "c.term", "c.label").
		From("resource_class", "c").OrderBy(sqlbuilder.Raw("c.id"), false))
	if err != nil {
		return c, fmt.Errorf("list classes: %w", err)
	}
	for rows.Next() {
		var cl domres.Class
		if err := rows.Scan(&cl.ID, &cl.Term, &cl.Label); err != nil {
			_ = rows.Close()
			return c, fmt.Errorf("scan class: %w", err)
		}
		c.Classes = append(c.Classes, cl)
	}
	return c, closeRows(rows)
}

// List returns up to limit resources with id > afterID, ascending, with
// values and derived links loaded.
func (r *Repo) List(ctx context.Context, afterID int64, limit int) ([]domres.Resource, error) {
	sel := sqlbuilder.NewSelect("r.id", "r.resource_type", "c.term", "r.title", "r.is_public", "r.created", "r.modified").
		From("resource", "r").
		Join(sqlbuilder.Join{Kind: sqlbuilder.LeftJoin, Table: "resource_class", Alias: "c", On: sqlbuilder.Raw("c.id = r.resource_class_id")}).
		Where(sqlbuilder.Compare("r.id", ">", afterID)).
		OrderBy(sqlbuilder.Raw("r.id"), false).
		Limit(limit)
	rows, err := r.store.Select(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	var out []domres.Resource
	index := make(map[int64]int)
	for rows.Next() {
		var (
			res               domres.Resource
			rowType           string
			class             sql.NullString
			created, modified any
		)
		if err := rows.Scan(&res.ID, &rowType, &class, &res.Title, &res.IsPublic, &created, &modified); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		if res.Type, err = domres.FromRow(rowType); err != nil {
			_ = rows.Close()
			return nil, err
		}
		res.Class = class.String
		if res.Created, err = parseTime(created); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("resource %d created: %w", res.ID, err)
		}
		if modified != nil {
			t, err := parseTime(modified)
			if err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("resource %d modified: %w", res.ID, err)
			}
			res.Modified = &t
		}
		index[res.ID] = len(out)
		out = append(out, res)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(out))
	for i, res := range out {
		ids[i] = res.ID
	}
	loaders := []func(context.Context, []int64, []domres.Resource, map[int64]int) error{
		r.loadValues, r.loadItemSets, r.loadSites, r.loadMedia, r.loadLinks,
	}
	for _, load := range loaders {
		if err := load(ctx, ids, out, index); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) loadValues(ctx context.Context, ids []int64, out []domres.Resource, index map[int64]int) error {
	sel := sqlbuilder.NewSelect("v.resource_id", "p.term", "v.type", "v.lang", "v.value", "v.uri", "v.value_resource_id", "v.is_public").
		From("value", "v").
		Join(sqlbuilder.Join{Kind: sqlbuilder.InnerJoin, Table: "property", Alias: "p", On: sqlbuilder.Raw("p.id = v.property_id")}).
		Where(sqlbuilder.In("v.resource_id", sqlbuilder.Ints(ids)...)).
		OrderBy(sqlbuilder.Raw("v.id"), false)
	rows, err := r.store.Select(ctx, sel)
	if err != nil {
		return fmt.Errorf("load values: %w", err)
	}
	for rows.Next() {
		var (
			resourceID     int64
			v              domres.Value
			lang, val, uri sql.NullString
			linked         sql.NullInt64
		)
		if err := rows.Scan(&resourceID, &v.Property, &v.DataType, &lang, &val, &uri, &linked, &v.IsPublic); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan value: %w", err)
		}
		v.Lang, v.Value, v.URI, v.ResourceID = lang.String, val.String, uri.String, linked.Int64
		res := &out[index[resourceID]]
		res.Values = append(res.Values, v)
	}
	return closeRows(rows)
}

func (r *Repo) loadItemSets(ctx context.Context, ids []int64, out []domres.Resource, index map[int64]int) error {
	return r.loadPairs(ctx, sqlbuilder.NewSelect("x.item_id", "x.item_set_id").From("item_item_set", "x").
		Where(sqlbuilder.In("x.item_id", sqlbuilder.Ints(ids)...)).
		OrderBy(sqlbuilder.Raw("x.item_set_id"), false),
		func(id, v int64) { out[index[id]].ItemSetIDs = append(out[index[id]].ItemSetIDs, v) })
}

func (r *Repo) loadSites(ctx context.Context, ids []int64, out []domres.Resource, index map[int64]int) error {
	return r.loadPairs(ctx, sqlbuilder.NewSelect("s.resource_id", "s.site_id").From("resource_site", "s").
		Where(sqlbuilder.In("s.resource_id", sqlbuilder.Ints(ids)...)).
		OrderBy(sqlbuilder.Raw("s.site_id"), false),
		func(id, v int64) { out[index[id]].SiteIDs = append(out[index[id]].SiteIDs, v) })
}

func (r *Repo) loadPairs(ctx context.Context, sel *sqlbuilder.Select, add func(id, v int64)) error {
	rows, err := r.store.Select(ctx, sel)
	if err != nil {
		return fmt.Errorf("load links: %w", err)
	}
	for rows.Next() {
		var id, v int64
		if err := rows.Scan(&id, &v); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan link: %w", err)
		}
		add(id, v)
	}
	return closeRows(rows)
}

// loadMedia fills media rows and the media types of their items.
func (r *Repo) loadMedia(ctx context.Context, ids []int64, out []domres.Resource, index map[int64]int) error {
	sel := sqlbuilder.NewSelect("m.id", "m.item_id", "m.media_type").From("media", "m").
		Where(sqlbuilder.Or(
			sqlbuilder.In("m.id", sqlbuilder.Ints(ids)...),
			sqlbuilder.In("m.item_id", sqlbuilder.Ints(ids)...),
		)).
		OrderBy(sqlbuilder.Raw("m.id"), false)
	rows, err := r.store.Select(ctx, sel)
	if err != nil {
		return fmt.Errorf("load media: %w", err)
	}
	for rows.Next() {
		var (
			id, itemID int64
			mediaType  sql.NullString
		)
		if err := rows.Scan(&id, &itemID, &mediaType); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan media: %w", err)
		}
		if i, ok := index[id]; ok {
			out[i].ItemID, out[i].MediaType = itemID, mediaType.String
		}
		if i, ok := index[itemID]; ok {
			out[i].MediaTypes = append(out[i].MediaTypes, mediaType.String)
		}
	}
	return closeRows(rows)
}

func (r *Repo) loadLinks(ctx context.Context, ids []int64, out []domres.Resource, index map[int64]int) error {
	sel := sqlbuilder.NewSelect("v.value_resource_id", "p.term", "v.resource_id").
		From("value", "v").
		Join(sqlbuilder.Join{Kind: sqlbuilder.InnerJoin, Table: "property", Alias: "p", On: sqlbuilder.Raw("p.id = v.property_id")}).
		Where(sqlbuilder.In("v.value_resource_id", sqlbuilder.Ints(ids)...)).
		OrderBy(sqlbuilder.Raw("v.id"), false)
	rows, err := r.store.Select(ctx, sel)
	if err != nil {
		return fmt.Errorf("load inverse links: %w", err)
	}
	for rows.Next() {
		var (
			target int64
			l      domres.LinkedBy
		)
		if err := rows.Scan(&target, &l.Property, &l.Subject); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan inverse link: %w", err)
		}
		res := &out[index[target]]
		res.LinkedBy = append(res.LinkedBy, l)
	}
	return closeRows(rows)
}

// Directory loads the title, item sets and sites of every resource.
func (r *Repo) Directory(ctx context.Context) (domres.Directory, error) {
	rows, err := r.store.Select(ctx, sqlbuilder.NewSelect("r.id", "r.title").From("resource", "r"))
	if err != nil {
		return nil, fmt.Errorf("load directory: %w", err)
	}
	dir := domres.Directory{}
	for rows.Next() {
		var (
			id    int64
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan directory: %w", err)
		}
		dir[id] = domres.Summary{Title: title}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	err = r.loadPairs(ctx, sqlbuilder.NewSelect("x.item_id", "x.item_set_id").From("item_item_set", "x").
		OrderBy(sqlbuilder.Raw("x.item_set_id"), false),
		func(id, v int64) {
			s := dir[id]
			s.ItemSetIDs = append(s.ItemSetIDs, v)
			dir[id] = s
		})
	if err != nil {
		return nil, err
	}
	err = r.loadPairs(ctx, sqlbuilder.NewSelect("x.resource_id", "x.site_id").From("resource_site", "x").
		OrderBy(sqlbuilder.Raw("x.site_id"), false),
		func(id, v int64) {
			s := dir[id]
			s.SiteIDs = append(s.SiteIDs, v)
			dir[id] = s
		})
	if err != nil {
		return nil, err
	}
	return dir, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterate rows: %w", err)
	}
	return rows.Close()
}

// parseTime accepts SQLite text timestamps and PostgreSQL time values.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
}

func parseTimeString(s string) (time.Time, error) {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
