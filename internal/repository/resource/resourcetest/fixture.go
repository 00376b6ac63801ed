// Package resourcetest provides a shared corpus for search engine tests.
package resourcetest

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/facetdex/internal/db/sqldb"
	"github.com/kailas-cloud/facetdex/internal/domain/resource"
)

// Property ids in the fixture catalog.
const (
	Title       int64 = 1
	Creator     int64 = 2
	Subject     int64 = 3
	Date        int64 = 4
	Extent      int64 = 5
	Relation    int64 = 6
	Description int64 = 7
)

// Catalog returns the fixture vocabulary.
func Catalog() resource.Catalog {
	return resource.Catalog{
		Properties: []resource.Property{
			{ID: Title, Term: "dcterms:title", Label: "Title"},
			{ID: Creator, Term: "dcterms:creator", Label: "Creator"},
			{ID: Subject, Term: "dcterms:subject", Label: "Subject"},
			{ID: Date, Term: "dcterms:date", Label: "Date"},
			{ID: Extent, Term: "dcterms:extent", Label: "Extent"},
			{ID: Relation, Term: "dcterms:relation", Label: "Relation"},
			{ID: Description, Term: "dcterms:description", Label: "Description"},
		},
		Classes: []resource.Class{
			{ID: 1, Term: "dctype:Text", Label: "Text"},
			{ID: 2, Term: "dctype:Image", Label: "Image"},
		},
	}
}

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(t time.Time) *time.Time { return &t }

func lit(term, v string) resource.Value {
	return resource.Value{Property: term, DataType: resource.DataLiteral, Value: v, IsPublic: true}
}

// Resources returns the fixture corpus:
//
//	1 item  "Moby Dick"        Text  public   set 10 site 1 media 5, links to 2
//	2 item  "Billy Budd"       Text  public   set 10 site 1
//	3 item  "Leaves of Grass"  Text  private  set 11
//	4 item  "Untitled Photo"   Image public   site 2
//	10/11   item sets "Novels" / "Poems"
//	5 media "Cover" of item 1, image/jpeg
func Resources() []resource.Resource {
	return []resource.Resource{
		{
			ID: 1, Type: resource.Items, Class: "dctype:Text", Title: "Moby Dick", IsPublic: true,
			Created: at("2020-01-15 10:00:00"), Modified: ptr(at("2021-06-01 00:00:00")),
			Values: []resource.Value{
				{Property: "dcterms:title", DataType: resource.DataLiteral, Lang: "en", Value: "Moby Dick", IsPublic: true},
				lit("dcterms:creator", "Herman Melville"),
				lit("dcterms:subject", "Whales"),
				lit("dcterms:subject", "Sea"),
				lit("dcterms:date", "1851"),
				lit("dcterms:extent", "635"),
				{Property: "dcterms:relation", DataType: resource.DataResource, ResourceID: 2, IsPublic: true},
			},
			ItemSetIDs: []int64{10}, SiteIDs: []int64{1},
		},
		{
			ID: 2, Type: resource.Items, Class: "dctype:Text", Title: "Billy Budd", IsPublic: true,
			Created: at("2020-06-01 00:00:00"),
			Values: []resource.Value{
				lit("dcterms:title", "Billy Budd"),
				lit("dcterms:creator", "Herman Melville"),
				lit("dcterms:subject", "Sea"),
				lit("dcterms:date", "1924-01"),
				lit("dcterms:extent", "112"),
			},
			ItemSetIDs: []int64{10}, SiteIDs: []int64{1},
		},
		{
			ID: 3, Type: resource.Items, Class: "dctype:Text", Title: "Leaves of Grass", IsPublic: false,
			Created: at("2019-03-10 08:30:00"),
			Values: []resource.Value{
				lit("dcterms:title", "Leaves of Grass"),
				lit("dcterms:creator", "Walt Whitman"),
				lit("dcterms:subject", "Poetry"),
				lit("dcterms:date", "1855-07-04"),
				{Property: "dcterms:description", DataType: resource.DataURI, URI: "http://example.com/grass", Value: "Grass", IsPublic: true},
			},
			ItemSetIDs: []int64{11},
		},
		{
			ID: 4, Type: resource.Items, Class: "dctype:Image", Title: "Untitled Photo", IsPublic: true,
			Created: at("2021-12-31 23:59:59"),
			Values: []resource.Value{
				lit("dcterms:title", "Untitled Photo"),
				lit("dcterms:subject", "100%_done"),
				lit("dcterms:extent", "9"),
			},
			SiteIDs: []int64{2},
		},
		{
			ID: 5, Type: resource.Media, Class: "dctype:Image", Title: "Cover", IsPublic: true,
			Created: at("2020-01-16 00:00:00"),
			Values:  []resource.Value{lit("dcterms:title", "Cover")},
			ItemID:  1, MediaType: "image/jpeg",
		},
		{
			ID: 10, Type: resource.ItemSets, Title: "Novels", IsPublic: true,
			Created: at("2018-01-01 00:00:00"),
			Values:  []resource.Value{lit("dcterms:title", "Novels")},
		},
		{
			ID: 11, Type: resource.ItemSets, Title: "Poems", IsPublic: true,
			Created: at("2018-02-01 00:00:00"),
			Values:  []resource.Value{lit("dcterms:title", "Poems")},
		},
	}
}

// Writer stores a catalog and resources.
type Writer interface {
	SaveCatalog(ctx context.Context, c resource.Catalog) error
	Save(ctx context.Context, resources []resource.Resource) error
}

// OpenSQLite opens a migrated in-memory SQLite store.
func OpenSQLite(t *testing.T) *sqldb.Store {
	t.Helper()
	s, err := sqldb.Open(sqldb.Config{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if _, err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

// Seed writes the fixture through w.
func Seed(t *testing.T, w Writer) {
	t.Helper()
	ctx := context.Background()
	if err := w.SaveCatalog(ctx, Catalog()); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	if err := w.Save(ctx, Resources()); err != nil {
		t.Fatalf("seed resources: %v", err)
	}
}

// Loaded returns Resources as the repository reads them back: items carry
// the media types of their media and linked resources their inverse links.
func Loaded() []resource.Resource {
	out := Resources()
	index := make(map[int64]int, len(out))
	for i, r := range out {
		index[r.ID] = i
	}
	for _, r := range out {
		if r.Type == resource.Media {
			item := &out[index[r.ItemID]]
			item.MediaTypes = append(item.MediaTypes, r.MediaType)
		}
		for _, v := range r.Values {
			if i, ok := index[v.ResourceID]; ok && v.ResourceID > 0 {
				out[i].LinkedBy = append(out[i].LinkedBy, resource.LinkedBy{Property: v.Property, Subject: r.ID})
			}
		}
	}
	return out
}

// Directory returns the summaries of the fixture resources.
func Directory() resource.Directory {
	dir := resource.Directory{}
	for _, r := range Resources() {
		dir[r.ID] = resource.Summary{Title: r.Title, ItemSetIDs: r.ItemSetIDs, SiteIDs: r.SiteIDs}
	}
	return dir
}
