// Package facetdex embeds the facetdex search engine in a Go program.
//
// The client reads resources from SQLite or PostgreSQL and answers
// advanced searches through the internal SQL engine, and optionally through
// a Redis search index or an embedded bleve index rebuilt from the same
// database.
//
//	client, _ := facetdex.New(ctx,
//	    facetdex.WithSQLite("catalog.db"),
//	    facetdex.WithBleve(":memory:"),
//	    facetdex.WithPage("catalog", facetdex.Page{
//	        ResourceTypes: []string{"items"},
//	        Facets: []facetdex.FacetSpec{
//	            {Name: "subject", Field: "dcterms:subject", Type: facetdex.FacetValue},
//	        },
//	    }),
//	)
//	defer client.Close()
//
//	q, _ := facetdex.NewQuery().Text("whales").Page(1, 20).Build()
//	resp, _ := client.Search(ctx, "catalog", q)
//
// Queries arriving over HTTP parse with ParseQuery.
package facetdex
