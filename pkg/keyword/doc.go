// Package keyword provides a small embeddable keyword index with
// near-real-time search.
//
// Documents pass through an extraction pipeline (extract, split, drop stop
// words, match the term pattern), and every surviving word is written as a
// delete-then-insert transaction with its own commit, so a term can never
// hold more than one live entry. Searches run against generation snapshots
// of committed state: a generation is refreshed only when the writer has
// moved on, and a superseded generation stays open for a grace period so
// in-flight searches finish enumerating it.
//
// # Usage
//
// Create an in-memory index, add some text, and search it:
//
//	idx, err := keyword.New()
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	if err := idx.Index(ctx, "running runner walker"); err != nil {
//	    return err
//	}
//
//	res, err := idx.Search(ctx, "run*", 10)
//	if err != nil {
//	    return err
//	}
//	for _, hit := range res.Hits {
//	    fmt.Println(hit.Term, hit.Score)
//	}
//
// A blank query string matches everything, and leading wildcards ("*ing")
// are allowed by default. Pass WithPath to persist the index on disk:
//
//	idx, err := keyword.New(keyword.WithPath(".keydex/index"))
//
// # Thread Safety
//
// An Index is safe for concurrent use. Mutations serialize internally;
// any number of searches run in parallel against immutable snapshots.
//
// Once a mutation returns, every Search issued afterwards observes it. A
// search already in flight keeps the snapshot it started with.
package keyword
