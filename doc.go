// Package basalt provides a typed, zero-copy access layer over columnar
// Parquet tables.
//
// A Parquet file stores each column in row-group-sized pieces. Basalt
// keeps that physical layout visible instead of flattening it: columns
// surface as chunked views (pkg/chunked) whose chunks alias the table's
// buffers directly, with O(log n) random access over a prefix-sum index
// and a cross-chunk iterator for sequential scans.
//
// # Layering
//
//	pkg/engine   - Parquet table engine: open, project, filter, write
//	pkg/chunked  - typed chunked column views and cross-chunk iteration
//	pkg/frame    - DataFrame: an open table with typed column accessors
//	pkg/codec    - struct <-> column mapping with typed queries
//
// Ambient packages: pkg/config (YAML configuration), pkg/logger (zap),
// pkg/metrics (Prometheus), pkg/errors (typed structured errors).
//
// # Quick Start
//
// Write records, then query them back with projection and predicate
// pushdown:
//
//	type Tick struct {
//	    Symbol string
//	    Price  float64
//	    At     time.Time
//	}
//
//	ticks := codec.For(func(c *codec.Codec[Tick]) {
//	    symbol = c.String("symbol", func(t *Tick) *string { return &t.Symbol })
//	    price = c.Float64("price", func(t *Tick) *float64 { return &t.Price })
//	    at = c.Time("at", func(t *Tick) *time.Time { return &t.At })
//	})
//
//	w := codec.NewWriter("ticks.parquet", ticks)
//	w.WriteRecords(data)
//	if err := w.Finish(); err != nil { ... }
//
//	recs, err := codec.NewQuery("ticks.parquet", ticks).
//	    Select(symbol, price).
//	    Filter(price, engine.Gt, 100.0).
//	    Collect(ctx)
//
// For column-oriented access, open a DataFrame instead:
//
//	df, err := frame.Open(ctx, "ticks.parquet")
//	defer df.Close()
//	prices, err := frame.Column[float64](df, "price")
//	for v := range prices.Values() { ... }
//
// # Lifetime Contract
//
// Chunked views are non-owning. Every chunk, iterator, and slice
// obtained from a DataFrame aliases memory owned by that DataFrame and
// is invalid after Close. Rechunk also invalidates existing views.
package basalt
