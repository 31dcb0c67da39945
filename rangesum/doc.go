// Package rangesum sums inclusive integer ranges by recursive fork/join on a
// work-stealing pool.
//
// A range wider than the threshold is split at its midpoint. Both halves are
// forked onto the pool, then joined left first. Ranges at or below the
// threshold are summed by direct iteration. Every task reports its range to
// an optional Observer before it computes.
//
//	p := pool.New()
//	_ = p.Start(ctx)
//	defer p.Shutdown(time.Second)
//
//	sum, err := rangesum.Compute(ctx, p, 1, 4) // 10
package rangesum
