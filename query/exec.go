package query

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Meta describes where a page of results sits in the full match set.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int64 `json:"page"`
	Limit      int64 `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

// Result pairs a page of documents with its pagination metadata.
type Result struct {
	Meta Meta     `json:"meta"`
	Data []bson.M `json:"data"`
}

// Exec runs the accumulated query or pipeline and returns the matching
// documents. Engine errors propagate unmodified; the duration log is
// observability only.
func (f *Features) Exec(ctx context.Context) ([]bson.M, error) {
	start := time.Now()
	docs, err := f.run(ctx)
	log.Debug().
		Dur("took", time.Since(start)).
		Bool("pipeline", f.aggregated).
		Int("docs", len(docs)).
		Msg("query executed")
	return docs, err
}

func (f *Features) run(ctx context.Context) ([]bson.M, error) {
	if f.aggregated {
		return f.handle.Aggregate(ctx, f.pipeline)
	}
	return f.handle.Exec(ctx)
}

// ExecWithMeta computes the total match count, runs the query as Exec
// does, and returns both with page metadata. Page and limit are
// re-derived from the raw parameters with the package defaults, so the
// metadata can diverge from an earlier Paginate call made with a
// different default.
func (f *Features) ExecWithMeta(ctx context.Context) (*Result, error) {
	total, err := f.count(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := f.Exec(ctx)
	if err != nil {
		return nil, err
	}
	page, limit := f.resolvePaging(DefaultLimit)
	return &Result{
		Meta: buildMeta(total, page, limit),
		Data: docs,
	}, nil
}

func (f *Features) count(ctx context.Context) (int64, error) {
	if !f.aggregated {
		return f.handle.Count(ctx)
	}
	rows, err := f.handle.Aggregate(ctx, countPipeline(f.pipeline))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return toInt64(rows[0]["total"]), nil
}

// countPipeline copies the stages before appending $count so the live
// pipeline stays untouched for the data query.
func countPipeline(stages mongo.Pipeline) mongo.Pipeline {
	counted := make(mongo.Pipeline, len(stages), len(stages)+1)
	copy(counted, stages)
	return append(counted, bson.D{{Key: "$count", Value: "total"}})
}

func buildMeta(total, page, limit int64) Meta {
	meta := Meta{Total: total, Page: page, Limit: limit}
	if limit > 0 {
		meta.TotalPages = int64(math.Ceil(float64(total) / float64(limit)))
	}
	return meta
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
