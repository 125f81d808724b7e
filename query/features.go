package query

import (
	"strconv"
	"strings"

	"docquery/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// target is the piece of builder state a stage writes to. The simple
// variant refines the query handle, the pipeline variant appends
// stages in call order.
type target interface {
	applyMatch(pred bson.M)
	applySort(tokens []string)
	applyPagination(skip, limit int64)
	applyLookup(spec Populate)
}

type simpleTarget struct {
	handle *Handle
}

func (t simpleTarget) applyMatch(pred bson.M) {
	t.handle.Merge(pred)
}

func (t simpleTarget) applySort(tokens []string) {
	t.handle.Sort(strings.Join(tokens, " "))
}

func (t simpleTarget) applyPagination(skip, limit int64) {
	t.handle.Skip(skip).Limit(limit)
}

func (t simpleTarget) applyLookup(spec Populate) {
	t.handle.Populate(spec)
}

type pipelineTarget struct {
	stages *mongo.Pipeline
}

func (t pipelineTarget) applyMatch(pred bson.M) {
	*t.stages = append(*t.stages, bson.D{{Key: "$match", Value: pred}})
}

func (t pipelineTarget) applySort(tokens []string) {
	// bson.D keeps the declared field order, which fixes sort priority.
	*t.stages = append(*t.stages, bson.D{{Key: "$sort", Value: sortTokens(tokens)}})
}

func (t pipelineTarget) applyPagination(skip, limit int64) {
	*t.stages = append(*t.stages,
		bson.D{{Key: "$skip", Value: skip}},
		bson.D{{Key: "$limit", Value: limit}},
	)
}

// applyLookup joins the same-named collection on its _id field; the
// path doubles as foreign collection, local field and output alias.
// Arbitrary local/foreign pairs are not supported in pipeline mode.
func (t pipelineTarget) applyLookup(spec Populate) {
	*t.stages = append(*t.stages, bson.D{{Key: "$lookup", Value: bson.M{
		"from":         spec.Path,
		"localField":   spec.Path,
		"foreignField": "_id",
		"as":           spec.Path,
	}}})
}

// Features builds one read operation from client query parameters,
// either as a refined find or as an aggregation pipeline. Stage
// methods chain and are synchronous; Exec and ExecWithMeta are the
// terminal calls. An instance serves a single request and is not safe
// for concurrent use.
type Features struct {
	handle     *Handle
	params     Params
	pipeline   mongo.Pipeline
	aggregated bool
}

func New(handle *Handle, params Params) *Features {
	return &Features{
		handle: handle,
		params: params,
	}
}

func (f *Features) target() target {
	if f.aggregated {
		return pipelineTarget{stages: &f.pipeline}
	}
	return simpleTarget{handle: f.handle}
}

// Search adds a case-insensitive substring match of the "search"
// parameter, OR-combined across the candidate fields. No-op when the
// parameter is absent or empty, or when no fields are given.
func (f *Features) Search(fields ...string) *Features {
	term := f.params.Get(ParamSearch)
	if term == "" || len(fields) == 0 {
		return f
	}
	conds := make(bson.A, 0, len(fields))
	for _, field := range fields {
		conds = append(conds, bson.M{field: bson.M{
			database.Regex:   term,
			database.Options: "i",
		}})
	}
	f.target().applyMatch(bson.M{database.Or: conds})
	return f
}

// Filter turns the non-reserved parameters into a predicate, rewriting
// the comparison keys gt, gte, lt, lte and in to their engine operator
// form. Values pass through untyped; the engine surfaces any mismatch.
func (f *Features) Filter() *Features {
	pred := bson.M{}
	for key, val := range f.params {
		if _, reserved := reservedParams[key]; reserved {
			continue
		}
		pred[key] = rewriteOperators(val)
	}
	f.target().applyMatch(pred)
	return f
}

var operatorSigils = map[string]string{
	"gt":  database.Gt,
	"gte": database.Gte,
	"lt":  database.Lt,
	"lte": database.Lte,
	"in":  database.In,
}

// rewriteOperators walks nested maps, replacing recognized comparison
// keys and leaving every other key and all values untouched.
func rewriteOperators(val any) any {
	var m map[string]any
	switch v := val.(type) {
	case map[string]any:
		m = v
	case bson.M:
		m = v
	default:
		return val
	}
	out := bson.M{}
	for k, v := range m {
		if sigil, ok := operatorSigils[k]; ok {
			k = sigil
		}
		out[k] = rewriteOperators(v)
	}
	return out
}

// Sort applies the "sort" parameter, falling back to defaultSort when
// absent. Tokens are comma-separated, earlier fields take priority and
// a "-" prefix sorts descending.
func (f *Features) Sort(defaultSort string) *Features {
	spec := f.params.Get(ParamSort)
	if spec == "" {
		spec = defaultSort
	}
	f.target().applySort(strings.Split(spec, ","))
	return f
}

// Paginate reads "page" and "limit", degrading to page 1 and
// defaultLimit when absent or non-numeric. Skip is clamped to zero for
// out-of-range page numbers.
func (f *Features) Paginate(defaultLimit int64) *Features {
	page, limit := f.resolvePaging(defaultLimit)
	skip := (page - 1) * limit
	if skip < 0 {
		skip = 0
	}
	f.target().applyPagination(skip, limit)
	return f
}

func (f *Features) resolvePaging(defaultLimit int64) (page, limit int64) {
	page = DefaultPage
	if n, err := strconv.ParseInt(f.params.Get(ParamPage), 10, 64); err == nil {
		page = n
	}
	limit = defaultLimit
	if n, err := strconv.ParseInt(f.params.Get(ParamLimit), 10, 64); err == nil {
		limit = n
	}
	return page, limit
}

// Populate expands the named relations. No-op for empty specs.
func (f *Features) Populate(specs ...Populate) *Features {
	for _, spec := range specs {
		if spec.Path == "" {
			continue
		}
		f.target().applyLookup(spec)
	}
	return f
}

// Aggregate switches the builder to pipeline mode; subsequent stage
// calls append to the pipeline and there is no way back to simple
// mode. Calling it again replaces the accumulated stages.
func (f *Features) Aggregate(pipeline mongo.Pipeline) *Features {
	f.aggregated = true
	f.pipeline = pipeline
	return f
}
