package query

import (
	"context"
	"reflect"
	"strings"

	"docquery/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Populate names a relation to expand. The path field of each result
// document is replaced with the referenced document from the
// collection of the same name. Select and nested Populate apply to
// simple queries only; pipeline lookups use just the path.
type Populate struct {
	Path     string
	Select   []string
	Populate []Populate
}

// Handle is an unexecuted read against one collection. Stage builders
// refine it in place; nothing reaches the database until Exec, Count
// or Aggregate.
type Handle struct {
	coll     *mongo.Collection
	filter   bson.M
	opts     *options.FindOptions
	populate []Populate
}

func NewHandle(coll *mongo.Collection) *Handle {
	return &Handle{
		coll:   coll,
		filter: bson.M{},
		opts:   options.Find(),
	}
}

// Merge folds pred into the accumulated predicate; later keys win.
func (h *Handle) Merge(pred bson.M) *Handle {
	h.filter = database.NewFilter().Merge(h.filter).Merge(pred).Build()
	return h
}

// Sort accepts a space-separated token list, "-" prefix for descending.
func (h *Handle) Sort(spec string) *Handle {
	h.opts.SetSort(sortTokens(strings.Fields(spec)))
	return h
}

func (h *Handle) Skip(n int64) *Handle {
	h.opts.SetSkip(n)
	return h
}

func (h *Handle) Limit(n int64) *Handle {
	h.opts.SetLimit(n)
	return h
}

func (h *Handle) Populate(spec Populate) *Handle {
	h.populate = append(h.populate, spec)
	return h
}

// Exec runs the accumulated find and resolves pending relation
// expansions. Engine errors propagate unmodified.
func (h *Handle) Exec(ctx context.Context) ([]bson.M, error) {
	cursor, err := h.coll.Find(ctx, h.filter, h.opts)
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, spec := range h.populate {
		if err := h.expand(ctx, docs, spec); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// Count matches the accumulated predicate only; skip and limit are
// ignored.
func (h *Handle) Count(ctx context.Context) (int64, error) {
	return h.coll.CountDocuments(ctx, h.filter)
}

// Aggregate runs a pipeline against the handle's collection.
func (h *Handle) Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.M, error) {
	cursor, err := h.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// expand resolves one relation for a batch of documents with a single
// $in find against the same-named collection, keyed on _id. A path
// holding an array of references is replaced by the array of matched
// documents.
func (h *Handle) expand(ctx context.Context, docs []bson.M, spec Populate) error {
	if spec.Path == "" || len(docs) == 0 {
		return nil
	}
	refs := make(bson.A, 0, len(docs))
	for _, doc := range docs {
		refs = appendRefs(refs, doc[spec.Path])
	}
	if len(refs) == 0 {
		return nil
	}

	foreign := h.coll.Database().Collection(spec.Path)
	opts := options.Find()
	if len(spec.Select) > 0 {
		proj := bson.M{}
		for _, field := range spec.Select {
			proj[field] = 1
		}
		opts.SetProjection(proj)
	}

	filter := database.NewFilterKV("_id", bson.M{database.In: refs}).Build()
	cursor, err := foreign.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	var related []bson.M
	if err := cursor.All(ctx, &related); err != nil {
		return err
	}

	for _, nested := range spec.Populate {
		sub := &Handle{coll: foreign}
		if err := sub.expand(ctx, related, nested); err != nil {
			return err
		}
	}

	byID := make(map[any]bson.M, len(related))
	for _, doc := range related {
		if id := doc["_id"]; comparableRef(id) {
			byID[id] = doc
		}
	}
	attachRefs(byID, docs, spec.Path)
	return nil
}

// appendRefs collects the reference values of one path, flattening
// array-valued fields. Values that cannot serve as map keys later are
// skipped rather than fetched.
func appendRefs(refs bson.A, val any) bson.A {
	switch v := val.(type) {
	case bson.A:
		for _, item := range v {
			if comparableRef(item) {
				refs = append(refs, item)
			}
		}
	case []any:
		for _, item := range v {
			if comparableRef(item) {
				refs = append(refs, item)
			}
		}
	default:
		if comparableRef(v) {
			refs = append(refs, v)
		}
	}
	return refs
}

// attachRefs replaces reference values with the matched documents.
// Scalar refs are swapped in place and left alone when unmatched;
// array refs become the array of matches, in ref order.
func attachRefs(byID map[any]bson.M, docs []bson.M, path string) {
	for _, doc := range docs {
		switch ref := doc[path].(type) {
		case bson.A:
			doc[path] = matchRefs(byID, ref)
		case []any:
			doc[path] = matchRefs(byID, ref)
		default:
			if !comparableRef(ref) {
				continue
			}
			if rel, found := byID[ref]; found {
				doc[path] = rel
			}
		}
	}
}

func matchRefs(byID map[any]bson.M, refs []any) bson.A {
	matched := make(bson.A, 0, len(refs))
	for _, ref := range refs {
		if !comparableRef(ref) {
			continue
		}
		if rel, found := byID[ref]; found {
			matched = append(matched, rel)
		}
	}
	return matched
}

// comparableRef reports whether a reference value can index a map.
// Values decoded from documents can be slices (bson.A, bson.D), which
// cannot.
func comparableRef(v any) bool {
	return v != nil && reflect.TypeOf(v).Comparable()
}

// sortTokens translates "-" prefixed field tokens into an ordered
// field/direction document. Token order fixes sort priority.
func sortTokens(tokens []string) bson.D {
	spec := make(bson.D, 0, len(tokens))
	for _, tok := range tokens {
		dir := 1
		if strings.HasPrefix(tok, "-") {
			dir = -1
			tok = tok[1:]
		}
		if tok == "" {
			continue
		}
		spec = append(spec, bson.E{Key: tok, Value: dir})
	}
	return spec
}
