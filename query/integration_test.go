package query

import (
	"context"
	"os"
	"strings"
	"testing"

	"docquery/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Exercises both execution modes against a live MongoDB. Skipped
// unless MONGO_URI is set, like the connection smoke test.
func TestExecAgainstMongo(t *testing.T) {
	if os.Getenv("MONGO_URI") == "" {
		t.Skip("MONGO_URI not set")
	}
	database.InitDB()
	defer database.CloseDB()

	ctx := context.TODO()
	coll := database.GetDB().Collection("products_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	defer coll.Drop(ctx)

	seed := []any{
		bson.M{"name": "alpha", "category": "book"},
		bson.M{"name": "beta", "category": "book"},
		bson.M{"name": "gamma", "category": "toy"},
	}
	_, err := coll.InsertMany(ctx, seed)
	require.NoError(t, err)

	params := Params{
		"category": "book",
		"sort":     "name",
		"page":     "2",
		"limit":    "1",
	}

	t.Run("simple mode with metadata", func(t *testing.T) {
		f := New(NewHandle(coll), params).Filter().Sort(DefaultSort).Paginate(DefaultLimit)
		res, err := f.ExecWithMeta(ctx)
		require.NoError(t, err)

		// Count ignores skip/limit in simple mode.
		assert.Equal(t, Meta{Total: 2, Page: 2, Limit: 1, TotalPages: 2}, res.Meta)
		require.Len(t, res.Data, 1)
		assert.Equal(t, "beta", res.Data[0]["name"])
	})

	t.Run("pipeline mode", func(t *testing.T) {
		f := New(NewHandle(coll), params).
			Aggregate(mongo.Pipeline{}).
			Filter().Sort(DefaultSort).Paginate(DefaultLimit)
		docs, err := f.Exec(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "beta", docs[0]["name"])

		// The count stage runs on a copy of the full pipeline, so the
		// total reflects the skip/limit stages too.
		res, err := f.ExecWithMeta(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Meta.Total)
		require.Len(t, f.pipeline, 4, "live pipeline must not grow a count stage")
	})

	t.Run("simple mode populate", func(t *testing.T) {
		authors := database.GetDB().Collection("author")
		defer authors.Drop(ctx)
		ins, err := authors.InsertOne(ctx, bson.M{"name": "carol"})
		require.NoError(t, err)
		_, err = coll.InsertOne(ctx, bson.M{"name": "delta", "category": "zine", "author": ins.InsertedID})
		require.NoError(t, err)

		f := New(NewHandle(coll), Params{"category": "zine"}).
			Filter().
			Populate(Populate{Path: "author"})
		docs, err := f.Exec(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		author, ok := docs[0]["author"].(bson.M)
		require.True(t, ok, "author reference should be replaced inline")
		assert.Equal(t, "carol", author["name"])
	})

	t.Run("simple mode populate with array references", func(t *testing.T) {
		reviewers := database.GetDB().Collection("reviewers")
		defer reviewers.Drop(ctx)
		r1, err := reviewers.InsertOne(ctx, bson.M{"name": "erin"})
		require.NoError(t, err)
		r2, err := reviewers.InsertOne(ctx, bson.M{"name": "frank"})
		require.NoError(t, err)
		_, err = coll.InsertOne(ctx, bson.M{
			"name":      "epsilon",
			"category":  "journal",
			"reviewers": bson.A{r1.InsertedID, r2.InsertedID},
		})
		require.NoError(t, err)

		f := New(NewHandle(coll), Params{"category": "journal"}).
			Filter().
			Populate(Populate{Path: "reviewers"})
		docs, err := f.Exec(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		expanded, ok := docs[0]["reviewers"].(bson.A)
		require.True(t, ok, "reviewer array should hold the matched documents")
		require.Len(t, expanded, 2)
		first, ok := expanded[0].(bson.M)
		require.True(t, ok)
		assert.Equal(t, "erin", first["name"])
	})
}
