package database

import "go.mongodb.org/mongo-driver/bson"

// Engine operator sigils, shared with the query layer.
const (
	All     string = "$all"
	In      string = "$in"
	Nin     string = "$nin"
	Gt      string = "$gt"
	Gte     string = "$gte"
	Lt      string = "$lt"
	Lte     string = "$lte"
	Eq      string = "$eq"
	Ne      string = "$ne"
	Or      string = "$or"
	Regex   string = "$regex"
	Options string = "$options"
	Expr    string = "$expr"
)

type FilterBuilder struct {
	filter bson.M
}

func NewFilter() *FilterBuilder {
	return &FilterBuilder{
		filter: bson.M{},
	}
}

func NewFilterKV(key string, value any) *FilterBuilder {
	return NewFilter().AddKV(key, value)
}

func (b *FilterBuilder) Build() bson.M {
	return b.filter
}

func (b *FilterBuilder) AddKV(key string, value any) *FilterBuilder {
	b.filter[key] = value
	return b
}

// Merge copies every key of other into the filter; later keys win.
func (b *FilterBuilder) Merge(other bson.M) *FilterBuilder {
	for k, v := range other {
		b.filter[k] = v
	}
	return b
}
