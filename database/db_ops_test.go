package database

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestFilterBuilder(t *testing.T) {
	tests := []struct {
		name  string
		build func() bson.M
		want  bson.M
	}{
		{
			name: "kv chain",
			build: func() bson.M {
				return NewFilterKV("a", 1).AddKV("b", 2).Build()
			},
			want: bson.M{"a": 1, "b": 2},
		},
		{
			name: "merge later keys win",
			build: func() bson.M {
				return NewFilterKV("a", 1).Merge(bson.M{"a": 9, "b": 2}).Build()
			},
			want: bson.M{"a": 9, "b": 2},
		},
		{
			name: "empty",
			build: func() bson.M {
				return NewFilter().Build()
			},
			want: bson.M{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.build()
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Fatalf("key %s: got %v, want %v", k, got[k], v)
				}
			}
		})
	}
}
