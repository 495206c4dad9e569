package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"entgo.io/ent/schema/mixin"
)

// EventMixin numbers rows of append-only tables. The sequence is drawn from
// the same counter as sessions, so events order against them.
type EventMixin struct {
	mixin.Schema
}

func (EventMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Int64("sequence").
			Immutable().
			Comment("Shared with sessions.sequence"),
		field.Int64("timestamp").
			Immutable().
			Comment("Unix milliseconds"),
	}
}

func (EventMixin) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("sequence").Unique(),
		index.Fields("timestamp"),
	}
}
