package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SessionReport is one finished monitoring session. The full report is
// stored zstd-compressed in report; the other columns exist for listing
// and filtering without decoding it.
type SessionReport struct {
	ent.Schema
}

func (SessionReport) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "sessions"},
	}
}

func (SessionReport) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			NotEmpty().
			Immutable().
			Comment("Session UUID"),
		field.Int64("sequence").
			Comment("Global sequence number at the time of the last write"),
		field.String("teacher_id").
			Default("").
			Comment("Normalized teacher name, empty when unassigned"),
		field.String("subject"),
		field.String("topic"),
		field.Enum("mode").
			Values("live", "simulation"),
		field.String("grade").
			Comment("Letter grade, A+ through F"),
		field.Float("score"),
		field.Float("on_topic_pct"),
		field.Int64("started_at").
			Comment("Unix milliseconds"),
		field.Int64("ended_at").
			Comment("Unix milliseconds"),
		field.Bytes("report").
			Comment("zstd-compressed JSON report"),
	}
}

func (SessionReport) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("teacher_id", "sequence"),
	}
}
