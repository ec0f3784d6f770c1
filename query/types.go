package query

import (
	"github.com/huandu/go-sqlbuilder"
)

// Builder builds SQL queries for feed filtering and scoring
type Builder interface {
	Build(page int, pageSize int) (string, []interface{})
}

// ScoringStrategy defines how posts should be scored/ranked
type ScoringStrategy interface {
	// ApplyScoring returns the scoring expression, binding any parameters to sb
	ApplyScoring(sb *sqlbuilder.SelectBuilder) string
}

// FilterStrategy adds WHERE conditions to the query
type FilterStrategy interface {
	// ApplyFilter adds filter conditions to the query builder
	ApplyFilter(sb *sqlbuilder.SelectBuilder)
}
