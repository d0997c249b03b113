package database

import (
	"github.com/huandu/go-sqlbuilder"
)

// Excluded references the conflicting row's proposed value in an
// ON CONFLICT ... DO UPDATE clause.
func Excluded(column string) any {
	return sqlbuilder.Raw("EXCLUDED." + column)
}

func NewInsertBuilder() *sqlbuilder.InsertBuilder {
	return sqlbuilder.PostgreSQL.NewInsertBuilder()
}

func NewSelectBuilder() *sqlbuilder.SelectBuilder {
	return sqlbuilder.PostgreSQL.NewSelectBuilder()
}

func NewUpdateBuilder() *sqlbuilder.UpdateBuilder {
	return sqlbuilder.PostgreSQL.NewUpdateBuilder()
}

func NewDeleteBuilder() *sqlbuilder.DeleteBuilder {
	return sqlbuilder.PostgreSQL.NewDeleteBuilder()
}
