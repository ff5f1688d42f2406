package relational

// Relationship describes a one-to-many association a Model exposes
// through ast.Field names like "items" in Has('items') — the shape
// backing the correlated-subquery lowering of Has. RelatedModel lets a
// nested .Where() predicate resolve its field names against the related
// table, not the outer one.
type Relationship struct {
	RelatedTable string
	// ForeignKey is the column on RelatedTable referencing LocalKey.
	ForeignKey string
	// LocalKey is the column on the owning Model's table, usually its
	// primary key.
	LocalKey     string
	RelatedModel Model
}

// Model maps ast.Field names onto SQL columns and relationships for one
// table. Implementations are typically small, hand-written structs — one
// per entity — rather than a reflection-derived schema; field-path
// validity is checked at evaluation time, and a Model is where that
// check happens for the relational backend.
type Model interface {
	// Table is the SQL table name.
	Table() string
	// Columns lists every selectable column, in the order Scan expects.
	Columns() []string
	// Column maps an ast.Field name to a SQL column name.
	Column(field string) (string, bool)
	// Relationship maps an ast.Field name (as used by Has) to the
	// association it navigates.
	Relationship(field string) (Relationship, bool)
}
