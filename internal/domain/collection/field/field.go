package field

// Type is the indexing type of a field.
type Type string

// Field type constants.
const (
	// Tag is an exact match field (brand, category).
	Tag     Type = "tag"
	Numeric Type = "numeric"
)

// Field is an immutable value object describing an indexed collection field.
type Field struct {
	name      string
	fieldType Type
}

// Reconstruct creates a Field. The schema is fixed at compile time, so no validation is done.
func Reconstruct(name string, ft Type) Field {
	return Field{name: name, fieldType: ft}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's indexing type.
func (f Field) FieldType() Type { return f.fieldType }
