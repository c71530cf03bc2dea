package models

// Well-known field names within a user record. The field set is open
// ended; these are the ones the service itself reads or writes.
const (
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldPasswordHash = "password_hash"
	FieldCreatedAt    = "created_at"
)

// Record is the full set of named fields stored under one username.
// Values are always strings; the store performs no type coercion.
type Record map[string]string

// Username returns the record's identity field.
func (r Record) Username() string {
	return r[FieldUsername]
}

// Clone returns an independent copy of the record so callers never
// share a map with the store or with each other.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Sanitized returns a copy of the record with credential material
// removed. Handlers must only ever serialize sanitized records.
func (r Record) Sanitized() Record {
	out := r.Clone()
	delete(out, FieldPasswordHash)
	return out
}
