package storage

import "encoding/hex"

// Column is a single named, string typed value.
type Column struct {
	Name  string
	Value string
}

// Row is an ordered column mapping.
type Row []Column

// Get returns the value of the first column called name.
func (r Row) Get(name string) (string, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Clone returns a copy that shares no backing array with r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

type condition struct {
	column string
	values map[string]struct{}
}

// Predicate is a conjunction of "column IN (values...)" conditions.
// The zero Predicate matches every row.
type Predicate struct {
	conds []condition
}

// Where starts a predicate matching rows whose column equals one of values.
func Where(column string, values ...string) Predicate {
	return Predicate{}.And(column, values...)
}

// And narrows p with another IN condition. An empty value list matches nothing.
func (p Predicate) And(column string, values ...string) Predicate {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	conds := make([]condition, len(p.conds), len(p.conds)+1)
	copy(conds, p.conds)
	return Predicate{conds: append(conds, condition{column: column, values: set})}
}

// IsZero reports whether p matches every row.
func (p Predicate) IsZero() bool { return len(p.conds) == 0 }

// Match evaluates p against r. A row lacking a constrained column never matches.
func (p Predicate) Match(r Row) bool {
	for _, c := range p.conds {
		v, ok := r.Get(c.column)
		if !ok {
			return false
		}
		if _, hit := c.values[v]; !hit {
			return false
		}
	}
	return true
}

// ColCorruptKey is the only column of a row standing in for a stored record
// that failed its checksum. Its value is the hex encoded record key.
const ColCorruptKey = "_corrupt_key"

// CorruptRow returns the stand-in row for the record stored under key.
func CorruptRow(key []byte) Row {
	return Row{{Name: ColCorruptKey, Value: hex.EncodeToString(key)}}
}

// CorruptKey returns the record key of a stand-in row.
func CorruptKey(r Row) (string, bool) {
	if len(r) != 1 || r[0].Name != ColCorruptKey {
		return "", false
	}
	return r[0].Value, true
}

// Surfaces reports whether a read (Select or Count) with p returns r. Corrupt
// stand-in rows cannot be evaluated, so every read returns them unless p
// names ColCorruptKey. Delete uses Match and removes them only by key.
func (p Predicate) Surfaces(r Row) bool {
	if _, ok := CorruptKey(r); ok && !p.names(ColCorruptKey) {
		return true
	}
	return p.Match(r)
}

func (p Predicate) names(column string) bool {
	for _, c := range p.conds {
		if c.column == column {
			return true
		}
	}
	return false
}
