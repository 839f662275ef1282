package models

// Field is one column of a row
type Field struct {
	Key   string
	Value interface{}
}

// Record is a row as an ordered list of columns
type Record []Field

// Keys returns column names in order
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the value stored under key
func (r Record) Get(key string) (interface{}, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Records converts a slice of submissions into rows
func Records[T Submission](rows []T) []Record {
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = row.Record()
	}
	return out
}
