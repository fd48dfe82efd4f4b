package processor

// FieldTable counts occurrences of each distinct value observed for one
// field within one document, preserving first-seen order. Counts are
// strictly positive; a value is appended to the order the first time it is
// added.
type FieldTable struct {
	values []string
	counts map[string]int
}

// NewFieldTable returns an empty table.
func NewFieldTable() *FieldTable {
	return &FieldTable{counts: make(map[string]int)}
}

// Add records one occurrence of value.
func (t *FieldTable) Add(value string) {
	if _, seen := t.counts[value]; !seen {
		t.values = append(t.values, value)
	}
	t.counts[value]++
}

// Len returns the number of distinct values.
func (t *FieldTable) Len() int {
	return len(t.values)
}

// Count returns the occurrence count for value, zero if never added.
func (t *FieldTable) Count(value string) int {
	return t.counts[value]
}

// Values returns the distinct values in first-seen order. The returned
// slice is shared with the table and must not be modified.
func (t *FieldTable) Values() []string {
	return t.values
}

// Total returns the sum of all occurrence counts.
func (t *FieldTable) Total() int {
	total := 0
	for _, n := range t.counts {
		total += n
	}
	return total
}

// Max returns the largest occurrence count, zero for an empty table.
func (t *FieldTable) Max() int {
	max := 0
	for _, n := range t.counts {
		if n > max {
			max = n
		}
	}
	return max
}

// Contains reports whether value was ever added.
func (t *FieldTable) Contains(value string) bool {
	_, ok := t.counts[value]
	return ok
}

// TableSet is an ordered mapping from field name to its FieldTable. Fixed
// fields are registered up front in document order; dynamic fields (sample
// attribute keys) are appended in first-seen order.
type TableSet struct {
	names  []string
	tables map[string]*FieldTable
}

// NewTableSet returns a set with the given fields pre-registered, in order.
func NewTableSet(fields ...string) *TableSet {
	s := &TableSet{tables: make(map[string]*FieldTable, len(fields))}
	for _, f := range fields {
		s.names = append(s.names, f)
		s.tables[f] = NewFieldTable()
	}
	return s
}

// Field returns the table for name, creating and registering it on first
// use.
func (s *TableSet) Field(name string) *FieldTable {
	if t, ok := s.tables[name]; ok {
		return t
	}
	t := NewFieldTable()
	s.names = append(s.names, name)
	s.tables[name] = t
	return t
}

// Get returns the table for name without creating it.
func (s *TableSet) Get(name string) (*FieldTable, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Names returns the field names in registration order. The returned slice
// is shared with the set and must not be modified.
func (s *TableSet) Names() []string {
	return s.names
}

// Len returns the number of registered fields.
func (s *TableSet) Len() int {
	return len(s.names)
}

// Summary is an ordered mapping from field name to its rendered summary
// string, as produced by Aggregate.
type Summary struct {
	names  []string
	fields map[string]string
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{fields: make(map[string]string)}
}

// Set stores the rendered value for name, keeping the position of an
// already-present name.
func (s *Summary) Set(name, value string) {
	if _, ok := s.fields[name]; !ok {
		s.names = append(s.names, name)
	}
	s.fields[name] = value
}

// Get returns the rendered value for name.
func (s *Summary) Get(name string) (string, bool) {
	v, ok := s.fields[name]
	return v, ok
}

// Pop removes name from the summary and returns its value. Used to promote
// identifier fields out of the text body into record metadata.
func (s *Summary) Pop(name string) (string, bool) {
	v, ok := s.fields[name]
	if !ok {
		return "", false
	}
	delete(s.fields, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	return v, true
}

// Names returns the field names in insertion order. The returned slice is
// shared with the summary and must not be modified.
func (s *Summary) Names() []string {
	return s.names
}

// Len returns the number of fields in the summary.
func (s *Summary) Len() int {
	return len(s.names)
}
