package models

// Roster is the ordered list of student ids assigned to a mentor.
// It has set semantics: an id appears at most once.
type Roster []string

func (r Roster) Contains(studentID string) bool {
	for _, id := range r {
		if id == studentID {
			return true
		}
	}
	return false
}

// Add appends studentID unless it is already present. It reports whether the roster changed.
func (r *Roster) Add(studentID string) bool {
	if r.Contains(studentID) {
		return false
	}
	*r = append(*r, studentID)
	return true
}

// Remove drops every occurrence of studentID, keeping the order of the rest.
// It reports whether the roster changed.
func (r *Roster) Remove(studentID string) bool {
	out := (*r)[:0]
	removed := false
	for _, id := range *r {
		if id == studentID {
			removed = true
			continue
		}
		out = append(out, id)
	}
	*r = out
	return removed
}

func (r Roster) Len() int {
	return len(r)
}

func (r Roster) IsEmpty() bool {
	return len(r) == 0
}

// Clone returns a copy that does not share the backing array.
func (r Roster) Clone() Roster {
	if r == nil {
		return Roster{}
	}
	out := make(Roster, len(r))
	copy(out, r)
	return out
}
