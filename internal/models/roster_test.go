package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoster_AddOnce(t *testing.T) {
	var r Roster

	assert.True(t, r.Add("0000000001"))
	assert.True(t, r.Add("0000000002"))
	assert.False(t, r.Add("0000000001"))

	assert.Equal(t, Roster{"0000000001", "0000000002"}, r)
	assert.Equal(t, 2, r.Len())
}

func TestRoster_RemoveIfPresent(t *testing.T) {
	r := Roster{"a", "b", "c"}

	assert.True(t, r.Remove("b"))
	assert.Equal(t, Roster{"a", "c"}, r)

	assert.False(t, r.Remove("missing"))
	assert.Equal(t, Roster{"a", "c"}, r)

	assert.True(t, r.Remove("a"))
	assert.True(t, r.Remove("c"))
	assert.True(t, r.IsEmpty())
}

func TestRoster_Clone(t *testing.T) {
	var empty Roster
	assert.NotNil(t, empty.Clone())
	assert.Len(t, empty.Clone(), 0)

	r := Roster{"a", "b"}
	c := r.Clone()
	c.Remove("a")

	assert.Equal(t, Roster{"a", "b"}, r)
	assert.Equal(t, Roster{"b"}, c)
}

func TestStudent_MentorRefs(t *testing.T) {
	s := &Student{ID: "s1"}
	assert.False(t, s.HasMentor())
	assert.Equal(t, "", s.CurrentMentor())
	assert.Equal(t, "", s.PreviousMentor())

	s.CurrentTeacherID = StringPtr("m1")
	s.PrevTeacherID = StringPtr("m0")
	assert.True(t, s.HasMentor())
	assert.True(t, s.IsAssignedTo("m1"))
	assert.False(t, s.IsAssignedTo("m0"))
	assert.Equal(t, "m0", s.PreviousMentor())

	assert.Nil(t, StringPtr(""))
}
