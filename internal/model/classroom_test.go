package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeClassroomCode(t *testing.T) {
	assert.Equal(t, "KLAS-1234", NormalizeClassroomCode("  klas-1234 "))
	assert.Equal(t, "", NormalizeClassroomCode("   "))
}

func TestNewClassroomCodeFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := NewClassroomCode()
		assert.Regexp(t, `^KLAS-\d{4}$`, code)
	}
}

func TestNewReflectionIDEmbedsUserID(t *testing.T) {
	id := NewReflectionID("u42")
	assert.True(t, strings.HasSuffix(id, "-u42"))

	parts := strings.SplitN(id, "-", 2)
	require.Len(t, parts, 2)
	assert.Regexp(t, `^\d+$`, parts[0], "prefix is a millisecond timestamp")
}

func TestCloneIsDeep(t *testing.T) {
	state := &ClassroomState{
		Goals: []LearningGoal{{
			ID:          "g1",
			Reflections: []ReflectionEntry{{ID: "r1", Content: "origineel"}},
		}},
		Users: []User{{ID: "u1", Name: "Sanne"}},
	}

	clone := state.Clone()
	clone.Goals[0].Reflections[0].Content = "aangepast"
	clone.Users[0].Name = "anders"

	assert.Equal(t, "origineel", state.Goals[0].Reflections[0].Content)
	assert.Equal(t, "Sanne", state.Users[0].Name)
}

func TestSubjectValid(t *testing.T) {
	assert.True(t, SubjectMath.Valid())
	assert.True(t, Subject("Aardrijkskunde").Valid())
	assert.False(t, Subject("Wiskunde").Valid())
	assert.False(t, Subject("").Valid())
}
