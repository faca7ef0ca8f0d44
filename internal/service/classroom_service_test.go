package service

import (
	"testing"

	"reflection_sync_backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClassroomService(t *testing.T) *ClassroomService {
	t.Helper()
	return NewClassroomService(repository.NewClassroomRepository(newTestDB(t)))
}

func TestCurrentGeneratesCodeOnFirstRun(t *testing.T) {
	svc := newClassroomService(t)

	code, err := svc.Current()
	require.NoError(t, err)
	assert.Regexp(t, `^KLAS-\d{4}$`, code)

	// 第二次拿到同一个码
	again, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, code, again)
}

func TestSetCurrentNormalizesAndRecordsRecent(t *testing.T) {
	svc := newClassroomService(t)

	require.NoError(t, svc.SetCurrent(" klas-5678 "))

	code, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, "KLAS-5678", code)

	recent, err := svc.Recent()
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "KLAS-5678", recent[0].Code)
}

func TestSetCurrentRejectsEmptyCode(t *testing.T) {
	svc := newClassroomService(t)
	assert.ErrorIs(t, svc.SetCurrent("   "), repository.ErrEmptyClassroomCode)
}
