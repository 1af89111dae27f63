package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainhub/trainhub-server/internal/model"
)

func TestNewRepositories(t *testing.T) {
	db := &Connection{}

	assert.Equal(t, db, NewUserRepository(db).db)
	assert.Equal(t, db, NewPackageRepository(db).db)
	assert.Equal(t, db, NewSessionRepository(db).db)
}

func TestBuildPatch_AllFields(t *testing.T) {
	date := "2025-09-17"
	start := "18:00"
	end := "19:00"
	typ := "strength"
	status := "scheduled"
	duration := 60
	notes := "bring resistance bands"

	setClause, args := buildPatch(model.SessionPatch{
		Date:            &date,
		StartTime:       &start,
		EndTime:         &end,
		Type:            &typ,
		Status:          &status,
		DurationMinutes: &duration,
		Notes:           &notes,
	})

	assert.Equal(t,
		"session_date = $2, start_time = $3, end_time = $4, session_type = $5, status = $6, duration_minutes = $7, notes = $8",
		setClause)
	require.Len(t, args, 7)
	assert.Equal(t, "2025-09-17", args[0])
	assert.Equal(t, 60, args[5])
}

func TestBuildPatch_SingleField(t *testing.T) {
	notes := "moved to the small studio"

	setClause, args := buildPatch(model.SessionPatch{Notes: &notes})

	assert.Equal(t, "notes = $2", setClause)
	require.Len(t, args, 1)
	assert.Equal(t, notes, args[0])
}

func TestBuildPatch_SkipsNilFields(t *testing.T) {
	start := "09:30"
	duration := 45

	setClause, args := buildPatch(model.SessionPatch{
		StartTime:       &start,
		DurationMinutes: &duration,
	})

	assert.Equal(t, "start_time = $2, duration_minutes = $3", setClause)
	assert.Equal(t, []any{"09:30", 45}, args)
}

func TestSessionPatch_Empty(t *testing.T) {
	assert.True(t, model.SessionPatch{}.Empty())

	s := "x"
	assert.False(t, model.SessionPatch{Notes: &s}.Empty())
}
