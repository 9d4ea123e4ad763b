package service

import (
	"context"
	"testing"

	"github.com/RubachokBoss/mentor-service/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueTypes(report *models.ConsistencyReport) []string {
	out := make([]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		out = append(out, issue.Type)
	}
	return out
}

func TestConsistencyReport_CleanState(t *testing.T) {
	env := newTestEnv(t, fastOptions())
	env.addStudent(t, "s1")
	env.addMentor(t, "m1")
	ctx := context.Background()

	_, err := env.svc.AssignStudentToMentor(ctx, "s1", "m1")
	require.NoError(t, err)

	report, err := NewReportService(env.store.Students, env.store.Mentors, zerolog.Nop()).GetConsistencyReport(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.NotNil(t, report.Issues)
	assert.Empty(t, report.Issues)
	assert.Equal(t, 1, report.Students)
	assert.Equal(t, 1, report.Mentors)
}

func TestConsistencyReport_FindsPartialReassignment(t *testing.T) {
	env := newTestEnv(t, fastOptions())
	env.addStudent(t, "s1")
	env.addMentor(t, "m1")
	env.addMentor(t, "m2")
	ctx := context.Background()

	_, err := env.svc.AssignStudentToMentor(ctx, "s1", "m1")
	require.NoError(t, err)

	env.mentors.failRemoves(100)
	_, err = env.svc.AssignStudentToMentor(ctx, "s1", "m2")
	require.Error(t, err)

	report, err := NewReportService(env.store.Students, env.store.Mentors, zerolog.Nop()).GetConsistencyReport(ctx)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.ElementsMatch(t, []string{models.IssueRosterMismatch, models.IssueListedTwice}, issueTypes(report))
}

func TestConsistencyReport_FindsOrphansAfterDeletes(t *testing.T) {
	env := newTestEnv(t, fastOptions())
	env.addStudent(t, "s1")
	env.addStudent(t, "s2")
	env.addMentor(t, "m1")
	env.addMentor(t, "m2")
	ctx := context.Background()

	_, err := env.svc.AssignStudentToMentor(ctx, "s1", "m1")
	require.NoError(t, err)
	_, err = env.svc.AssignStudentToMentor(ctx, "s2", "m2")
	require.NoError(t, err)

	_, err = env.svc.RemoveStudent(ctx, "s1")
	require.NoError(t, err)
	_, err = env.svc.RemoveMentor(ctx, "m2")
	require.NoError(t, err)

	report, err := NewReportService(env.store.Students, env.store.Mentors, zerolog.Nop()).GetConsistencyReport(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{models.IssueDanglingRosterEntry, models.IssueUnknownMentor},
		issueTypes(report),
	)
}
