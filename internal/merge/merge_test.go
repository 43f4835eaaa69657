package merge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classync-go-api/internal/models"
)

func classroomID(c models.Classroom) string { return c.ID }

func TestClassifySplitsByPresenceAndContent(t *testing.T) {
	incoming := []models.Classroom{
		{ID: "c-1", Name: "Math"},
		{ID: "c-2", Name: "Science (renamed)"},
		{ID: "c-3", Name: "History"},
	}
	stored := map[string]models.Classroom{
		"c-2": {ID: "c-2", Name: "Science"},
		"c-3": {ID: "c-3", Name: "History"},
	}

	set := Classify(incoming, stored, classroomID,
		func(a, b models.Classroom) bool { return a.ContentEquals(b) })

	require.Len(t, set.ToCreate, 1)
	require.Equal(t, "c-1", set.ToCreate[0].ID)

	require.Len(t, set.ToUpdate, 1)
	require.Equal(t, "c-2", set.ToUpdate[0].ID)

	require.Len(t, set.Unchanged, 1)
	require.Equal(t, "c-3", set.Unchanged[0].ID)
}

func TestClassifyEmptyInputs(t *testing.T) {
	set := Classify(nil, map[string]models.Classroom{"c-1": {ID: "c-1"}}, classroomID,
		func(a, b models.Classroom) bool { return true })
	require.Empty(t, set.ToCreate)
	require.Empty(t, set.ToUpdate)
	require.Empty(t, set.Unchanged)
}

func TestArchiveSetReturnsStoredIDsMissingFromSnapshot(t *testing.T) {
	incoming := []models.Enrollment{
		{ID: "e-1"},
		{ID: "e-2"},
	}
	existingIDs := []string{"e-1", "e-2", "e-3", "e-4"}

	missing := ArchiveSet(incoming, existingIDs, func(e models.Enrollment) string { return e.ID })
	require.ElementsMatch(t, []string{"e-3", "e-4"}, missing)
}

func TestArchiveSetEmptyWhenAllPresent(t *testing.T) {
	incoming := []models.Enrollment{{ID: "e-1"}}
	require.Empty(t, ArchiveSet(incoming, []string{"e-1"}, func(e models.Enrollment) string { return e.ID }))
}
