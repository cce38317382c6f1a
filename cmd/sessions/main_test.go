package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/models"
	"github.com/jason-s-yu/gofish/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableDataOrdersBySets(t *testing.T) {
	set := make([]*models.Card, 4)
	for i := range set {
		set[i] = &models.Card{Rank: "ACE"}
	}
	waiting := &models.Session{ID: uuid.New(), Players: []*models.Player{{ID: "p1", Name: "Alice"}}}
	playing := &models.Session{
		ID:        uuid.New(),
		Started:   true,
		Turn:      "p2",
		Remaining: 20,
		Players: []*models.Player{
			{ID: "p1", Name: "Alice"},
			{ID: "p2", Name: "Bob", Sets: [][]*models.Card{set}},
		},
	}

	data := tableData(snapshot.Table{waiting.ID: waiting, playing.ID: playing})
	require.Len(t, data, 3)
	assert.Equal(t, "Session", data[0][0])
	assert.Equal(t, []string{playing.ID.String(), "IN_PROGRESS", "Alice, Bob", "Bob", "1", "20", "-"}, data[1])
	assert.Equal(t, []string{waiting.ID.String(), "WAITING", "Alice", "-", "0", "0", "-"}, data[2])
}
