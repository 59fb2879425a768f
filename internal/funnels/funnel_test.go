package funnels_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelscope/internal/funnels"
	"funnelscope/internal/testsupport"
)

func TestGetByID(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	created := testsupport.CreateTestFunnel(t, db, "Checkout Funnel")

	found, err := funnels.GetByID(db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Checkout Funnel", found.Name)
}

func TestGetByIDNotFound(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	_, err := funnels.GetByID(db, 424242)
	require.Error(t, err)

	var notFound *funnels.FunnelNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, uint(424242), notFound.FunnelID)
}

func TestListForOrganization(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CreateTestFunnel(t, db, "First Funnel")
	testsupport.CreateTestFunnel(t, db, "Second Funnel")

	list, err := funnels.ListForOrganization(db, 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	empty, err := funnels.ListForOrganization(db, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
