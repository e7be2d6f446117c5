package services

import (
	"context"
	"testing"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/kendall-kelly/jewelry-erp-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterDataService_Karigars(t *testing.T) {
	svc := NewMasterDataService(testutil.NewTestDB(t))
	ctx := context.Background()

	k := &models.Karigar{Code: " K-01 ", Name: "Ramesh", Active: true}
	require.NoError(t, svc.CreateKarigar(ctx, k))
	assert.Equal(t, "K-01", k.Code)
	require.NoError(t, svc.CreateKarigar(ctx, &models.Karigar{Code: "K-02", Name: "Anil", Active: false}))

	err := svc.CreateKarigar(ctx, &models.Karigar{Code: "K-01", Name: "Duplicate", Active: true})
	assert.Equal(t, "VALIDATION_ERROR", apperrors.CodeOf(err))

	err = svc.CreateKarigar(ctx, &models.Karigar{Code: "K-03"})
	assert.Equal(t, "VALIDATION_ERROR", apperrors.CodeOf(err))

	all, err := svc.ListKarigars(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.ListKarigars(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Ramesh", active[0].Name)

	got, err := svc.GetKarigar(ctx, k.ID)
	require.NoError(t, err)
	assert.Equal(t, "K-01", got.Code)

	_, err = svc.GetKarigar(ctx, 404)
	assert.Equal(t, "KARIGAR_NOT_FOUND", apperrors.CodeOf(err))
}

func TestMasterDataService_ProcessesAndDesigns(t *testing.T) {
	svc := NewMasterDataService(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, svc.CreateProcess(ctx, &models.Process{Name: "Polishing", Active: true}))
	require.NoError(t, svc.CreateProcess(ctx, &models.Process{Name: "Casting", Active: true}))
	assert.Equal(t, "VALIDATION_ERROR", apperrors.CodeOf(svc.CreateProcess(ctx, &models.Process{Name: "  "})))

	processes, err := svc.ListProcesses(ctx, true)
	require.NoError(t, err)
	require.Len(t, processes, 2)
	assert.Equal(t, "Casting", processes[0].Name)

	require.NoError(t, svc.CreateDesign(ctx, &models.Design{Code: "RING-100", Name: "Classic solitaire", Active: true}))
	assert.Equal(t, "VALIDATION_ERROR", apperrors.CodeOf(svc.CreateDesign(ctx, &models.Design{Code: "RING-100", Name: "Again", Active: true})))

	designs, err := svc.ListDesigns(ctx, false)
	require.NoError(t, err)
	assert.Len(t, designs, 1)
}
