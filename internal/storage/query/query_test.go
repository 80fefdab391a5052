package query

import (
	"errors"
	"testing"
	"time"

	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(key, ref string, at time.Time) *models.Record {
	return &models.Record{Collection: "sale", Key: key, Ref: ref, DateTime: at}
}

func TestApply_OrderAndLimit(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []*models.Record{
		rec("a", "", base),
		rec("b", "", base.Add(2*time.Hour)),
		rec("c", "", base.Add(time.Hour)),
	}

	got := Apply(records, interfaces.QueryOptions{Limit: 2})
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Key)
	assert.Equal(t, "c", got[1].Key)

	records = []*models.Record{rec("a", "", base), rec("b", "", base.Add(2*time.Hour)), rec("c", "", base.Add(time.Hour))}
	got = Apply(records, interfaces.QueryOptions{OrderBy: "datetime_asc"})
	assert.Equal(t, []string{"a", "c", "b"}, []string{got[0].Key, got[1].Key, got[2].Key})
}

func TestApply_RefAndRange(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	since := base.Add(24 * time.Hour)
	until := base.Add(48 * time.Hour)
	records := []*models.Record{
		rec("a", "customer:1", base),
		rec("b", "customer:1", since),
		rec("c", "customer:2", since.Add(time.Hour)),
		rec("d", "customer:1", until),
	}

	got := Apply(records, interfaces.QueryOptions{Ref: "customer:1", Since: &since, Until: &until})
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Key)
}

func TestCheckGuard(t *testing.T) {
	put := models.BatchOp{Kind: models.BatchPut, Guard: true, Record: &models.Record{Collection: "product", Key: "p1", Version: 3}}
	assert.NoError(t, CheckGuard(put, 2))
	assert.True(t, errors.Is(CheckGuard(put, 3), models.ErrConflict))

	create := models.BatchOp{Kind: models.BatchPut, Guard: true, Record: &models.Record{Collection: "product", Key: "p2", Version: 1}}
	assert.NoError(t, CheckGuard(create, 0))
	assert.Error(t, CheckGuard(create, 1))

	del := models.BatchOp{Kind: models.BatchDelete, Guard: true, ExpectVersion: 4, Record: &models.Record{Collection: "sale", Key: "s1"}}
	assert.NoError(t, CheckGuard(del, 4))
	assert.Error(t, CheckGuard(del, 0))

	unguarded := models.BatchOp{Kind: models.BatchPut, Record: &models.Record{Collection: "x", Key: "y", Version: 9}}
	assert.NoError(t, CheckGuard(unguarded, 0))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]models.BatchOp{{Kind: models.BatchPut, Record: &models.Record{Collection: "a", Key: "b"}}}))
	assert.True(t, errors.Is(Validate([]models.BatchOp{{Kind: models.BatchPut}}), models.ErrInvalid))
	assert.True(t, errors.Is(Validate([]models.BatchOp{{Kind: "upsert", Record: &models.Record{Collection: "a", Key: "b"}}}), models.ErrInvalid))
}
