package model_test

import (
	"testing"

	"github.com/kasuganosora/tacticsai/model"
	"github.com/kasuganosora/tacticsai/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	dl := &model.DecisionLog{
		SkirmishID: "s1",
		Round:      2,
		UnitID:     "knight",
		Archetype:  "melee",
		Status:     "success",
		Tokens:     3,
		Trace:      datatypes.JSON(`[{"node":"melee","status":"success"}]`),
	}
	require.NoError(t, db.Create(dl).Error)
	assert.Greater(t, dl.ID, int64(0))
	assert.False(t, dl.CreatedAt.IsZero())

	var found model.DecisionLog
	require.NoError(t, db.First(&found, dl.ID).Error)
	assert.Equal(t, "knight", found.UnitID)
	assert.JSONEq(t, `[{"node":"melee","status":"success"}]`, string(found.Trace))

	spend := &model.TokenSpend{SkirmishID: "s1", UnitID: "knight", Round: 2, Cost: 1, Balance: 2}
	require.NoError(t, db.Create(spend).Error)

	var count int64
	require.NoError(t, db.Model(&model.TokenSpend{}).Where("unit_id = ?", "knight").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
