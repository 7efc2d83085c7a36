package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restodocks/internal/model"
	"restodocks/internal/resolver"
)

func TestLoadOverrides(t *testing.T) {
	for _, name := range []string{"overrides.yaml", "overrides.json"} {
		t.Run(name, func(t *testing.T) {
			got, err := LoadOverrides(filepath.Join("testdata", name))
			require.NoError(t, err)
			require.Len(t, got, 2)

			sauce, ok := got["соус цезарь"]
			require.True(t, ok)
			require.NotNil(t, sauce.Calories)
			assert.Equal(t, 300.0, *sauce.Calories)
			assert.Nil(t, sauce.Protein)

			dough, ok := got["пф тесто"]
			require.True(t, ok)
			require.NotNil(t, dough.Price)
			assert.Equal(t, 120.0, *dough.Price)
		})
	}
}

func TestLoadOverridesMissingFile(t *testing.T) {
	got, err := LoadOverrides(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = LoadOverrides("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadNutritionFirstSeenWins(t *testing.T) {
	records, err := LoadNutrition(
		filepath.Join("testdata", "extended.json"),
		filepath.Join(t.TempDir(), "missing.json"),
		filepath.Join("testdata", "starter.json"),
	)
	require.NoError(t, err)

	var names []string
	for _, r := range records {
		names = append(names, r.Name)
	}
	// Water 没有卡路里；starter 中的 Сахар 已存在
	assert.Equal(t, []string{"Anchovies", "Анчоусы", "Salt", "Соль", "Sugar", "Сахар", "Мука пшеничная"}, names)

	sugar := records[5]
	assert.Equal(t, 398.0, sugar.Nutrition.Calories)
	assert.Equal(t, 99.8, sugar.Nutrition.Carbs)

	r := resolver.New(nil, records)
	res := r.Resolve("мука")
	require.True(t, res.Resolved)
	assert.Equal(t, model.RuleFuzzy, res.Rule)
	assert.Equal(t, 334.0, res.Record.Nutrition.Calories)
}
