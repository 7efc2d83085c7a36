package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restodocks/internal/model"
)

func price(v float64) *float64 { return &v }

func testRecords() []model.LedgerRecord {
	return []model.LedgerRecord{
		{ID: 1, Name: "Соль", Price: price(10)},
		{ID: 2, Name: "Мука  пшеничная", Price: price(40)},
		{ID: 3, Name: "Говядина вырезка", Price: price(900)},
		{ID: 4, Name: "Анчоусы", Price: price(1200)},
		{ID: 5, Name: "Лук", Price: price(30)},
		{ID: 6, Name: "Лук красный", Price: price(60)},
		{ID: 7, Name: "соль", Price: price(999)},
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Соль  ":              "соль",
		"Мука\t  Пшеничная":     "мука пшеничная",
		"":                      "",
		"   ":                   "",
		"Ёжик":                  "ёжик",
		"\u0418\u0306огурт":     "йогурт",
		"Sugar\nBrown":          "sugar brown",
		"ПФ   Соус  Бешамель  ": "пф соус бешамель",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestResolvePrecedence(t *testing.T) {
	overrides := model.OverrideCatalog{
		"  Соус Цезарь ": {Calories: price(300)},
	}
	r := New(overrides, testRecords())

	tests := []struct {
		name   string
		input  string
		rule   model.ResolutionRule
		wantID int
	}{
		{name: "override", input: "соус цезарь", rule: model.RuleOverride, wantID: 0},
		{name: "exact ignores case and spacing", input: " МУКА пшеничная ", rule: model.RuleExact, wantID: 2},
		{name: "semi finished prefix", input: "ПФ Соль", rule: model.RuleSemiFinished, wantID: 1},
		{name: "first token", input: "Лук репчатый", rule: model.RuleFirstToken, wantID: 5},
		{name: "fuzzy contains first token", input: "анчоус", rule: model.RuleFuzzy, wantID: 4},
		{name: "fuzzy substring of ledger name", input: "говядин", rule: model.RuleFuzzy, wantID: 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := r.Resolve(tc.input)
			require.True(t, res.Resolved)
			assert.Equal(t, tc.rule, res.Rule)
			assert.Equal(t, tc.wantID, res.Record.ID)
		})
	}
}

func TestResolveOverrideCarriesValues(t *testing.T) {
	r := New(model.OverrideCatalog{"соус цезарь": {Calories: price(300), Fat: price(30)}}, nil)

	res := r.Resolve("Соус   Цезарь")
	require.True(t, res.Resolved)
	require.NotNil(t, res.Record.Nutrition)
	assert.Equal(t, 300.0, res.Record.Nutrition.Calories)
	assert.Equal(t, 30.0, res.Record.Nutrition.Fat)
	assert.Nil(t, res.Record.Price)

	require.NotNil(t, res.Override)
	v, ok := res.Override.Value(model.FieldCalories)
	assert.True(t, ok)
	assert.Equal(t, 300.0, v)
	_, ok = res.Override.Value(model.FieldProtein)
	assert.False(t, ok, "未填写的字段不应视为手工值")
}

func TestResolveExactNeverFallsThroughToFuzzy(t *testing.T) {
	// «Лук» 同时是 «Лук красный» 的子串；精确规则必须先命中
	r := New(nil, testRecords())
	for _, rec := range testRecords() {
		res := r.Resolve(rec.Name)
		require.True(t, res.Resolved, rec.Name)
		assert.Equal(t, model.RuleExact, res.Rule, rec.Name)
	}
}

func TestResolveDuplicateNamesFirstInLedgerOrderWins(t *testing.T) {
	r := New(nil, testRecords())
	res := r.Resolve("СОЛЬ")
	assert.Equal(t, 1, res.Record.ID)
}

func TestResolveUnresolved(t *testing.T) {
	r := New(nil, testRecords())
	for _, in := range []string{"", "   ", "шафран"} {
		res := r.Resolve(in)
		assert.False(t, res.Resolved, in)
		assert.Equal(t, model.RuleNone, res.Rule, in)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	r := New(nil, testRecords())
	first := r.Resolve("лук")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, r.Resolve("лук"))
	}
}

func TestResolveFuzzyTieBreakIsLedgerOrder(t *testing.T) {
	records := []model.LedgerRecord{
		{ID: 10, Name: "сыр моцарелла"},
		{ID: 11, Name: "сыр пармезан"},
	}
	res := New(nil, records).Resolve("сыр")
	// «сыр» 不是精确名，首词也不是；模糊按顺序取第一个
	require.True(t, res.Resolved)
	assert.Equal(t, model.RuleFuzzy, res.Rule)
	assert.Equal(t, 10, res.Record.ID)

	reversed := New(nil, []model.LedgerRecord{records[1], records[0]}).Resolve("сыр")
	assert.Equal(t, 11, reversed.Record.ID)
}

func TestWithSemiFinishedPrefixDisabled(t *testing.T) {
	records := []model.LedgerRecord{{ID: 1, Name: "тесто"}}

	res := New(nil, records).Resolve("пф тесто")
	require.True(t, res.Resolved)
	assert.Equal(t, model.RuleSemiFinished, res.Rule)

	res = New(nil, records, WithSemiFinishedPrefix("")).Resolve("пф тесто")
	assert.False(t, res.Resolved)
}

func TestWithObserver(t *testing.T) {
	var seen []model.ResolutionRule
	r := New(nil, testRecords(), WithObserver(func(rule model.ResolutionRule) {
		seen = append(seen, rule)
	}))
	r.Resolve("соль")
	r.Resolve("шафран")
	assert.Equal(t, []model.ResolutionRule{model.RuleExact, model.RuleNone}, seen)
}
