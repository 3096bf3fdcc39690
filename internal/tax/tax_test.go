package tax_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/tax-ledger/internal/model"
	"github.com/rezonia/tax-ledger/internal/tax"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func entry(scheme, percent, taxAmount, taxable string) model.RawTaxEntry {
	return model.RawTaxEntry{
		SchemeName:    scheme,
		Percent:       d(percent),
		TaxAmount:     d(taxAmount),
		TaxableAmount: d(taxable),
		Origin:        model.OriginLineItem,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		percent string
		tax     string
		taxable string
		want    tax.Status
	}{
		{"charged", "19", "190", "1000", tax.StatusGravado},
		{"zero rate with base", "0.00", "0.00", "1000.00", tax.StatusExento},
		{"rate without tax", "19", "0", "1000", tax.StatusExento},
		{"no base beats rate", "12.00", "0", "0", tax.StatusExcluido},
		{"no base beats charged tax", "12", "50", "0", tax.StatusExcluido},
		{"all zero", "0", "0", "0", tax.StatusExcluido},
		{"tax without rate", "0", "10", "100", tax.StatusExento},
		{"negative base", "19", "190", "-1000", tax.StatusIndefinido},
		{"negative tax", "19", "-190", "1000", tax.StatusIndefinido},
		{"negative percent", "-5", "0", "0", tax.StatusIndefinido},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tax.Classify(d(tt.percent), d(tt.tax), d(tt.taxable))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Totality(t *testing.T) {
	values := []string{"0", "0.00", "0.01", "1", "12.00", "1000"}
	valid := map[tax.Status]bool{}
	for _, s := range tax.Statuses {
		valid[s] = true
	}

	for _, p := range values {
		for _, a := range values {
			for _, b := range values {
				got := tax.Classify(d(p), d(a), d(b))
				assert.True(t, valid[got], "classify(%s,%s,%s) = %q", p, a, b, got)
			}
		}
	}
}

func TestClassifyRule_ReportsDecidingRule(t *testing.T) {
	status, rule := tax.ClassifyRule(d("12.00"), d("0"), d("0"))
	assert.Equal(t, tax.StatusExcluido, status)
	assert.Equal(t, "no taxable base", rule)

	status, rule = tax.ClassifyRule(d("-1"), d("0"), d("0"))
	assert.Equal(t, tax.StatusIndefinido, status)
	assert.Equal(t, "negative input", rule)
}

func TestRules_Order(t *testing.T) {
	require.Len(t, tax.Rules, 5)
	assert.Equal(t, tax.StatusIndefinido, tax.Rules[0].Status)
	assert.Equal(t, tax.StatusExcluido, tax.Rules[1].Status)
	assert.Equal(t, tax.StatusGravado, tax.Rules[2].Status)
}

func TestConsolidate_ScenarioA(t *testing.T) {
	entries := []model.RawTaxEntry{
		entry("IVA", "12.00", "120.00", "1000.00"),
		entry("IVA", "12.00", "60.00", "500.00"),
	}

	groups := tax.Consolidate(entries)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, "IVA", g.SchemeName)
	assert.True(t, g.TotalTaxAmount.Equal(d("180.00")))
	assert.True(t, g.TotalTaxableAmount.Equal(d("1500.00")))
	assert.Equal(t, 2, g.MemberCount)

	classified := tax.ClassifyGroups(groups)
	require.Len(t, classified, 1)
	assert.Equal(t, tax.StatusGravado, classified[0].Status)
	assert.Equal(t, "IVA - Impuesto (12.00%) - GRAVADO - Consolidado (2 líneas)", classified[0].Description)
}

func TestConsolidate_ScenarioB(t *testing.T) {
	classified := tax.ClassifyGroups(tax.Consolidate([]model.RawTaxEntry{
		entry("IVA", "0.00", "0.00", "1000.00"),
	}))
	require.Len(t, classified, 1)
	assert.Equal(t, tax.StatusExento, classified[0].Status)
	assert.Equal(t, "IVA - Impuesto (0.00%) - EXENTO", classified[0].Description)
}

func TestConsolidate_ScenarioC(t *testing.T) {
	classified := tax.ClassifyGroups(tax.Consolidate([]model.RawTaxEntry{
		entry("IVA", "12.00", "0.00", "0.00"),
	}))
	require.Len(t, classified, 1)
	assert.Equal(t, tax.StatusExcluido, classified[0].Status)
}

func TestConsolidate_NumericPercentKey(t *testing.T) {
	groups := tax.Consolidate([]model.RawTaxEntry{
		entry("IVA", "12.00", "12", "100"),
		entry("IVA", "12.0", "12", "100"),
		entry("IVA", "12", "12", "100"),
	})
	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].MemberCount)
	assert.True(t, groups[0].TotalTaxAmount.Equal(d("36")))
}

func TestConsolidate_Ordering(t *testing.T) {
	groups := tax.Consolidate([]model.RawTaxEntry{
		entry("IVA", "19", "19", "100"),
		entry("INC", "8", "8", "100"),
		entry("IVA", "5", "5", "100"),
		entry("ICA", "0.966", "1", "100"),
		entry("IVA", "19.00", "19", "100"),
		entry("IVA", "0", "0", "100"),
	})

	got := make([]string, 0, len(groups))
	for _, g := range groups {
		got = append(got, g.SchemeName+"@"+g.Percent.String())
	}
	assert.Equal(t, []string{"ICA@0.966", "INC@8", "IVA@19", "IVA@5", "IVA@0"}, got)
}

func TestConsolidate_PartitionInvariant(t *testing.T) {
	entries := []model.RawTaxEntry{
		entry("IVA", "19", "190", "1000"),
		entry("IVA", "19.00", "0", "0"),
		entry("INC", "8", "8", "100"),
		entry("", "0", "0", "0"),
		entry("IVA", "5", "5", "100"),
		entry("INC", "8.0", "0", "0"),
	}

	groups := tax.Consolidate(entries)

	total := 0
	for _, g := range groups {
		require.GreaterOrEqual(t, g.MemberCount, 1)
		total += g.MemberCount
	}
	assert.Equal(t, len(entries), total)

	for _, e := range entries {
		matches := 0
		for _, g := range groups {
			if g.SchemeName == e.SchemeName && g.Percent.Equal(e.Percent) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "entry %s@%s", e.SchemeName, e.Percent)
	}
}

func TestConsolidate_SingleMemberFixedPoint(t *testing.T) {
	first := tax.Consolidate([]model.RawTaxEntry{entry("IVA", "19", "190", "1000")})
	require.Len(t, first, 1)

	g := first[0]
	again := tax.Consolidate([]model.RawTaxEntry{{
		SchemeName:    g.SchemeName,
		Percent:       g.Percent,
		TaxAmount:     g.TotalTaxAmount,
		TaxableAmount: g.TotalTaxableAmount,
	}})
	require.Len(t, again, 1)
	assert.Equal(t, g.SchemeName, again[0].SchemeName)
	assert.True(t, g.TotalTaxAmount.Equal(again[0].TotalTaxAmount))
	assert.True(t, g.TotalTaxableAmount.Equal(again[0].TotalTaxableAmount))
	assert.Equal(t, 1, again[0].MemberCount)
}

func TestConsolidate_Empty(t *testing.T) {
	assert.Empty(t, tax.Consolidate(nil))
	assert.Empty(t, tax.ClassifyGroups(nil))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name  string
		group tax.Group
		state tax.Status
		want  string
	}{
		{
			name:  "single member",
			group: tax.Group{SchemeName: "INC", Percent: d("8"), MemberCount: 1},
			state: tax.StatusGravado,
			want:  "INC - Impuesto (8.00%) - GRAVADO",
		},
		{
			name:  "rounds to two decimals",
			group: tax.Group{SchemeName: "ICA", Percent: d("0.966"), MemberCount: 3},
			state: tax.StatusGravado,
			want:  "ICA - Impuesto (0.97%) - GRAVADO - Consolidado (3 líneas)",
		},
		{
			name:  "no scheme",
			group: tax.Group{Percent: d("0"), MemberCount: 2},
			state: tax.StatusExcluido,
			want:  "Sin Impuestos - EXCLUIDO",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tax.Describe(tt.group, tt.state))
		})
	}
}
