package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amount(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func createTestZone(t *testing.T, name string, areas ...string) *ShippingZone {
	t.Helper()
	z, err := NewShippingZone(name, areas, amount("60.00"), 3)
	require.NoError(t, err)
	return z
}

func TestNewShippingZone(t *testing.T) {
	t.Run("creates zone with trimmed name", func(t *testing.T) {
		z, err := NewShippingZone("  Dhaka Metro ", []string{"Dhaka"}, amount("60.00"), 2)

		require.NoError(t, err)
		assert.Equal(t, "Dhaka Metro", z.Name)
		assert.True(t, z.IsActive)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewShippingZone("  ", nil, amount("60.00"), 2)
		require.Error(t, err)
	})

	t.Run("rejects negative cost", func(t *testing.T) {
		_, err := NewShippingZone("Zone", nil, amount("-1.00"), 2)
		require.Error(t, err)
	})
}

func TestShippingZone_MatchesArea(t *testing.T) {
	z := createTestZone(t, "Dhaka Metro", "Dhaka", "Narayanganj ")

	assert.True(t, z.MatchesArea("Dhaka"))
	assert.True(t, z.MatchesArea("dhaka"))
	assert.True(t, z.MatchesArea("  DHAKA  "))
	assert.True(t, z.MatchesArea("narayanganj"))
	assert.False(t, z.MatchesArea("Chittagong"))
	assert.False(t, z.MatchesArea(""))
}

func TestShippingZone_CostFor(t *testing.T) {
	t.Run("charges the zone cost below the threshold", func(t *testing.T) {
		z := createTestZone(t, "Dhaka")
		threshold := amount("1000.00")
		z.FreeShippingThreshold = &threshold

		cost, free := z.CostFor(amount("999.99"))

		assert.False(t, free)
		assert.True(t, amount("60.00").Equal(cost))
	})

	t.Run("free at or above the threshold", func(t *testing.T) {
		z := createTestZone(t, "Dhaka")
		threshold := amount("1000.00")
		z.FreeShippingThreshold = &threshold

		cost, free := z.CostFor(amount("1000.00"))

		assert.True(t, free)
		assert.True(t, cost.IsZero())
	})

	t.Run("no threshold means always charged", func(t *testing.T) {
		z := createTestZone(t, "Dhaka")

		cost, free := z.CostFor(amount("100000.00"))

		assert.False(t, free)
		assert.True(t, amount("60.00").Equal(cost))
	})
}

func TestResolveZone(t *testing.T) {
	dhaka := createTestZone(t, "Dhaka Metro", "Dhaka")
	rest := createTestZone(t, "Rest of Country", "Chittagong", "Sylhet")

	t.Run("exact match wins", func(t *testing.T) {
		res := ResolveZone([]ShippingZone{*dhaka, *rest}, "sylhet")

		require.NotNil(t, res)
		assert.True(t, res.ExactMatch)
		assert.Equal(t, "Rest of Country", res.Zone.Name)
	})

	t.Run("falls back to the first zone", func(t *testing.T) {
		res := ResolveZone([]ShippingZone{*dhaka, *rest}, "Khulna")

		require.NotNil(t, res)
		assert.False(t, res.ExactMatch)
		assert.Equal(t, "Dhaka Metro", res.Zone.Name)
	})

	t.Run("nil when no zones configured", func(t *testing.T) {
		assert.Nil(t, ResolveZone(nil, "Dhaka"))
	})
}

func TestNewTaxRule(t *testing.T) {
	t.Run("creates rule", func(t *testing.T) {
		r, err := NewTaxRule("VAT", TaxRuleTypePercentage, amount("15"), 0)

		require.NoError(t, err)
		assert.Equal(t, "VAT", r.Name)
		assert.True(t, r.IsActive)
	})

	t.Run("rejects bad type", func(t *testing.T) {
		_, err := NewTaxRule("VAT", TaxRuleType("weird"), amount("15"), 0)
		require.Error(t, err)
	})

	t.Run("rejects percentage over 100", func(t *testing.T) {
		_, err := NewTaxRule("VAT", TaxRuleTypePercentage, amount("101"), 0)
		require.Error(t, err)
	})
}

func TestTaxRule_Calculate(t *testing.T) {
	t.Run("percentage rounds to 2dp", func(t *testing.T) {
		r, err := NewTaxRule("VAT", TaxRuleTypePercentage, amount("15"), 0)
		require.NoError(t, err)

		got := r.Calculate(amount("33.33"))

		assert.True(t, amount("5.00").Equal(got), "got %s", got)
	})

	t.Run("fixed ignores the base", func(t *testing.T) {
		r, err := NewTaxRule("Handling", TaxRuleTypeFixed, amount("20.00"), 0)
		require.NoError(t, err)

		assert.True(t, amount("20.00").Equal(r.Calculate(amount("5.00"))))
		assert.True(t, amount("20.00").Equal(r.Calculate(amount("9999.00"))))
	})
}

func TestCalculateTaxes(t *testing.T) {
	vat, err := NewTaxRule("VAT", TaxRuleTypePercentage, amount("15"), 1)
	require.NoError(t, err)
	levy, err := NewTaxRule("City Levy", TaxRuleTypeFixed, amount("10.00"), 2)
	require.NoError(t, err)

	t.Run("sums active rules ascending by priority", func(t *testing.T) {
		total, lines := CalculateTaxes([]TaxRule{*levy, *vat}, amount("200.00"))

		assert.True(t, amount("40.00").Equal(total), "got %s", total)
		require.Len(t, lines, 2)
		assert.Equal(t, "VAT", lines[0].RuleName)
		assert.Equal(t, "City Levy", lines[1].RuleName)
		assert.True(t, amount("30.00").Equal(lines[0].Amount))
		assert.True(t, amount("10.00").Equal(lines[1].Amount))
	})

	t.Run("skips inactive rules", func(t *testing.T) {
		off := *levy
		off.Deactivate()

		total, lines := CalculateTaxes([]TaxRule{*vat, off}, amount("100.00"))

		assert.True(t, amount("15.00").Equal(total))
		assert.Len(t, lines, 1)
	})

	t.Run("no rules means zero tax", func(t *testing.T) {
		total, lines := CalculateTaxes(nil, amount("100.00"))

		assert.True(t, total.IsZero())
		assert.Empty(t, lines)
	})
}

func TestStringList_RoundTrip(t *testing.T) {
	v, err := StringList{"Dhaka", "Sylhet"}.Value()
	require.NoError(t, err)

	var scanned StringList
	require.NoError(t, scanned.Scan(v))

	assert.Equal(t, StringList{"Dhaka", "Sylhet"}, scanned)
}
