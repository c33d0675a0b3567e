package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lookup(t *testing.T) {
	r := DefaultRegistry()

	p, err := r.Lookup(Regular)
	require.NoError(t, err)
	assert.Equal(t, Regular, p.Kind)

	p, err = r.Lookup(Premium)
	require.NoError(t, err)
	assert.Equal(t, Premium, p.Kind)

	_, err = r.Lookup("gold")
	require.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Equal(t, []Kind{Premium, Regular}, r.Kinds())
}

func TestRegistry_Extensible(t *testing.T) {
	vip := FlatRate("vip", d("0.80"))
	r := NewRegistry(vip)

	p, err := r.Lookup("vip")
	require.NoError(t, err)

	items := []LineItem{{UnitPrice: d("10.00"), Quantity: 2}, {UnitPrice: d("5.00"), Quantity: 1}}
	assert.True(t, d("20.00").Equal(CalculateTotal(items, p)))
	assert.Equal(t, []Kind{Premium, Regular, "vip"}, r.Kinds())
}

func TestRegistry_OverrideDefault(t *testing.T) {
	r := NewRegistry(FlatRate(Regular, decimal.NewFromInt(1)))

	p, err := r.Lookup(Regular)
	require.NoError(t, err)
	assert.True(t, d("25").Equal(p.Apply(d("25"))))
}

func TestNew_CustomFunction(t *testing.T) {
	// Flat 5 off, never below zero.
	fiveOff := New("five-off", func(subtotal decimal.Decimal) decimal.Decimal {
		return decimal.Max(subtotal.Sub(decimal.NewFromInt(5)), decimal.Zero)
	})

	assert.True(t, d("20.00").Equal(CalculateTotal([]LineItem{{UnitPrice: d("25.00"), Quantity: 1}}, fiveOff)))
	assert.True(t, d("0").Equal(CalculateTotal([]LineItem{{UnitPrice: d("3.00"), Quantity: 1}}, fiveOff)))
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, Premium, ParseKind("  PREMIUM "))
	assert.Equal(t, Regular, ParseKind("Regular"))
	assert.Equal(t, Kind(""), ParseKind("   "))
}

func TestParseFlatRate(t *testing.T) {
	tests := []struct {
		def        string
		wantKind   Kind
		wantFactor string
		wantErr    string
	}{
		{def: "vip=0.80", wantKind: "vip", wantFactor: "0.80"},
		{def: " Staff = 0.5 ", wantKind: "staff", wantFactor: "0.5"},
		{def: "vip", wantErr: "expected kind=factor"},
		{def: "=0.5", wantErr: "empty kind"},
		{def: "vip=abc", wantErr: "parse factor"},
		{def: "vip=-1", wantErr: "negative factor"},
	}

	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			p, err := ParseFlatRate(tt.def)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, p.Kind)
			assert.True(t, d("100").Mul(d(tt.wantFactor)).Equal(p.Apply(d("100"))))
		})
	}
}
