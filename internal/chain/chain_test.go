package chain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressFromPrivateKey(t *testing.T) {
	testCases := []struct {
		name        string
		key         string
		expected    string
		expectError bool
	}{
		{
			name:     "Prefixed key",
			key:      "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
			expected: "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		},
		{
			name:     "Bare key with whitespace",
			key:      " 4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318\n",
			expected: "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		},
		{name: "Too short", key: "0x1234", expectError: true},
		{name: "Not hex", key: "zz0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := AddressFromPrivateKey(tc.key)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, addr)
		})
	}
}

func TestIsAddress(t *testing.T) {
	assert.True(t, IsAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"))
	assert.True(t, IsAddress("bb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c"))
	assert.False(t, IsAddress("0xbb4CdB9C"))
	assert.False(t, IsAddress(""))
}

func TestUnitConversion(t *testing.T) {
	t.Run("ToBaseUnits", func(t *testing.T) {
		got := ToBaseUnits(decimal.RequireFromString("0.01"), NativeDecimals)
		assert.Equal(t, "10000000000000000", got.String())

		// precision beyond the token's decimals is truncated
		got = ToBaseUnits(decimal.RequireFromString("1.2345678"), 6)
		assert.Equal(t, "1234567", got.String())
	})

	t.Run("FromBaseUnits", func(t *testing.T) {
		wei, _ := new(big.Int).SetString("2500000000000000000", 10)
		assert.True(t, FromBaseUnits(wei, NativeDecimals).Equal(decimal.RequireFromString("2.5")))
		assert.True(t, FromBaseUnits(nil, NativeDecimals).IsZero())
	})

	t.Run("RoundTrip", func(t *testing.T) {
		amount := decimal.RequireFromString("123.456789012345678")
		assert.True(t, FromBaseUnits(ToBaseUnits(amount, 18), 18).Equal(amount))
	})
}

func TestToAddresses(t *testing.T) {
	addrs, err := toAddresses([]string{"0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82"})
	require.NoError(t, err)
	assert.Len(t, addrs, 2)
	assert.Equal(t, "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82", addrs[1].Hex())

	_, err = toAddresses([]string{"0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", "cake"})
	assert.Error(t, err)
}
