package wallet

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransferRequestValidate(t *testing.T) {
	ok := TransferRequest{FromUserID: 1, ToUserID: 2, Amount: decimal.NewFromInt(5)}
	assert.NoError(t, ok.Validate())

	zero := ok
	zero.Amount = decimal.Zero
	assert.ErrorIs(t, zero.Validate(), ErrInvalidAmount)

	negative := ok
	negative.Amount = decimal.NewFromInt(-1)
	assert.ErrorIs(t, negative.Validate(), ErrInvalidAmount)

	self := ok
	self.ToUserID = 1
	assert.ErrorIs(t, self.Validate(), ErrSelfTransfer)
}

func TestCurrencyMatches(t *testing.T) {
	assert.True(t, currencyMatches("ELOITY", ""))
	assert.True(t, currencyMatches("ELOITY", "eloity"))
	assert.False(t, currencyMatches("ELOITY", "USD"))
}
