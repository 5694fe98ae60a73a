package entities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency_Validate(t *testing.T) {
	for _, currency := range SupportedCurrencies() {
		assert.NoError(t, currency.Validate(), "currency %s should be accepted", currency)
	}

	tests := []struct {
		name     string
		currency Currency
	}{
		{"unsupported code", Currency("JPY")},
		{"empty", Currency("")},
		{"lowercase", Currency("eur")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.currency.Validate())
		})
	}
}

func TestAccountType_Validate(t *testing.T) {
	valid := []AccountType{AccountTypeMain, AccountTypeBonus, AccountTypePending, AccountTypeJackpot, AccountTypeSystem}
	for _, accountType := range valid {
		assert.NoError(t, accountType.Validate(), "account type %s should be accepted", accountType)
	}

	assert.Error(t, AccountType("SAVINGS").Validate())
	assert.Error(t, AccountType("").Validate())
	assert.Error(t, AccountType("main").Validate())
}

func TestAccountType_DebitPolicy(t *testing.T) {
	tests := []struct {
		accountType AccountType
		policy      DebitPolicy
	}{
		{AccountTypeMain, DebitBounded},
		{AccountTypeJackpot, DebitBounded},
		{AccountTypeSystem, DebitUnbounded},
		{AccountTypeBonus, DebitDenied},
		{AccountTypePending, DebitDenied},
	}
	for _, tt := range tests {
		t.Run(string(tt.accountType), func(t *testing.T) {
			assert.Equal(t, tt.policy, tt.accountType.DebitPolicy())
		})
	}
}

func TestAccount_Validate(t *testing.T) {
	account := &Account{
		ID:       uuid.New(),
		Currency: CurrencyEUR,
		Type:     AccountTypeMain,
	}
	require.NoError(t, account.Validate())

	missingID := &Account{Currency: CurrencyEUR, Type: AccountTypeMain}
	assert.Error(t, missingID.Validate())

	badCurrency := &Account{ID: uuid.New(), Currency: Currency("XXX"), Type: AccountTypeMain}
	assert.Error(t, badCurrency.Validate())

	badType := &Account{ID: uuid.New(), Currency: CurrencyEUR, Type: AccountType("CHECKING")}
	assert.Error(t, badType.Validate())
}
