package bitcoin

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const SatoshisPerBTC = 100_000_000

var satsPerBTC = decimal.NewFromInt(SatoshisPerBTC)

var ErrSatoshiOverflow = errors.New("amount is too large to express in satoshis")

var groupPrinter = message.NewPrinter(language.English)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ConvertToSatoshis converts an amount into satoshis at a price quoted in
// the same currency, rounding to the nearest satoshi. Non-finite input or a
// non-positive price yields 0; a result beyond int64 fails with
// ErrSatoshiOverflow.
func ConvertToSatoshis(amount, price float64) (int64, error) {
	if price <= 0 || !isFinite(price) || !isFinite(amount) {
		return 0, nil
	}
	sats := decimal.NewFromFloat(amount).
		Div(decimal.NewFromFloat(price)).
		Mul(satsPerBTC).
		Round(0)
	if !sats.BigInt().IsInt64() {
		return 0, ErrSatoshiOverflow
	}
	return sats.IntPart(), nil
}

// AmountToSatoshis is ConvertToSatoshis for callers that bound the amount
// themselves. Out of range results come back as 0.
func AmountToSatoshis(amount, price float64) int64 {
	sats, err := ConvertToSatoshis(amount, price)
	if err != nil {
		return 0
	}
	return sats
}

// SatoshisToAmount converts satoshis back into an amount at the given price.
func SatoshisToAmount(satoshis int64, price float64) float64 {
	if !isFinite(price) {
		return 0
	}
	amount, _ := decimal.NewFromInt(satoshis).
		Div(satsPerBTC).
		Mul(decimal.NewFromFloat(price)).
		Float64()
	return amount
}

func FormatSatoshis(satoshis int64) string {
	switch {
	case satoshis >= SatoshisPerBTC:
		return fmt.Sprintf("₿%.8f", float64(satoshis)/SatoshisPerBTC)
	case satoshis >= 1_000_000:
		return fmt.Sprintf("%.2fM sats", float64(satoshis)/1_000_000)
	case satoshis >= 1_000:
		return fmt.Sprintf("%.1fK sats", float64(satoshis)/1_000)
	default:
		return groupPrinter.Sprintf("%d sats", satoshis)
	}
}
