package currency

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Info struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

var supported = []Info{
	{Code: "USD", Name: "US Dollar", Symbol: "$"},
	{Code: "EUR", Name: "Euro", Symbol: "€"},
	{Code: "RSD", Name: "Serbian Dinar", Symbol: "дин."},
}

type Service interface {
	Supported() []Info
	IsValid(code string) bool
	Symbol(code string) string
	Name(code string) string
	Format(amount float64, code string) string
	Convert(ctx context.Context, amount float64, from, to string) float64
}

type RateProvider interface {
	Rate(ctx context.Context, currency string) (float64, bool)
}

type service struct {
	rates   RateProvider
	byCode  map[string]Info
	printer *message.Printer
}

func NewService(rates RateProvider) Service {
	byCode := make(map[string]Info, len(supported))
	for _, info := range supported {
		byCode[info.Code] = info
	}
	return &service{
		rates:   rates,
		byCode:  byCode,
		printer: message.NewPrinter(language.English),
	}
}

func (s *service) Supported() []Info {
	out := make([]Info, len(supported))
	copy(out, supported)
	return out
}

func (s *service) IsValid(code string) bool {
	_, ok := s.byCode[code]
	return ok
}

func (s *service) Symbol(code string) string {
	if info, ok := s.byCode[code]; ok {
		return info.Symbol
	}
	return code
}

func (s *service) Name(code string) string {
	if info, ok := s.byCode[code]; ok {
		return info.Name
	}
	return code
}

func (s *service) Format(amount float64, code string) string {
	info, ok := s.byCode[code]
	if !ok {
		return fmt.Sprintf("%.2f %s", amount, code)
	}

	formatted := s.printer.Sprintf("%.2f", amount)
	switch code {
	case "RSD":
		return formatted + " " + info.Symbol
	default:
		return info.Symbol + formatted
	}
}

// Convert moves amount between currencies through USD. Unknown currencies
// are treated as USD.
func (s *service) Convert(ctx context.Context, amount float64, from, to string) float64 {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount
	}

	usd := decimal.NewFromFloat(amount)
	if from != "USD" {
		if rate, ok := s.rates.Rate(ctx, from); ok {
			usd = usd.Div(decimal.NewFromFloat(rate))
		}
	}
	if to == "USD" {
		out, _ := usd.Float64()
		return out
	}

	if rate, ok := s.rates.Rate(ctx, to); ok {
		usd = usd.Mul(decimal.NewFromFloat(rate))
	}
	out, _ := usd.Float64()
	return out
}
