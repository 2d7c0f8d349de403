package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

// DefaultConversionRate - сколько VP стоит один VC.
const DefaultConversionRate = "1.5"

// ConversionPolicy - единственное место, где определено округление VP <-> VC.
// Все движки обязаны считать курс только через неё.
type ConversionPolicy struct {
	rate decimal.Decimal
}

func NewConversionPolicy(rate string) (ConversionPolicy, error) {
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return ConversionPolicy{}, apperror.Wrap(err, apperror.ErrCodeValidation, "курс конвертации должен быть числом")
	}
	if !r.IsPositive() {
		return ConversionPolicy{}, apperror.New(apperror.ErrCodeValidation, "курс конвертации должен быть положительным")
	}
	return ConversionPolicy{rate: r}, nil
}

// DefaultConversionPolicy возвращает политику с курсом 1 VC = 1.5 VP.
func DefaultConversionPolicy() ConversionPolicy {
	return ConversionPolicy{rate: decimal.RequireFromString(DefaultConversionRate)}
}

func (p ConversionPolicy) Rate() string {
	return p.rate.String()
}

// VPToVC = floor(vp / rate).
func (p ConversionPolicy) VPToVC(vp int64) int64 {
	if vp <= 0 {
		return 0
	}
	return decimal.NewFromInt(vp).Div(p.rate).Floor().IntPart()
}

// VCToVP = floor(vc * rate).
func (p ConversionPolicy) VCToVP(vc int64) int64 {
	if vc <= 0 {
		return 0
	}
	return decimal.NewFromInt(vc).Mul(p.rate).Floor().IntPart()
}
