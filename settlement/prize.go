package settlement

import (
	"fmt"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/shopspring/decimal"
)

// DefaultPlatformFeeRate - комиссия платформы по умолчанию (2%).
var DefaultPlatformFeeRate = decimal.RequireFromString("0.02")

// PositionWeight - доля чистого фонда, приходящаяся на место.
type PositionWeight struct {
	Position models.Position
	Weight   decimal.Decimal
}

var (
	topThreeWeights = []PositionWeight{
		{models.PositionFirst, decimal.RequireFromString("0.50")},
		{models.PositionSecond, decimal.RequireFromString("0.30")},
		{models.PositionThird, decimal.RequireFromString("0.20")},
	}
	topFiveWeights = []PositionWeight{
		{models.PositionFirst, decimal.RequireFromString("0.40")},
		{models.PositionSecond, decimal.RequireFromString("0.25")},
		{models.PositionThird, decimal.RequireFromString("0.15")},
		{models.PositionFourth, decimal.RequireFromString("0.12")},
		{models.PositionFifth, decimal.RequireFromString("0.08")},
	}
)

// SchemeWeights возвращает веса мест для схемы выплат. top2 использует первые
// два веса таблицы top3; оставшаяся доля не распределяется.
func SchemeWeights(scheme models.PayoutScheme) ([]PositionWeight, error) {
	var src []PositionWeight
	switch scheme {
	case models.PayoutTop2:
		src = topThreeWeights[:2]
	case models.PayoutTop3:
		src = topThreeWeights
	case models.PayoutTop5:
		src = topFiveWeights
	default:
		return nil, fmt.Errorf("%w: unknown payout scheme %q", ErrInvalidPrizeSplit, scheme)
	}
	return append([]PositionWeight(nil), src...), nil
}

// PayableCount - число мест, после награждения которых турнир завершается.
func PayableCount(scheme models.PayoutScheme) int {
	switch scheme {
	case models.PayoutTop2:
		return 2
	case models.PayoutTop3:
		return 3
	case models.PayoutTop5:
		return 5
	}
	return 0
}

type PositionPrize struct {
	Position models.Position `json:"position"`
	Weight   decimal.Decimal `json:"weight"`
	Amount   decimal.Decimal `json:"amount"`
}

// PrizeSplit - результат распределения призового фонда.
type PrizeSplit struct {
	PrizePool   decimal.Decimal `json:"prize_pool"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	NetPool     decimal.Decimal `json:"net_pool"`
	Prizes      []PositionPrize `json:"prizes"`
}

func (s PrizeSplit) PrizeFor(p models.Position) (decimal.Decimal, bool) {
	for _, pp := range s.Prizes {
		if pp.Position == p {
			return pp.Amount, true
		}
	}
	return decimal.Zero, false
}

// Distributed - сумма всех призов, не превышает NetPool.
func (s PrizeSplit) Distributed() decimal.Decimal {
	sum := decimal.Zero
	for _, pp := range s.Prizes {
		sum = sum.Add(pp.Amount)
	}
	return sum
}

// ComputePrizeSplit удерживает комиссию платформы и делит остаток по весам.
// Призы округляются вниз до копеек, поэтому их сумма не превышает pool*(1-rate).
func ComputePrizeSplit(prizePool, feeRate decimal.Decimal, weights []PositionWeight) (PrizeSplit, error) {
	if prizePool.IsNegative() {
		return PrizeSplit{}, fmt.Errorf("%w: prize pool must not be negative", ErrInvalidPrizeSplit)
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return PrizeSplit{}, fmt.Errorf("%w: platform fee rate must be in [0, 1)", ErrInvalidPrizeSplit)
	}

	total := decimal.Zero
	seen := make(map[models.Position]struct{}, len(weights))
	for _, w := range weights {
		if w.Weight.IsNegative() {
			return PrizeSplit{}, fmt.Errorf("%w: negative weight for %s", ErrInvalidPrizeSplit, w.Position)
		}
		if _, dup := seen[w.Position]; dup {
			return PrizeSplit{}, fmt.Errorf("%w: duplicate position %s", ErrInvalidPrizeSplit, w.Position)
		}
		seen[w.Position] = struct{}{}
		total = total.Add(w.Weight)
	}
	if total.GreaterThan(decimal.NewFromInt(1)) {
		return PrizeSplit{}, fmt.Errorf("%w: weights sum to %s", ErrInvalidPrizeSplit, total.String())
	}

	net := prizePool.Mul(decimal.NewFromInt(1).Sub(feeRate))
	split := PrizeSplit{
		PrizePool:   prizePool,
		PlatformFee: prizePool.Mul(feeRate).Round(2),
		NetPool:     net.Truncate(2),
		Prizes:      make([]PositionPrize, 0, len(weights)),
	}
	for _, w := range weights {
		split.Prizes = append(split.Prizes, PositionPrize{
			Position: w.Position,
			Weight:   w.Weight,
			Amount:   net.Mul(w.Weight).Truncate(2),
		})
	}
	return split, nil
}

// TournamentSplit считает распределение по настройкам турнира.
func TournamentSplit(t *models.Tournament) (PrizeSplit, error) {
	weights, err := SchemeWeights(t.PayoutScheme)
	if err != nil {
		return PrizeSplit{}, err
	}
	return ComputePrizeSplit(t.PrizePool, t.PlatformFeeRate, weights)
}

// PerPlayerShare делит приз поровну между игроками команды (округление вниз до копеек).
func PerPlayerShare(prize decimal.Decimal, players int) (decimal.Decimal, error) {
	if players <= 0 {
		return decimal.Zero, fmt.Errorf("%w: team has no players", ErrInvalidRoster)
	}
	return prize.Div(decimal.NewFromInt(int64(players))).Truncate(2), nil
}
