package settlement

import (
	"testing"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePrizeSplitDefaults(t *testing.T) {
	weights, err := SchemeWeights(models.PayoutTop3)
	require.NoError(t, err)

	split, err := ComputePrizeSplit(d("1000"), DefaultPlatformFeeRate, weights)
	require.NoError(t, err)

	assert.True(t, split.PlatformFee.Equal(d("20")), "fee %s", split.PlatformFee)
	want := map[models.Position]string{
		models.PositionFirst:  "490",
		models.PositionSecond: "294",
		models.PositionThird:  "196",
	}
	for pos, amount := range want {
		got, ok := split.PrizeFor(pos)
		require.True(t, ok, pos)
		assert.True(t, got.Equal(d(amount)), "%s: %s", pos, got)
	}
	assert.True(t, split.Distributed().Equal(d("980")))
}

func TestComputePrizeSplitFivePlaces(t *testing.T) {
	weights, err := SchemeWeights(models.PayoutTop5)
	require.NoError(t, err)

	split, err := ComputePrizeSplit(d("10000"), DefaultPlatformFeeRate, weights)
	require.NoError(t, err)

	expected := []string{"3920", "2450", "1470", "1176", "784"}
	require.Len(t, split.Prizes, len(expected))
	for i, amount := range expected {
		assert.True(t, split.Prizes[i].Amount.Equal(d(amount)), "%s: %s", split.Prizes[i].Position, split.Prizes[i].Amount)
	}
}

func TestComputePrizeSplitNeverExceedsNetPool(t *testing.T) {
	schemes := []models.PayoutScheme{models.PayoutTop2, models.PayoutTop3, models.PayoutTop5}
	pools := []string{"0", "1", "33.33", "99.99", "777.77", "1000", "123456.78"}
	rates := []string{"0", "0.02", "0.15", "0.333"}

	for _, scheme := range schemes {
		weights, err := SchemeWeights(scheme)
		require.NoError(t, err)
		for _, pool := range pools {
			for _, rate := range rates {
				split, err := ComputePrizeSplit(d(pool), d(rate), weights)
				require.NoError(t, err)
				limit := d(pool).Mul(decimal.NewFromInt(1).Sub(d(rate)))
				assert.True(t, split.Distributed().LessThanOrEqual(limit),
					"%s pool=%s rate=%s distributed=%s", scheme, pool, rate, split.Distributed())
			}
		}
	}
}

func TestComputePrizeSplitRejectsInvalidParameters(t *testing.T) {
	weights, _ := SchemeWeights(models.PayoutTop3)

	_, err := ComputePrizeSplit(d("-1"), DefaultPlatformFeeRate, weights)
	assert.ErrorIs(t, err, ErrInvalidPrizeSplit)

	_, err = ComputePrizeSplit(d("100"), d("1"), weights)
	assert.ErrorIs(t, err, ErrInvalidPrizeSplit)

	_, err = ComputePrizeSplit(d("100"), DefaultPlatformFeeRate, []PositionWeight{
		{models.PositionFirst, d("0.7")},
		{models.PositionSecond, d("0.4")},
	})
	assert.ErrorIs(t, err, ErrInvalidPrizeSplit)

	_, err = SchemeWeights("top7")
	assert.ErrorIs(t, err, ErrInvalidPrizeSplit)
}

func TestPerPlayerShareUsesRosterSize(t *testing.T) {
	share, err := PerPlayerShare(d("490"), 4)
	require.NoError(t, err)
	assert.True(t, share.Equal(d("122.5")))

	share, err = PerPlayerShare(d("490"), 2)
	require.NoError(t, err)
	assert.True(t, share.Equal(d("245")))

	share, err = PerPlayerShare(d("100"), 3)
	require.NoError(t, err)
	assert.True(t, share.Equal(d("33.33")))

	_, err = PerPlayerShare(d("100"), 0)
	assert.ErrorIs(t, err, ErrInvalidRoster)
}
