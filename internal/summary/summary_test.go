package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizmetrics/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func biz(id, industry string, region domain.Region, year int, value float64, active bool) *domain.Business {
	return &domain.Business{
		BusinessID:      id,
		Name:            "Business " + id,
		Industry:        industry,
		Region:          region,
		TotalNetValue:   value,
		FirstCloseDate:  day(year, 1, 1),
		AnnualizedValue: domain.Float(value / 2),
		IsActive:        active,
		CloseYear:       year,
	}
}

func deal(id string, value float64, closeDate time.Time, dealType domain.DealType) *domain.Deal {
	return &domain.Deal{
		ContractLine: domain.ContractLine{
			BusinessID:  id,
			Name:        "Business " + id,
			Industry:    "Retail",
			NetValue:    value,
			StartDate:   closeDate,
			EndDate:     closeDate.AddDate(1, 0, 0),
			CloseDate:   closeDate,
			AccountType: "Direct",
		},
		DealType: dealType,
	}
}

func TestGroupBy_Industry(t *testing.T) {
	businesses := []*domain.Business{
		biz("a", "Retail", domain.RegionNA, 2021, 100, true),
		biz("b", "Healthcare", domain.RegionNA, 2021, 300, true),
		biz("c", "Retail", domain.RegionEMEA, 2022, 200, false),
	}

	groups := GroupBy(businesses, Industry)

	require.Len(t, groups, 2)
	assert.Equal(t, "Healthcare", groups[0].Key)
	assert.Equal(t, "Retail", groups[1].Key)

	retail := groups[1]
	assert.Equal(t, 2, retail.Count)
	assert.Equal(t, 1, retail.ActiveCount)
	assert.Equal(t, 300.0, retail.TotalNetValue)
	assert.Equal(t, 150.0, retail.TotalAnnualized)
	assert.Equal(t, 0.5, retail.Retention)
	require.NotNil(t, retail.Share)
	assert.InDelta(t, 0.5, *retail.Share, 1e-9)
}

func TestGroupBy_TiesKeepKeyOrder(t *testing.T) {
	businesses := []*domain.Business{
		biz("a", "Zeta", domain.RegionNA, 2021, 100, true),
		biz("b", "Alpha", domain.RegionNA, 2021, 100, true),
		biz("c", "Mid", domain.RegionNA, 2021, 500, true),
	}

	groups := GroupBy(businesses, Industry)

	require.Len(t, groups, 3)
	assert.Equal(t, []string{"Mid", "Alpha", "Zeta"}, []string{groups[0].Key, groups[1].Key, groups[2].Key})
}

func TestGroupBy_CloseYearAndRegion(t *testing.T) {
	businesses := []*domain.Business{
		biz("a", "Retail", domain.RegionNA, 2021, 100, true),
		biz("b", "Retail", domain.RegionEMEA, 2022, 300, false),
	}

	years := GroupBy(businesses, CloseYear)
	require.Len(t, years, 2)
	assert.Equal(t, "2022", years[0].Key)

	regions := GroupBy(businesses, Region)
	require.Len(t, regions, 2)
	assert.Equal(t, "EMEA", regions[0].Key)
	assert.Equal(t, 0.0, regions[0].Retention)
}

func TestGroupBy_ZeroTotalHasNoShare(t *testing.T) {
	groups := GroupBy([]*domain.Business{biz("a", "Retail", domain.RegionNA, 2021, 0, true)}, Industry)

	require.Len(t, groups, 1)
	assert.Nil(t, groups[0].Share)
}

func TestGroupBy_MissingAnnualizedValue(t *testing.T) {
	b := biz("a", "Retail", domain.RegionNA, 2021, 100, true)
	b.AnnualizedValue = nil

	groups := GroupBy([]*domain.Business{b}, Business)

	require.Len(t, groups, 1)
	assert.Equal(t, "a", groups[0].Key)
	assert.Zero(t, groups[0].TotalAnnualized)
}

func TestGroupBy_Empty(t *testing.T) {
	assert.Empty(t, GroupBy(nil, Industry))
}

func TestParseDimension(t *testing.T) {
	d, err := ParseDimension("close_year")
	require.NoError(t, err)
	assert.Equal(t, CloseYear, d)

	_, err = ParseDimension("country")
	assert.ErrorIs(t, err, ErrUnknownDimension)
}

func TestRetention(t *testing.T) {
	r := Retention([]*domain.Business{
		biz("a", "Retail", domain.RegionNA, 2021, 1, true),
		biz("b", "Retail", domain.RegionNA, 2021, 1, false),
		biz("c", "Retail", domain.RegionNA, 2021, 1, true),
		biz("d", "Retail", domain.RegionNA, 2021, 1, true),
	})

	assert.Equal(t, 3, r.Active)
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 0.75, r.Rate)

	assert.Zero(t, Retention(nil).Rate)
}

func TestActiveAndTotal(t *testing.T) {
	businesses := []*domain.Business{
		biz("a", "Retail", domain.RegionNA, 2021, 10, true),
		biz("b", "Retail", domain.RegionNA, 2021, 20, false),
	}

	active := Active(businesses)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].BusinessID)
	assert.Equal(t, 30.0, TotalNetValue(businesses))
}

func TestShareOf(t *testing.T) {
	assert.Nil(t, ShareOf(5, 0))
	s := ShareOf(5, 20)
	require.NotNil(t, s)
	assert.Equal(t, 0.25, *s)
}

func TestChangeByYear(t *testing.T) {
	businesses := []*domain.Business{
		biz("a", "Retail", domain.RegionNA, 2021, 100, true),
		biz("b", "Retail", domain.RegionNA, 2022, 50, true),
		biz("c", "Healthcare", domain.RegionNA, 2022, 70, true),
		biz("d", "Retail", domain.RegionNA, 2020, 100, true),
	}

	rows := ChangeByYear(businesses, Industry)

	require.Len(t, rows, 4)
	assert.Equal(t, "Healthcare", rows[0].Key)
	assert.Nil(t, rows[0].Change)

	assert.Equal(t, 2020, rows[1].Year)
	assert.Nil(t, rows[1].Change)
	assert.Equal(t, 100.0, rows[1].Cumulative)

	assert.Equal(t, 2021, rows[2].Year)
	assert.Equal(t, 200.0, rows[2].Cumulative)
	require.NotNil(t, rows[2].Change)
	assert.InDelta(t, 1.0, *rows[2].Change, 1e-9)

	assert.Equal(t, 250.0, rows[3].Cumulative)
	require.NotNil(t, rows[3].Change)
	assert.InDelta(t, 0.25, *rows[3].Change, 1e-9)

	y2022 := ForYear(rows, 2022)
	require.Len(t, y2022, 2)
	assert.Equal(t, "Healthcare", y2022[0].Key)
	assert.Equal(t, "Retail", y2022[1].Key)
}

func TestChangeByYear_ZeroCumulativeIsUndefined(t *testing.T) {
	rows := ChangeByYear([]*domain.Business{
		biz("a", "Retail", domain.RegionNA, 2021, 0, true),
		biz("b", "Retail", domain.RegionNA, 2022, 10, true),
	}, Industry)

	require.Len(t, rows, 2)
	assert.Nil(t, rows[1].Change)
}

func TestTopN(t *testing.T) {
	items := []int{5, 4, 3}
	assert.Equal(t, []int{5, 4}, TopN(items, 2))
	assert.Equal(t, items, TopN(items, 10))
	assert.Empty(t, TopN(items, 0))
}

func TestTopBusinesses(t *testing.T) {
	d1 := deal("b", 100, day(2021, 3, 1), domain.DealTypeNewLogo)
	d1.Tier = "Standard"
	d2 := deal("b", 50, day(2020, 3, 1), domain.DealTypeRenewal)
	d2.Tier = "Premium"
	d3 := deal("b", 10, day(2022, 3, 1), domain.DealTypeRenewal)
	d4 := deal("a", 160, day(2021, 1, 1), domain.DealTypeNewLogo)
	d5 := deal("c", 5, day(2021, 1, 1), domain.DealTypeNewLogo)

	top := TopBusinesses([]*domain.Deal{d1, d2, d3, d4, d5}, 2)

	require.Len(t, top, 2)
	// a and b tie on 160; a sorts first by id.
	assert.Equal(t, "a", top[0].BusinessID)
	assert.Equal(t, "b", top[1].BusinessID)

	b := top[1]
	assert.Equal(t, 160.0, b.TotalNetValue)
	assert.Equal(t, day(2020, 3, 1), b.StartDate)
	assert.Equal(t, day(2023, 3, 1), b.EndDate)
	assert.Equal(t, day(2020, 3, 1), b.CloseDate)
	assert.Equal(t, "Premium", b.Tier, "last non-empty tier wins")
}

func TestRecentDeals(t *testing.T) {
	deals := []*domain.Deal{
		deal("a", 1, day(2021, 1, 1), domain.DealTypeNewLogo),
		deal("b", 1, day(2022, 1, 1), domain.DealTypeNewLogo),
		deal("c", 1, day(2022, 1, 1), domain.DealTypeNewLogo),
		deal("d", 1, day(2023, 1, 1), domain.DealTypeRenewal),
	}

	recent := RecentDeals(deals, domain.DealTypeNewLogo, 2)

	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].BusinessID)
	assert.Equal(t, "c", recent[1].BusinessID)

	renewals := RecentDeals(deals, domain.DealTypeRenewal, 20)
	require.Len(t, renewals, 1)
	assert.Equal(t, "d", renewals[0].BusinessID)
}

func TestBusinessDetail(t *testing.T) {
	deals := []*domain.Deal{
		deal("a", 100, day(2022, 1, 1), domain.DealTypeRenewal),
		deal("a", 50, day(2021, 1, 1), domain.DealTypeNewLogo),
		deal("z", 1, day(2021, 1, 1), domain.DealTypeNewLogo),
	}

	det, ok := BusinessDetail(deals, "a")

	require.True(t, ok)
	assert.Equal(t, 150.0, det.TotalNetValue)
	assert.Equal(t, "Direct", det.AccountType)
	assert.Equal(t, day(2021, 1, 1), det.FirstCloseDate)
	assert.Equal(t, day(2023, 1, 1), det.ContractedUntil)
	require.Len(t, det.Deals, 2)
	assert.Equal(t, day(2021, 1, 1), det.Deals[0].StartDate)

	_, ok = BusinessDetail(deals, "missing")
	assert.False(t, ok)
}

func TestClosedInMonth(t *testing.T) {
	deals := []*domain.Deal{
		deal("a", 100, day(2023, 1, 5), domain.DealTypeNewLogo),
		deal("b", 50, day(2023, 1, 31), domain.DealTypeRenewal),
		deal("c", 10, day(2022, 12, 31), domain.DealTypeRenewal),
		deal("d", 10, time.Time{}, domain.DealTypeRenewal),
	}

	assert.Equal(t, 150.0, ClosedInMonth(deals, "2023-01"))
	assert.Equal(t, 10.0, ClosedInMonth(deals, "2022-12"))
	assert.Zero(t, ClosedInMonth(deals, "2021-01"))
}
