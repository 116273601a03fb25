package dates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFullDates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Date
	}{
		{"iso", "The treaty was signed on 1997-05-27 in Paris", Date{Year: 1997, Month: 5, Day: 27, Precision: PrecisionDay}},
		{"month day year", "On February 24, 2022 the invasion began", Date{Year: 2022, Month: 2, Day: 24, Precision: PrecisionDay}},
		{"day month year", "Signed 27 May 1997 at the summit", Date{Year: 1997, Month: 5, Day: 27, Precision: PrecisionDay}},
		{"abbreviated month", "Report dated Feb 24, 2022", Date{Year: 2022, Month: 2, Day: 24, Precision: PrecisionDay}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := Extract(tt.text)
			require.Len(t, found, 1)
			assert.Equal(t, tt.want, found[0])
		})
	}
}

func TestExtractMonthAndYearPrecision(t *testing.T) {
	found := Extract("Negotiations ran from January 2014 until the 2015 ceasefire")
	require.Len(t, found, 2)
	assert.Equal(t, Date{Year: 2014, Month: 1, Precision: PrecisionMonth}, found[0])
	assert.Equal(t, Date{Year: 2015, Precision: PrecisionYear}, found[1])
}

func TestExtractDoesNotDoubleCount(t *testing.T) {
	// The year inside a full date must not also surface as a bare year.
	found := Extract("It happened on 2022-02-24.")
	require.Len(t, found, 1)
	assert.Equal(t, PrecisionDay, found[0].Precision)
}

func TestExtractIgnoresNonDates(t *testing.T) {
	assert.Empty(t, Extract("no dates here, just 42 numbers and 099 codes"))
	assert.Empty(t, Extract("port 8080 and id 3456789"))
}

func TestRangeAndSpan(t *testing.T) {
	found := Extract("Trace NATO-Russia relations from 1991 to 2023")
	min, max, ok := Range(found)
	require.True(t, ok)
	assert.Equal(t, 1991, min.Year)
	assert.Equal(t, 2023, max.Year)
	assert.Equal(t, 32, SpanYears(min, max))

	_, _, ok = Range(nil)
	assert.False(t, ok)
}

func TestBeforeOrdersMissingComponentsFirst(t *testing.T) {
	year := Date{Year: 2020, Precision: PrecisionYear}
	month := Date{Year: 2020, Month: 3, Precision: PrecisionMonth}
	day := Date{Year: 2020, Month: 3, Day: 15, Precision: PrecisionDay}

	assert.True(t, year.Before(month))
	assert.True(t, month.Before(day))
	assert.False(t, day.Before(year))
}

func TestParseISO(t *testing.T) {
	d, ok := ParseISO("2014-03-18")
	require.True(t, ok)
	assert.Equal(t, Date{Year: 2014, Month: 3, Day: 18, Precision: PrecisionDay}, d)

	d, ok = ParseISO("2014-03")
	require.True(t, ok)
	assert.Equal(t, PrecisionMonth, d.Precision)

	d, ok = ParseISO("2014")
	require.True(t, ok)
	assert.Equal(t, PrecisionYear, d.Precision)

	for _, bad := range []string{"", "not-a-date", "2014-13", "2014-00-10", "99", "2014-02-40"} {
		_, ok := ParseISO(bad)
		assert.False(t, ok, "expected %q to be rejected", bad)
	}
}

func TestISORendering(t *testing.T) {
	assert.Equal(t, "1997-05-27", Date{Year: 1997, Month: 5, Day: 27, Precision: PrecisionDay}.ISO())
	assert.Equal(t, "1997-05", Date{Year: 1997, Month: 5, Precision: PrecisionMonth}.ISO())
	assert.Equal(t, "1997", Date{Year: 1997, Precision: PrecisionYear}.ISO())
}
