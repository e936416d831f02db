package billing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/subday/internal/models"
)

func intPtr(v int) *int { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func sub(name, price string, day int, freq models.Frequency) models.Subscription {
	return models.Subscription{
		ID:        name,
		UID:       "u1",
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Day:       day,
		Frequency: freq,
		Category:  models.CategoryEntertainment,
		Status:    models.StatusActive,
		Color:     models.DefaultColor,
		CreatedAt: date(2024, time.January, 1),
	}
}

func fixedClock(t time.Time) Evaluator {
	return Evaluator{Now: func() time.Time { return t }, Location: time.UTC}
}

func TestMonthlyCostUSD(t *testing.T) {
	t.Parallel()

	canceled := sub("Old", "30", 1, models.FrequencyMonthly)
	canceled.Status = models.StatusCanceled

	tests := []struct {
		name string
		sub  models.Subscription
		want string
	}{
		{"monthly", sub("Netflix", "15.49", 5, models.FrequencyMonthly), "15.49"},
		{"yearly", sub("Domain", "120", 5, models.FrequencyYearly), "10"},
		{"weekly", sub("Coffee", "5.25", 2, models.FrequencyWeekly), "21"},
		{"unset frequency", sub("X", "7", 5, ""), "7"},
		{"canceled", canceled, "0"},
		{"missing price", models.Subscription{Day: 1}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.True(t, decimal.RequireFromString(tt.want).Equal(MonthlyCostUSD(tt.sub)),
				"got %s", MonthlyCostUSD(tt.sub))
		})
	}
}

func TestIsDueOn(t *testing.T) {
	t.Parallel()

	ev := fixedClock(date(2024, time.January, 6)) // Saturday

	weeklyWed := sub("Gym", "10", 20, models.FrequencyWeekly)
	weeklyWed.Weekday = intPtr(3)

	weeklyDayProxy := sub("Box", "10", 3, models.FrequencyWeekly) // Tuesday

	weeklyCreated := sub("Paper", "3", 20, models.FrequencyWeekly)
	weeklyCreated.CreatedAt = date(2024, time.January, 5) // Friday

	weeklyClock := sub("Drift", "3", 20, models.FrequencyWeekly)
	weeklyClock.CreatedAt = time.Time{}

	yearlyCreated := sub("Domain", "12", 15, models.FrequencyYearly)
	yearlyCreated.CreatedAt = date(2023, time.March, 2)

	yearlyExplicit := sub("Insurance", "300", 1, models.FrequencyYearly)
	yearlyExplicit.Month = intPtr(10) // November

	canceled := sub("Gone", "5", 10, models.FrequencyMonthly)
	canceled.Status = models.StatusCanceled

	tests := []struct {
		name string
		sub  models.Subscription
		date time.Time
		want bool
	}{
		{"monthly matches day", sub("N", "1", 10, models.FrequencyMonthly), date(2024, time.July, 10), true},
		{"monthly other day", sub("N", "1", 10, models.FrequencyMonthly), date(2024, time.July, 11), false},
		{"monthly day 31 in a 30-day month", sub("N", "1", 31, models.FrequencyMonthly), date(2024, time.April, 30), false},
		{"weekly explicit wednesday", weeklyWed, date(2024, time.January, 3), true},
		{"weekly explicit next wednesday", weeklyWed, date(2024, time.January, 10), true},
		{"weekly explicit tuesday", weeklyWed, date(2024, time.January, 2), false},
		{"weekly explicit thursday", weeklyWed, date(2024, time.January, 4), false},
		{"weekly day proxy", weeklyDayProxy, date(2024, time.January, 2), true},
		{"weekly day proxy other day", weeklyDayProxy, date(2024, time.January, 3), false},
		{"weekly from createdAt", weeklyCreated, date(2024, time.February, 2), true},
		{"weekly from createdAt other day", weeklyCreated, date(2024, time.February, 3), false},
		{"weekly from clock", weeklyClock, date(2024, time.January, 13), true},
		{"weekly from clock other day", weeklyClock, date(2024, time.January, 12), false},
		{"yearly from createdAt", yearlyCreated, date(2025, time.March, 15), true},
		{"yearly from createdAt wrong month", yearlyCreated, date(2025, time.April, 15), false},
		{"yearly explicit month", yearlyExplicit, date(2024, time.November, 1), true},
		{"yearly explicit wrong day", yearlyExplicit, date(2024, time.November, 2), false},
		{"canceled never due", canceled, date(2024, time.July, 10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ev.IsDueOn(tt.sub, tt.date))
		})
	}
}

func TestAnchored(t *testing.T) {
	t.Parallel()

	ev := fixedClock(date(2024, time.January, 6))

	weekly := sub("W", "1", 20, models.FrequencyWeekly)
	require.True(t, ev.Anchored(weekly))

	weekly.CreatedAt = time.Time{}
	require.False(t, ev.Anchored(weekly))

	weekly.Day = 4
	require.True(t, ev.Anchored(weekly), "day within 1..7 is a weekday code")

	yearly := sub("Y", "1", 20, models.FrequencyYearly)
	yearly.CreatedAt = time.Time{}
	require.False(t, ev.Anchored(yearly))
	yearly.Month = intPtr(2)
	require.True(t, ev.Anchored(yearly))

	monthly := sub("M", "1", 20, models.FrequencyMonthly)
	monthly.CreatedAt = time.Time{}
	require.True(t, ev.Anchored(monthly))
}

func TestClockFallbackFollowsClock(t *testing.T) {
	t.Parallel()

	yearly := sub("Y", "1", 15, models.FrequencyYearly)
	yearly.CreatedAt = time.Time{}

	inMay := fixedClock(date(2024, time.May, 1))
	inJune := fixedClock(date(2024, time.June, 1))

	target := date(2024, time.May, 15)
	require.True(t, inMay.IsDueOn(yearly, target))
	require.False(t, inJune.IsDueOn(yearly, target))
}

func TestToday(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	e := Evaluator{
		Now:      func() time.Time { return time.Date(2024, time.March, 9, 20, 30, 0, 0, time.UTC) },
		Location: tokyo,
	}
	require.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, tokyo), e.Today())
}

func TestScenario(t *testing.T) {
	t.Parallel()

	netflix := sub("Netflix", "15.49", 5, models.FrequencyMonthly)
	domain := sub("Domain", "120.00", 5, models.FrequencyYearly)
	domain.Month = intPtr(int(time.August) - 1)
	spotify := sub("Spotify", "11.99", 5, models.FrequencyMonthly)
	spotify.Status = models.StatusCanceled
	subs := []models.Subscription{netflix, domain, spotify}

	total := TotalMonthlyUSD(subs)
	require.Equal(t, "25.49", total.StringFixed(2))

	due := Default.DueOn(subs, date(2024, time.August, 5))
	require.Len(t, due, 2)
	require.Equal(t, "Netflix", due[0].Name)
	require.Equal(t, "Domain", due[1].Name)

	require.Equal(t, "$135.49", TotalDue(due, models.CurrencyUSD).String())
}

func TestDueSoon(t *testing.T) {
	t.Parallel()

	ev := fixedClock(date(2024, time.January, 31))

	monthlyFirst := sub("First", "5", 1, models.FrequencyMonthly)
	monthlyToday := sub("Today", "5", 31, models.FrequencyMonthly)
	monthlyLater := sub("Later", "5", 10, models.FrequencyMonthly)
	weeklyTomorrow := sub("Weekly", "5", 20, models.FrequencyWeekly)
	weeklyTomorrow.Weekday = intPtr(int(time.Thursday)) // Feb 1 2024
	yearlyWrongMonth := sub("Yearly", "50", 1, models.FrequencyYearly)
	yearlyWrongMonth.Month = intPtr(5)
	canceled := sub("Canceled", "5", 1, models.FrequencyMonthly)
	canceled.Status = models.StatusCanceled

	subs := []models.Subscription{monthlyLater, monthlyFirst, weeklyTomorrow, yearlyWrongMonth, canceled, monthlyToday}
	got := ev.DueSoon(subs, date(2024, time.January, 31))

	names := make([]string, 0, len(got))
	for _, s := range got {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{"First", "Weekly", "Today"}, names)
}

func TestDueSoonYearRollover(t *testing.T) {
	t.Parallel()

	newYear := sub("NewYear", "99", 1, models.FrequencyYearly)
	newYear.Month = intPtr(0)

	got := DueSoon([]models.Subscription{newYear}, date(2024, time.December, 31))
	require.Len(t, got, 1)
}

func TestNextDueDate(t *testing.T) {
	t.Parallel()

	ev := fixedClock(date(2024, time.January, 1))

	t.Run("day 31 skips short months", func(t *testing.T) {
		t.Parallel()
		next, ok := ev.NextDueDate(sub("M", "1", 31, models.FrequencyMonthly), date(2024, time.February, 1))
		require.True(t, ok)
		require.Equal(t, "2024-03-31", next.Format(time.DateOnly))
	})

	t.Run("due today counts", func(t *testing.T) {
		t.Parallel()
		days, ok := ev.DaysUntilDue(sub("M", "1", 8, models.FrequencyMonthly), date(2024, time.January, 8))
		require.True(t, ok)
		require.Zero(t, days)
	})

	t.Run("days until due", func(t *testing.T) {
		t.Parallel()
		days, ok := ev.DaysUntilDue(sub("M", "1", 10, models.FrequencyMonthly), date(2024, time.January, 8))
		require.True(t, ok)
		require.Equal(t, 2, days)
	})

	t.Run("across month boundary", func(t *testing.T) {
		t.Parallel()
		days, ok := ev.DaysUntilDue(sub("M", "1", 2, models.FrequencyMonthly), date(2024, time.January, 30))
		require.True(t, ok)
		require.Equal(t, 3, days)
	})

	t.Run("yearly feb 30 never fires", func(t *testing.T) {
		t.Parallel()
		y := sub("Y", "1", 30, models.FrequencyYearly)
		y.Month = intPtr(1)
		_, ok := ev.NextDueDate(y, date(2024, time.January, 1))
		require.False(t, ok)
	})

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()
		c := sub("C", "1", 3, models.FrequencyMonthly)
		c.Status = models.StatusCanceled
		_, ok := ev.NextDueDate(c, date(2024, time.January, 1))
		require.False(t, ok)
	})
}

func TestMonthCalendar(t *testing.T) {
	t.Parallel()

	ev := fixedClock(date(2024, time.January, 1))

	mondays := sub("Mondays", "2", 20, models.FrequencyWeekly)
	mondays.Weekday = intPtr(int(time.Monday))
	thirtieth := sub("Thirtieth", "4", 30, models.FrequencyMonthly)

	cal := ev.MonthCalendar([]models.Subscription{mondays, thirtieth}, 2024, time.February)

	days := make([]int, 0, len(cal))
	for d := range cal {
		days = append(days, d)
	}
	require.ElementsMatch(t, []int{5, 12, 19, 26}, days)
	require.Equal(t, "Mondays", cal[12][0].Name)

	cal = ev.MonthCalendar([]models.Subscription{mondays, thirtieth}, 2024, time.April)
	require.Len(t, cal[30], 1)
	require.Equal(t, "Thirtieth", cal[30][0].Name)
}

func TestToDisplay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code models.Currency
		usd  string
		want string
	}{
		{models.CurrencyUSD, "25.49", "$25.49"},
		{models.CurrencyEUR, "100", "€92.00"},
		{models.CurrencyGBP, "10", "£7.80"},
		{models.CurrencyINR, "10", "₹835.00"},
		{models.CurrencyEUR, "0.015", "€0.01"},
	}
	for _, tt := range tests {
		t.Run(string(tt.code)+"_"+tt.usd, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ToDisplay(decimal.RequireFromString(tt.usd), tt.code).String())
		})
	}

	require.Panics(t, func() { ToDisplay(decimal.NewFromInt(1), "JPY") })
}

func TestToUSD(t *testing.T) {
	t.Parallel()

	eur := ToDisplay(decimal.NewFromInt(100), models.CurrencyEUR)
	back := ToUSD(eur.Amount, models.CurrencyEUR)
	require.Equal(t, "$100.00", ToDisplay(back, models.CurrencyUSD).String())
}

func TestDisplayJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(ToDisplay(decimal.NewFromInt(100), models.CurrencyEUR))
	require.NoError(t, err)
	require.JSONEq(t, `{"currency":"EUR","symbol":"€","amount":"92.00","formatted":"€92.00"}`, string(b))
}

func TestCategorySplit(t *testing.T) {
	t.Parallel()

	netflix := sub("Netflix", "15.49", 5, models.FrequencyMonthly)
	netflix.Color = "#E50914"
	hulu := sub("Hulu", "7.99", 9, models.FrequencyMonthly)
	domain := sub("Domain", "120", 5, models.FrequencyYearly)
	domain.Category = models.CategoryWork
	free := sub("Free", "0", 5, models.FrequencyMonthly)
	free.Category = models.CategoryHealth
	canceled := sub("Gone", "50", 5, models.FrequencyMonthly)
	canceled.Category = models.CategoryGaming
	canceled.Status = models.StatusCanceled

	split := CategorySplit([]models.Subscription{netflix, hulu, domain, free, canceled}, models.CurrencyUSD)
	require.Len(t, split, 2)
	require.Equal(t, models.CategoryEntertainment, split[0].Category)
	require.Equal(t, "23.48", split[0].Amount.Amount.StringFixed(2))
	require.Equal(t, "#E50914", split[0].Color)
	require.Equal(t, models.CategoryWork, split[1].Category)
	require.Equal(t, "10.00", split[1].Amount.Amount.StringFixed(2))
}

func TestForecast(t *testing.T) {
	t.Parallel()

	subs := []models.Subscription{sub("Netflix", "15.49", 5, models.FrequencyMonthly)}
	points := Forecast(subs, models.CurrencyEUR, date(2024, time.November, 15), 0)
	require.Len(t, points, DefaultForecastMonths)

	months := make([]string, 0, len(points))
	for _, p := range points {
		months = append(months, p.Month)
		require.Equal(t, "€14.25", p.Amount.String())
	}
	require.Equal(t, []string{"Nov", "Dec", "Jan", "Feb", "Mar", "Apr"}, months)
	require.Equal(t, 2025, points[2].Start.Year())
}

func TestSorted(t *testing.T) {
	t.Parallel()

	a := sub("alpha", "5", 20, models.FrequencyMonthly)
	b := sub("Bravo", "15", 3, models.FrequencyMonthly)
	c := sub("charlie", "10", 11, models.FrequencyMonthly)
	archived := sub("Delta", "99", 1, models.FrequencyMonthly)
	archived.Status = models.StatusCanceled
	input := []models.Subscription{a, b, c, archived}

	names := func(subs []models.Subscription) []string {
		out := make([]string, 0, len(subs))
		for _, s := range subs {
			out = append(out, s.Name)
		}
		return out
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"default price desc", ListOptions{}, []string{"Bravo", "charlie", "alpha"}},
		{"price asc", ListOptions{Order: OrderAsc}, []string{"alpha", "charlie", "Bravo"}},
		{"name asc ignores case", ListOptions{SortBy: SortByName, Order: OrderAsc}, []string{"alpha", "Bravo", "charlie"}},
		{"day asc", ListOptions{SortBy: SortByDay, Order: OrderAsc}, []string{"Bravo", "charlie", "alpha"}},
		{"archived shown", ListOptions{ShowArchived: true}, []string{"Delta", "Bravo", "charlie", "alpha"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, names(Sorted(input, tt.opts)))
		})
	}
	require.Equal(t, "alpha", input[0].Name, "input must not be reordered")
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	subs := []models.Subscription{
		sub("Netflix", "15.49", 5, models.FrequencyMonthly),
		sub("Domain", "120", 5, models.FrequencyYearly),
	}
	stats := Summarize(subs, models.CurrencyGBP, date(2024, time.March, 1))
	require.Equal(t, "25.49", stats.MonthlyUSD.StringFixed(2))
	require.Equal(t, "£19.88", stats.Monthly.String())
	require.Equal(t, 2, stats.Active)
	require.Len(t, stats.Forecast, 6)
	require.Equal(t, "Mar", stats.Forecast[0].Month)
}
