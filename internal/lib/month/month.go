// Package month реализует календарную арифметику месяцев и периодов оплаты.
package month

import (
	"time"

	"github.com/magabrotheeeer/vocal/internal/models"
)

// DaysIn возвращает количество дней в месяце m года year.
func DaysIn(year int, m time.Month) int {
	// нулевой день следующего месяца равен последнему дню текущего
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths прибавляет n календарных месяцев к t.
//
// День месяца сохраняется, если в целевом месяце достаточно дней, иначе
// прижимается к последнему дню целевого месяца. Время суток и зона сохраняются.
// В отличие от time.AddDate, переполнение дня не переносится в следующий месяц.
func AddMonths(t time.Time, n int) time.Time {
	total := int(t.Month()) - 1 + n
	year := t.Year() + total/12
	m := total % 12
	if m < 0 {
		m += 12
		year--
	}
	target := time.Month(m + 1)

	day := t.Day()
	if last := DaysIn(year, target); day > last {
		day = last
	}
	return time.Date(year, target, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddPeriod прибавляет к t один период оплаты.
// Для неизвестного периода возвращает false.
func AddPeriod(t time.Time, period models.PaymentDemandPeriod) (time.Time, bool) {
	switch period {
	case models.PeriodDaily:
		return t.AddDate(0, 0, 1), true
	case models.PeriodWeekly:
		return t.AddDate(0, 0, 7), true
	case models.PeriodMonthly:
		return AddMonths(t, 1), true
	case models.PeriodQuarterly:
		return AddMonths(t, 3), true
	case models.PeriodAnnually:
		return AddMonths(t, 12), true
	}
	return t, false
}
