package trigger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxYear bounds how far CronExpression.NextAfter will search before giving
// up and returning a zero time, per spec.md §4.1.
const MaxYear = 2299

// ParseError reports a malformed cron expression, carrying the offending
// token and its approximate position in the original string.
type ParseError struct {
	Expr     string
	Token    string
	Position int
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cron: invalid expression %q at position %d (token %q): %s",
		e.Expr, e.Position, e.Token, e.Reason)
}

func parseErr(expr, token string, pos int, reason string) error {
	return &ParseError{Expr: expr, Token: token, Position: pos, Reason: reason}
}

// field indices into CronExpression.fields
const (
	fieldSecond = iota
	fieldMinute
	fieldHour
	fieldDayOfMonth
	fieldMonth
	fieldDayOfWeek
	fieldYear
	numFields
)

var fieldBounds = [numFields][2]int{
	fieldSecond:     {0, 59},
	fieldMinute:     {0, 59},
	fieldHour:       {0, 23},
	fieldDayOfMonth: {1, 31},
	fieldMonth:      {1, 12},
	fieldDayOfWeek:  {1, 7}, // 1=SUN .. 7=SAT, Quartz-style
	fieldYear:       {1970, MaxYear},
}

var monthNames = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

var dayNames = map[string]int{
	"SUN": 1, "MON": 2, "TUE": 3, "WED": 4, "THU": 5, "FRI": 6, "SAT": 7,
}

// domSpec and dowSpec carry the special-token forms (L, W, #)
// that a plain bitset can't represent.
type domSpec struct {
	set        map[int]bool // plain allowed days
	last       bool         // L
	lastOffset int          // L-k, k stored as lastOffset (0 for bare L)
	lastWeekday bool        // LW
	nearestWeekday map[int]bool // dW : day -> wanted
	noSpecific bool         // '?'
}

type dowSpec struct {
	set         map[int]bool // plain allowed weekdays (1=SUN..7=SAT)
	lastWeekday int          // nL : weekday, 0 if unset
	nth         map[int]int  // n#k : weekday -> k
	lastOnly    bool         // bare 'L' meaning Saturday
	noSpecific  bool
}

// CronExpression parses and evaluates a 6- or 7-field Unix-style cron
// expression with Quartz-flavored extensions (L, W, #, ?).
type CronExpression struct {
	raw      string
	seconds  map[int]bool
	minutes  map[int]bool
	hours    map[int]bool
	dom      domSpec
	months   map[int]bool
	dow      dowSpec
	years    map[int]bool // empty means "every year"
	Location *time.Location
}

// ParseCronExpression parses expr in time.UTC. Use ParseCronExpressionIn to
// evaluate in another time zone.
func ParseCronExpression(expr string) (*CronExpression, error) {
	return ParseCronExpressionIn(expr, time.UTC)
}

// ParseCronExpressionIn parses expr, which must evaluate fire times in loc.
func ParseCronExpressionIn(expr string, loc *time.Location) (*CronExpression, error) {
	if loc == nil {
		loc = time.UTC
	}
	fields := strings.Fields(expr)
	if len(fields) != 6 && len(fields) != 7 {
		return nil, parseErr(expr, expr, 0, "expected 6 or 7 whitespace-separated fields")
	}

	ce := &CronExpression{raw: normalizeExpr(expr), Location: loc}

	var err error
	if ce.seconds, err = parseNumericField(expr, fields[fieldSecond], fieldSecond, nil); err != nil {
		return nil, err
	}
	if ce.minutes, err = parseNumericField(expr, fields[fieldMinute], fieldMinute, nil); err != nil {
		return nil, err
	}
	if ce.hours, err = parseNumericField(expr, fields[fieldHour], fieldHour, nil); err != nil {
		return nil, err
	}
	if ce.months, err = parseNumericField(expr, fields[fieldMonth], fieldMonth, monthNames); err != nil {
		return nil, err
	}

	domTok := fields[fieldDayOfMonth]
	dowTok := fields[fieldDayOfWeek]
	domHasQ := domTok == "?"
	dowHasQ := dowTok == "?"
	if domHasQ == dowHasQ {
		return nil, parseErr(expr, domTok+" "+dowTok, fieldDayOfMonth,
			"exactly one of day-of-month and day-of-week must be '?'")
	}

	if ce.dom, err = parseDayOfMonth(expr, domTok); err != nil {
		return nil, err
	}
	if ce.dow, err = parseDayOfWeek(expr, dowTok); err != nil {
		return nil, err
	}

	if len(fields) == 7 {
		if ce.years, err = parseNumericField(expr, fields[fieldYear], fieldYear, nil); err != nil {
			return nil, err
		}
	} else {
		ce.years = nil // every year
	}

	return ce, nil
}

func normalizeExpr(expr string) string {
	return strings.ToUpper(strings.Join(strings.Fields(expr), " "))
}

// String returns the normalized (uppercased, single-spaced) textual form,
// satisfying the round-trip property in spec.md §8.
func (ce *CronExpression) String() string { return ce.raw }

// parseNumericField parses a single field into the set of allowed integer
// values, honoring *, ?, lists, ranges, and step syntax. names, if non-nil,
// maps alphabetic tokens (month/day names) to their numeric value.
func parseNumericField(expr, field string, idx int, names map[string]int) (map[int]bool, error) {
	lo, hi := fieldBounds[idx][0], fieldBounds[idx][1]
	result := make(map[int]bool)

	for _, part := range strings.Split(field, ",") {
		if part == "" {
			return nil, parseErr(expr, field, idx, "empty list element")
		}
		if err := parseRangePart(expr, part, idx, lo, hi, names, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func parseRangePart(expr, part string, idx, lo, hi int, names map[string]int, out map[int]bool) error {
	step := 1
	base := part
	if i := strings.IndexByte(part, '/'); i >= 0 {
		base = part[:i]
		stepStr := part[i+1:]
		n, err := strconv.Atoi(stepStr)
		if err != nil || n <= 0 {
			return parseErr(expr, part, idx, "invalid step value")
		}
		step = n
	}

	var start, end int
	switch {
	case base == "*":
		start, end = lo, hi
	case strings.Contains(base, "-"):
		segs := strings.SplitN(base, "-", 2)
		a, err := parseAtom(segs[0], names)
		if err != nil {
			return parseErr(expr, part, idx, "invalid range start")
		}
		b, err := parseAtom(segs[1], names)
		if err != nil {
			return parseErr(expr, part, idx, "invalid range end")
		}
		start, end = a, b
	default:
		a, err := parseAtom(base, names)
		if err != nil {
			return parseErr(expr, part, idx, "invalid value")
		}
		start, end = a, a
		if strings.Contains(part, "/") {
			end = hi // "a/n" means every n-th value from a to the field max
		}
	}

	if start < lo || start > hi || end < lo || end > hi {
		return parseErr(expr, part, idx, fmt.Sprintf("value out of range [%d,%d]", lo, hi))
	}

	if end < start {
		// wrap via modulus, e.g. 22-2 in hours means 22,23,0,1,2
		span := hi - lo + 1
		count := 0
		for v := start; count < span; v, count = v+1, count+1 {
			if v > hi {
				v = lo
			}
			if (count % step) == 0 {
				out[v] = true
			}
			if v == end {
				break
			}
		}
		return nil
	}

	for v := start; v <= end; v += step {
		out[v] = true
	}
	return nil
}

func parseAtom(tok string, names map[string]int) (int, error) {
	tok = strings.ToUpper(strings.TrimSpace(tok))
	if names != nil {
		if v, ok := names[tok]; ok {
			return v, nil
		}
	}
	return strconv.Atoi(tok)
}

func parseDayOfMonth(expr, field string) (domSpec, error) {
	spec := domSpec{set: make(map[int]bool)}
	if field == "?" {
		spec.noSpecific = true
		return spec, nil
	}
	if field == "*" {
		for d := 1; d <= 31; d++ {
			spec.set[d] = true
		}
		return spec, nil
	}

	for _, part := range strings.Split(field, ",") {
		switch {
		case part == "L":
			spec.last = true
		case strings.HasPrefix(part, "L-"):
			k, err := strconv.Atoi(part[2:])
			if err != nil || k < 0 {
				return spec, parseErr(expr, part, fieldDayOfMonth, "invalid L-k form")
			}
			spec.last = true
			spec.lastOffset = k
		case part == "LW":
			spec.lastWeekday = true
		case strings.HasSuffix(part, "W"):
			dayStr := strings.TrimSuffix(part, "W")
			d, err := strconv.Atoi(dayStr)
			if err != nil || d < 1 || d > 31 {
				return spec, parseErr(expr, part, fieldDayOfMonth, "invalid dW form")
			}
			if spec.nearestWeekday == nil {
				spec.nearestWeekday = make(map[int]bool)
			}
			spec.nearestWeekday[d] = true
		default:
			out := make(map[int]bool)
			if err := parseRangePart(expr, part, fieldDayOfMonth, 1, 31, nil, out); err != nil {
				return spec, err
			}
			for k := range out {
				spec.set[k] = true
			}
		}
	}
	return spec, nil
}

func parseDayOfWeek(expr, field string) (dowSpec, error) {
	spec := dowSpec{set: make(map[int]bool), nth: make(map[int]int)}
	if field == "?" {
		spec.noSpecific = true
		return spec, nil
	}
	if field == "*" {
		for d := 1; d <= 7; d++ {
			spec.set[d] = true
		}
		return spec, nil
	}

	for _, part := range strings.Split(field, ",") {
		up := strings.ToUpper(part)
		switch {
		case up == "L":
			spec.lastOnly = true
		case strings.HasSuffix(up, "L") && len(up) > 1 && !strings.Contains(up, "#"):
			wdTok := strings.TrimSuffix(up, "L")
			wd, err := parseAtom(wdTok, dayNames)
			if err != nil || wd < 1 || wd > 7 {
				return spec, parseErr(expr, part, fieldDayOfWeek, "invalid nL form")
			}
			spec.lastWeekday = wd
		case strings.Contains(up, "#"):
			segs := strings.SplitN(up, "#", 2)
			wd, err := parseAtom(segs[0], dayNames)
			if err != nil || wd < 1 || wd > 7 {
				return spec, parseErr(expr, part, fieldDayOfWeek, "invalid n#k weekday")
			}
			k, err := strconv.Atoi(segs[1])
			if err != nil || k < 1 || k > 5 {
				return spec, parseErr(expr, part, fieldDayOfWeek, "n#k: k must be in [1,5]")
			}
			spec.nth[wd] = k
		default:
			out := make(map[int]bool)
			if err := parseRangePart(expr, part, fieldDayOfWeek, 1, 7, dayNames, out); err != nil {
				return spec, err
			}
			for k := range out {
				spec.set[k] = true
			}
		}
	}
	return spec, nil
}

// NextAfter returns the least instant strictly after t (evaluated in the
// expression's own Location, UTC if none) satisfying the expression, or the
// zero time if no such instant exists at or before MaxYear.
func (ce *CronExpression) NextAfter(t time.Time) time.Time {
	loc := ce.Location
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc).Truncate(time.Second).Add(time.Second)

	for attempts := 0; attempts < 5*366*24*60*60; attempts++ {
		if t.Year() > MaxYear {
			return time.Time{}
		}
		if !ce.yearOK(t.Year()) {
			t = time.Date(t.Year()+1, 1, 1, 0, 0, 0, 0, loc)
			continue
		}
		if !ce.months[int(t.Month())] {
			t = nextMonthStart(t, loc)
			continue
		}
		if !ce.dayOK(t) {
			y, m, d := t.Date()
			t = time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
			continue
		}
		if !ce.hours[t.Hour()] {
			t = nextHourStart(t, loc)
			continue
		}
		if !ce.minutes[t.Minute()] {
			t = nextMinuteStart(t, loc)
			continue
		}
		if !ce.seconds[t.Second()] {
			t = t.Add(time.Second)
			continue
		}
		return t
	}
	return time.Time{}
}

func (ce *CronExpression) yearOK(y int) bool {
	if len(ce.years) == 0 {
		return y <= MaxYear
	}
	return ce.years[y]
}

func nextMonthStart(t time.Time, loc *time.Location) time.Time {
	y, m, _ := t.Date()
	if m == time.December {
		return time.Date(y+1, time.January, 1, 0, 0, 0, 0, loc)
	}
	return time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
}

func nextHourStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour()+1, 0, 0, 0, loc)
}

func nextMinuteStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute()+1, 0, 0, loc)
}

// dayOK evaluates the combined day-of-month / day-of-week rule for t's
// calendar day, honoring the L/W/# extensions.
func (ce *CronExpression) dayOK(t time.Time) bool {
	if !ce.dom.noSpecific {
		return ce.domOK(t)
	}
	return ce.dowOK(t)
}

func (ce *CronExpression) domOK(t time.Time) bool {
	y, m, d := t.Date()
	lastDay := lastDayOfMonth(y, m)

	switch {
	case ce.dom.last:
		return d == lastDay-ce.dom.lastOffset
	case ce.dom.lastWeekday:
		return d == nearestWeekday(y, m, lastDay)
	case len(ce.dom.nearestWeekday) > 0:
		for target := range ce.dom.nearestWeekday {
			if target > lastDay {
				continue
			}
			if d == nearestWeekday(y, m, target) {
				return true
			}
		}
		return false
	default:
		return ce.dom.set[d]
	}
}

func (ce *CronExpression) dowOK(t time.Time) bool {
	wd := int(t.Weekday()) + 1 // time.Sunday==0 -> 1=SUN..7=SAT
	y, m, d := t.Date()

	switch {
	case ce.dow.lastOnly:
		return wd == 7 // Saturday
	case ce.dow.lastWeekday != 0:
		if wd != ce.dow.lastWeekday {
			return false
		}
		return d+7 > lastDayOfMonth(y, m)
	case len(ce.dow.nth) > 0:
		k, ok := ce.dow.nth[wd]
		if !ok {
			return false
		}
		return (d-1)/7+1 == k
	default:
		return ce.dow.set[wd]
	}
}

func lastDayOfMonth(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// nearestWeekday finds the weekday nearest `day` within [y,m], never
// crossing into the previous or next month.
func nearestWeekday(y int, m time.Month, day int) int {
	t := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	switch t.Weekday() {
	case time.Saturday:
		if day > 1 {
			return day - 1
		}
		return day + 2
	case time.Sunday:
		last := lastDayOfMonth(y, m)
		if day < last {
			return day + 1
		}
		return day - 2
	default:
		return day
	}
}
