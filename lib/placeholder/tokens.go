package placeholder

import (
	"strconv"
	"strings"
	"time"

	"github.com/ether/lastupdated-go/lib/host"
)

const (
	LastUpdated         = "[lastupdated]"
	LastUpdatedUS       = "[lastupdatedus]"
	FullDate            = "[lastupdated-full-date]"
	FullDateUS          = "[lastupdated-full-dateus]"
	Time                = "[lastupdated-time]"
	Year                = "[lastupdated-year]"
	Month               = "[lastupdated-month]"
	MonthStr            = "[lastupdated-month-str]"
	Date                = "[lastupdated-date]"
	Day                 = "[lastupdated-day]"
	DayStr              = "[lastupdated-day-str]"
	Hour                = "[lastupdated-hour]"
	Minute              = "[lastupdated-minute]"
	Second              = "[lastupdated-second]"
	Image               = "[lastupdated-image]"
	Increment           = "[lastupdated-increment]"
	ArtboardTitle       = "[lastupdated-artboard-title]"
	ArtboardTitleNoDash = "[lastupdated-artboard-title-nodash]"
	SizeBytes           = "[lastupdated-size-bytes]"
	IsAutosaved         = "[lastupdated-is-autosaved]"
	IncrementOnSave     = "[lastupdated-increment-onsave]"
	TotalPages          = "[lastupdated-totalpages]"
	TotalPagesNoDash    = "[lastupdated-totalpages-nodash]"
	CurrentPageNr       = "[lastupdated-currentpagenr]"
	CurrentPageNrNoDash = "[lastupdated-currentpagenr-nodash]"
	PageNrNext          = "[lastupdated-pagenr-next]"
	PageNrNextNoDash    = "[lastupdated-pagenr-next-nodash]"
	PageNrPrev          = "[lastupdated-pagenr-prev]"
	PageNrPrevNoDash    = "[lastupdated-pagenr-prev-nodash]"
	DefaultHiddenPrefix = "-"
)

var (
	monthNames   = [...]string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	weekdayNames = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}
)

// Context carries everything a resolver may read. Time is already converted to
// the engine's location.
type Context struct {
	Time         time.Time
	CurrentValue string
	ArtboardName string
	Save         host.SaveEvent
	Pages        PageInfo
}

// PageInfo is the position of an artboard among the artboards of its page.
type PageInfo struct {
	// Names lists the artboard names of the page in document order.
	Names        []string
	Index        int
	HiddenPrefix string
}

func (p PageInfo) hidden(name string) bool {
	prefix := p.HiddenPrefix
	if prefix == "" {
		prefix = DefaultHiddenPrefix
	}
	return strings.HasPrefix(name, prefix)
}

func (p PageInfo) visibleCount(upTo int) int {
	n := 0
	for i := 0; i < upTo && i < len(p.Names); i++ {
		if !p.hidden(p.Names[i]) {
			n++
		}
	}
	return n
}

func (p PageInfo) current() (string, bool) {
	if p.Index < 0 || p.Index >= len(p.Names) {
		return "", false
	}
	return p.Names[p.Index], true
}

func (p PageInfo) hasVisibleAfter() bool {
	for i := p.Index + 1; i < len(p.Names); i++ {
		if !p.hidden(p.Names[i]) {
			return true
		}
	}
	return false
}

// DateString formats t as d-m-yyyy.
func DateString(t time.Time) string {
	return strconv.Itoa(t.Day()) + "-" + strconv.Itoa(int(t.Month())) + "-" + strconv.Itoa(t.Year())
}

// DateStringUS formats t as m/d/yyyy.
func DateStringUS(t time.Time) string {
	return strconv.Itoa(int(t.Month())) + "/" + strconv.Itoa(t.Day()) + "/" + strconv.Itoa(t.Year())
}

// TimeString formats t as H:mm.
func TimeString(t time.Time) string {
	return strconv.Itoa(t.Hour()) + ":" + twoDigits(t.Minute())
}

// Seed is the identicon seed for t: the [lastupdated] value, so every edit
// within the same minute maps to the same image.
func Seed(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return DateString(t) + " " + TimeString(t)
}

func twoDigits(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

// NextIncrement returns cur+1 when cur starts with an integer and is numeric as
// a whole, and cur unchanged otherwise.
func NextIncrement(cur string) string {
	trimmed := strings.TrimSpace(cur)
	if trimmed == "" {
		return cur
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
		return cur
	}
	end := 0
	if trimmed[0] == '+' || trimmed[0] == '-' {
		end = 1
	}
	digits := end
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}
	if end == digits {
		return cur
	}
	n, err := strconv.ParseInt(trimmed[:end], 10, 64)
	if err != nil {
		return cur
	}
	return strconv.FormatInt(n+1, 10)
}

func DefaultTokens() []Token {
	return []Token{
		{Name: LastUpdated, Category: ChangeDriven, Resolve: func(c *Context) string {
			return DateString(c.Time) + " " + TimeString(c.Time)
		}},
		{Name: LastUpdatedUS, Category: ChangeDriven, Resolve: func(c *Context) string {
			return DateStringUS(c.Time) + " " + TimeString(c.Time)
		}},
		{Name: FullDate, Category: ChangeDriven, Resolve: func(c *Context) string { return DateString(c.Time) }},
		{Name: FullDateUS, Category: ChangeDriven, Resolve: func(c *Context) string { return DateStringUS(c.Time) }},
		{Name: Time, Category: ChangeDriven, Resolve: func(c *Context) string { return TimeString(c.Time) }},
		{Name: Year, Category: ChangeDriven, Resolve: func(c *Context) string { return strconv.Itoa(c.Time.Year()) }},
		{Name: Month, Category: ChangeDriven, Resolve: func(c *Context) string { return strconv.Itoa(int(c.Time.Month())) }},
		{Name: MonthStr, Category: ChangeDriven, Resolve: func(c *Context) string { return monthNames[c.Time.Month()-1] }},
		{Name: Date, Category: ChangeDriven, Resolve: func(c *Context) string { return strconv.Itoa(c.Time.Day()) }},
		{Name: Day, Category: ChangeDriven, Resolve: func(c *Context) string { return strconv.Itoa(int(c.Time.Weekday())) }},
		{Name: DayStr, Category: ChangeDriven, Resolve: func(c *Context) string { return weekdayNames[c.Time.Weekday()] }},
		{Name: Hour, Category: ChangeDriven, Resolve: func(c *Context) string { return strconv.Itoa(c.Time.Hour()) }},
		{Name: Minute, Category: ChangeDriven, Resolve: func(c *Context) string { return twoDigits(c.Time.Minute()) }},
		{Name: Second, Category: ChangeDriven, Resolve: func(c *Context) string { return twoDigits(c.Time.Second()) }},
		{Name: Image, Category: ChangeDriven, Kind: KindImage, Resolve: func(c *Context) string { return Seed(c.Time, nil) }},
		{Name: Increment, Category: ChangeDriven, Kind: KindCounter, Resolve: func(c *Context) string { return NextIncrement(c.CurrentValue) }},
		{Name: ArtboardTitle, Category: ChangeDriven, Resolve: func(c *Context) string { return c.ArtboardName }},
		{Name: ArtboardTitleNoDash, Category: ChangeDriven, Resolve: func(c *Context) string {
			return strings.TrimPrefix(c.ArtboardName, DefaultHiddenPrefix)
		}},

		{Name: SizeBytes, Category: SaveDriven, Resolve: func(c *Context) string { return strconv.FormatInt(c.Save.SizeBytes, 10) }},
		{Name: IsAutosaved, Category: SaveDriven, Resolve: func(c *Context) string { return strconv.FormatBool(c.Save.Autosaved) }},
		{Name: IncrementOnSave, Category: SaveDriven, Kind: KindCounter, Resolve: func(c *Context) string { return NextIncrement(c.CurrentValue) }},

		{Name: TotalPages, Category: PaginationDriven, Resolve: func(c *Context) string { return strconv.Itoa(len(c.Pages.Names)) }},
		{Name: TotalPagesNoDash, Category: PaginationDriven, Resolve: func(c *Context) string {
			return strconv.Itoa(c.Pages.visibleCount(len(c.Pages.Names)))
		}},
		{Name: CurrentPageNr, Category: PaginationDriven, Resolve: func(c *Context) string {
			if _, ok := c.Pages.current(); !ok {
				return ""
			}
			return strconv.Itoa(c.Pages.Index + 1)
		}},
		{Name: CurrentPageNrNoDash, Category: PaginationDriven, Resolve: func(c *Context) string {
			name, ok := c.Pages.current()
			if !ok || c.Pages.hidden(name) {
				return ""
			}
			return strconv.Itoa(c.Pages.visibleCount(c.Pages.Index + 1))
		}},
		{Name: PageNrNext, Category: PaginationDriven, Resolve: func(c *Context) string {
			if _, ok := c.Pages.current(); !ok || c.Pages.Index+1 >= len(c.Pages.Names) {
				return ""
			}
			return strconv.Itoa(c.Pages.Index + 2)
		}},
		{Name: PageNrNextNoDash, Category: PaginationDriven, Resolve: func(c *Context) string {
			if _, ok := c.Pages.current(); !ok || !c.Pages.hasVisibleAfter() {
				return ""
			}
			return strconv.Itoa(c.Pages.visibleCount(c.Pages.Index+1) + 1)
		}},
		{Name: PageNrPrev, Category: PaginationDriven, Resolve: func(c *Context) string {
			if _, ok := c.Pages.current(); !ok || c.Pages.Index == 0 {
				return ""
			}
			return strconv.Itoa(c.Pages.Index)
		}},
		{Name: PageNrPrevNoDash, Category: PaginationDriven, Resolve: func(c *Context) string {
			if _, ok := c.Pages.current(); !ok {
				return ""
			}
			prev := c.Pages.visibleCount(c.Pages.Index)
			if prev == 0 {
				return ""
			}
			return strconv.Itoa(prev)
		}},
	}
}

// NewDefaultRegistry returns the built-in tokens followed by the custom ones.
func NewDefaultRegistry(custom ...Token) (*Registry, error) {
	return NewRegistry(append(DefaultTokens(), custom...)...)
}
