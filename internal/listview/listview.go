// Package listview filters, sorts, summarises and exports request lists the
// way the request manager screens present them.
package listview

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"gdprdesk/internal/domain/gdpr"
)

type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
	RangeYear  DateRange = "year"
)

func ParseDateRange(raw string) (DateRange, bool) {
	switch r := DateRange(strings.ToLower(strings.TrimSpace(raw))); r {
	case "", RangeAll:
		return RangeAll, true
	case RangeToday, RangeWeek, RangeMonth, RangeYear:
		return r, true
	}
	return "", false
}

// Start is the earliest createdAt the range keeps. ok is false for RangeAll.
func (r DateRange) Start(now time.Time) (time.Time, bool) {
	switch r {
	case RangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case RangeWeek:
		return now.AddDate(0, 0, -7), true
	case RangeMonth:
		return now.AddDate(0, -1, 0), true
	case RangeYear:
		return now.AddDate(-1, 0, 0), true
	}
	return time.Time{}, false
}

const anyValue = "all"

// Criteria zero values mean "any". Status and Type accept legacy spellings.
type Criteria struct {
	Status    string
	Type      string
	CompanyID int64
	Range     DateRange
	Search    string
	Now       time.Time
}

func Filter(list []gdpr.Request, c Criteria) []gdpr.Request {
	now := c.Now
	if now.IsZero() {
		now = time.Now()
	}
	start, filterDate := c.Range.Start(now)
	term := strings.ToLower(strings.TrimSpace(c.Search))

	out := make([]gdpr.Request, 0, len(list))
	for _, req := range list {
		if !statusMatches(req.Status, c.Status) {
			continue
		}
		if !typeMatches(req.RequestType, c.Type) {
			continue
		}
		if c.CompanyID != 0 && req.CompanyID != c.CompanyID {
			continue
		}
		if filterDate && req.CreatedAt.Before(start) {
			continue
		}
		if term != "" && !Matches(req, term) {
			continue
		}
		out = append(out, req)
	}
	return out
}

// Matches is the free-text predicate: a case-insensitive substring match on
// id, content, type, status, requester name and email, and company name.
func Matches(req gdpr.Request, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	fields := []string{
		strconv.FormatInt(req.ID, 10),
		req.RequestContent,
		string(req.RequestType),
		string(req.Status),
		UserName(req),
		req.User.Email,
		CompanyName(req),
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

type SortKey string

const (
	SortID        SortKey = "id"
	SortCreatedAt SortKey = "createdAt"
	SortStatus    SortKey = "status"
	SortType      SortKey = "type"
	SortUser      SortKey = "user"
	SortCompany   SortKey = "company"
)

// Sort returns a sorted copy. Unknown keys sort by id. Ties keep input order.
func Sort(list []gdpr.Request, key SortKey, desc bool) []gdpr.Request {
	out := append([]gdpr.Request(nil), list...)
	less := func(a, b gdpr.Request) bool { return a.ID < b.ID }
	switch key {
	case SortCreatedAt:
		less = func(a, b gdpr.Request) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortStatus:
		less = func(a, b gdpr.Request) bool { return a.Status < b.Status }
	case SortType:
		less = func(a, b gdpr.Request) bool { return a.RequestType < b.RequestType }
	case SortUser:
		less = func(a, b gdpr.Request) bool { return strings.ToLower(UserName(a)) < strings.ToLower(UserName(b)) }
	case SortCompany:
		less = func(a, b gdpr.Request) bool { return strings.ToLower(CompanyName(a)) < strings.ToLower(CompanyName(b)) }
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Processed  int `json:"processed"`
	Rejected   int `json:"rejected"`
}

func Summarize(list []gdpr.Request) Stats {
	s := Stats{Total: len(list)}
	for _, req := range list {
		switch normalizedStatus(req.Status) {
		case gdpr.StatusPending:
			s.Pending++
		case gdpr.StatusInProgress:
			s.InProgress++
		case gdpr.StatusProcessed:
			s.Processed++
		case gdpr.StatusRejected:
			s.Rejected++
		}
	}
	return s
}

func UserName(req gdpr.Request) string {
	if req.User.ID == 0 && req.User.Firstname == "" && req.User.Lastname == "" {
		return "User #" + strconv.FormatInt(req.UserID, 10)
	}
	name := strings.TrimSpace(req.User.Firstname + " " + req.User.Lastname)
	if name == "" {
		return "Unknown User"
	}
	return name
}

func CompanyName(req gdpr.Request) string {
	if name := strings.TrimSpace(req.Company.Name); name != "" {
		return name
	}
	return "Company #" + strconv.FormatInt(req.CompanyID, 10)
}

// statusMatches treats a blank or "all" criterion as any. A criterion that
// is not a known status still filters, on the raw value.
func statusMatches(s gdpr.Status, raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, anyValue) {
		return true
	}
	if want, ok := gdpr.ParseStatus(raw); ok {
		return normalizedStatus(s) == want
	}
	return string(s) == raw
}

func typeMatches(t gdpr.RequestType, raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, anyValue) {
		return true
	}
	if want, ok := gdpr.ParseRequestType(raw); ok {
		return normalizedType(t) == want
	}
	return string(t) == raw
}

func normalizedStatus(s gdpr.Status) gdpr.Status {
	if parsed, ok := gdpr.ParseStatus(string(s)); ok {
		return parsed
	}
	return s
}

func normalizedType(t gdpr.RequestType) gdpr.RequestType {
	if parsed, ok := gdpr.ParseRequestType(string(t)); ok {
		return parsed
	}
	return t
}
