package listview

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdprdesk/internal/domain/gdpr"
)

var now = time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)

func fixtures() []gdpr.Request {
	return []gdpr.Request{
		{ID: 1, RequestType: gdpr.TypeAccess, Status: gdpr.StatusPending, RequestContent: "Send me \"all\" my data", CompanyID: 1,
			CreatedAt: now.Add(-2 * time.Hour), User: gdpr.UserRef{ID: 10, Firstname: "Ada", Lastname: "Lovelace", Email: "ada@example.com"},
			Company: gdpr.CompanyRef{ID: 1, Name: "Google LLC"}},
		{ID: 2, RequestType: gdpr.TypeDeletion, Status: gdpr.StatusProcessed, RequestContent: "erase\neverything", CompanyID: 2,
			CreatedAt: now.AddDate(0, 0, -20), UserID: 11},
		{ID: 3, RequestType: "DATA_ACCESS", Status: "REFUSE", RequestContent: "old", CompanyID: 1,
			CreatedAt: now.AddDate(0, -6, 0), User: gdpr.UserRef{ID: 12, Firstname: "Bob", Email: "bob@acme.test"}},
	}
}

func ids(list []gdpr.Request) []int64 {
	out := make([]int64, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func TestFilterByStatus(t *testing.T) {
	got := Filter(fixtures(), Criteria{Status: "PENDING", Now: now})
	assert.Equal(t, []int64{1}, ids(got))

	got = Filter(fixtures(), Criteria{Status: "rejected", Now: now})
	assert.Equal(t, []int64{3}, ids(got))

	got = Filter(fixtures(), Criteria{Status: "all", Now: now})
	assert.Equal(t, []int64{1, 2, 3}, ids(got))
}

func TestFilterUnknownCriteriaMatchNothing(t *testing.T) {
	assert.Empty(t, Filter(fixtures(), Criteria{Status: "BOGUS", Now: now}))
	assert.Empty(t, Filter(fixtures(), Criteria{Type: "BOGUS", Now: now}))
}

func TestFilterCombined(t *testing.T) {
	tests := []struct {
		name string
		c    Criteria
		want []int64
	}{
		{name: "no criteria", c: Criteria{}, want: []int64{1, 2, 3}},
		{name: "legacy type", c: Criteria{Type: "ACCESS"}, want: []int64{1, 3}},
		{name: "company", c: Criteria{CompanyID: 2}, want: []int64{2}},
		{name: "today", c: Criteria{Range: RangeToday}, want: []int64{1}},
		{name: "month", c: Criteria{Range: RangeMonth}, want: []int64{1, 2}},
		{name: "year", c: Criteria{Range: RangeYear}, want: []int64{1, 2, 3}},
		{name: "search email", c: Criteria{Search: "ACME"}, want: []int64{3}},
		{name: "search company", c: Criteria{Search: "google"}, want: []int64{1}},
		{name: "search fallback user name", c: Criteria{Search: "user #11"}, want: []int64{2}},
		{name: "search id", c: Criteria{Search: "2"}, want: []int64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.c.Now = now
			assert.Equal(t, tt.want, ids(Filter(fixtures(), tt.c)))
		})
	}
}

func TestParseDateRange(t *testing.T) {
	r, ok := ParseDateRange(" Week ")
	assert.True(t, ok)
	assert.Equal(t, RangeWeek, r)
	r, ok = ParseDateRange("")
	assert.True(t, ok)
	assert.Equal(t, RangeAll, r)
	_, ok = ParseDateRange("decade")
	assert.False(t, ok)
}

func TestSort(t *testing.T) {
	list := fixtures()
	assert.Equal(t, []int64{3, 2, 1}, ids(Sort(list, SortID, true)))
	assert.Equal(t, []int64{3, 2, 1}, ids(Sort(list, SortCreatedAt, false)))
	assert.Equal(t, []int64{1, 3, 2}, ids(Sort(list, SortUser, false)))
	assert.Equal(t, []int64{1, 2, 3}, ids(list), "input must not be reordered")
}

func TestSummarize(t *testing.T) {
	s := Summarize(fixtures())
	assert.Equal(t, Stats{Total: 3, Pending: 1, Processed: 1, Rejected: 1}, s)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, fixtures()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID,User,Email,Type,Status,Company,Created Date,Content", lines[0])
	assert.Contains(t, lines[1], `"Send me ""all"" my data"`)
	assert.Contains(t, lines[2], "erase everything")
	assert.Contains(t, lines[2], "User #11")
	assert.Contains(t, lines[3], "Data Access,Rejected")

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, `Send me "all" my data`, records[1][7])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "ID,User,Email,Type,Status,Company,Created Date,Content\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteRequestJSON(&buf, fixtures()[0]))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "Ada Lovelace", doc["user"])
	assert.Equal(t, "ACCESS", doc["type"])
	assert.Contains(t, buf.String(), "\n  \"id\": 1,")
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "gdpr-requests-2024-05-15.csv", FileName(FormatCSV, now))
	assert.Equal(t, "gdpr-requests-2024-05-15.pdf", FileName(FormatPDF, now))
	assert.Equal(t, "request-42.json", RequestFileName(42))
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, fixtures(), now))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	req := fixtures()[0]
	req.RequestContent = strings.Repeat("Données personnelles. ", 80)
	require.NoError(t, WriteReceiptPDF(&buf, req, now))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
