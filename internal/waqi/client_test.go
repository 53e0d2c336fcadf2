package waqi

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daffaahh/HowsTheAir-be/internal/aqi"
)

func newTestClient() *Client {
	c := New("https://api.waqi.info", "test-token", 5*time.Second)
	httpmock.ActivateNonDefault(c.httpClient)
	return c
}

func TestFeedOK(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://api.waqi.info/feed/chongqing/",
		httpmock.NewStringResponder(200, `{
			"status": "ok",
			"data": {
				"aqi": 160,
				"time": {"iso": "2024-01-01T10:00:00Z", "v": 1704103200},
				"city": {"name": "Chongqing", "geo": [29.5628, 106.5528]}
			}
		}`))

	reading, err := c.Feed(context.Background(), "chongqing")
	require.NoError(t, err)
	assert.Equal(t, 160, reading.AQI)
	assert.Equal(t, aqi.CategoryUnhealthy, reading.Category)
	assert.Equal(t, "Chongqing", reading.StationName)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), reading.RecordedAt)

	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, info["GET https://api.waqi.info/feed/chongqing/"])
}

func TestFeedByUID(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://api.waqi.info/feed/@1453/",
		httpmock.NewStringResponder(200, `{
			"status": "ok",
			"data": {
				"aqi": 42,
				"time": {"iso": "2024-01-01T10:00:00Z"},
				"city": {"name": "Chongqing (重庆)"}
			}
		}`))

	reading, err := c.Feed(context.Background(), "@1453")
	require.NoError(t, err)
	assert.Equal(t, 42, reading.AQI)
	assert.Equal(t, aqi.CategoryGood, reading.Category)
}

func TestFeedEpochFallback(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://api.waqi.info/feed/beijing/",
		httpmock.NewStringResponder(200, `{
			"status": "ok",
			"data": {
				"aqi": 75,
				"time": {"iso": "not-a-timestamp", "v": 1704103200},
				"city": {"name": "Beijing"}
			}
		}`))

	reading, err := c.Feed(context.Background(), "beijing")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1704103200, 0).UTC(), reading.RecordedAt)
}

func TestFeedRejected(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://api.waqi.info/feed/nonsense/",
		httpmock.NewStringResponder(200, `{"status": "error", "data": "Unknown station"}`))

	_, err := c.Feed(context.Background(), "nonsense")
	require.ErrorIs(t, err, ErrRejected)
}

func TestFeedNonNumericAQI(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://api.waqi.info/feed/quiet/",
		httpmock.NewStringResponder(200, `{
			"status": "ok",
			"data": {"aqi": "-", "time": {"iso": "2024-01-01T10:00:00Z"}, "city": {"name": "Quiet"}}
		}`))

	_, err := c.Feed(context.Background(), "quiet")
	require.ErrorIs(t, err, ErrRejected)
}

func TestFeedServerError(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://api.waqi.info/feed/beijing/",
		httpmock.NewStringResponder(502, "bad gateway"))

	_, err := c.Feed(context.Background(), "beijing")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestSearch(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://api.waqi.info/search/",
		httpmock.NewStringResponder(200, `{
			"status": "ok",
			"data": [
				{"uid": 1453, "aqi": "66", "station": {"name": "Chongqing", "geo": [29.5628, 106.5528]}},
				{"uid": 1467, "aqi": "-", "station": {"name": "Jiangbei, Chongqing", "geo": [29.6, 106.57]}}
			]
		}`))

	results, err := c.Search(context.Background(), "chongqing")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1453), results[0].UID)
	assert.Equal(t, "Chongqing", results[0].Name)
	assert.Equal(t, "66", results[0].AQI)
}
