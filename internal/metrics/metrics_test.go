package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T, c *Collectors) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollectorsRecordLifecycle(t *testing.T) {
	c := New()

	c.SessionOpened("7", 3)
	c.SessionOpened("7", 4)
	c.SessionClosed("7", "completed", 3)
	c.OpenRejected("stand_at_capacity")
	c.Revenue("INR", 15)
	c.Revenue("INR", 0)

	body := scrape(t, c)
	assert.Contains(t, body, `parking_sessions_opened_total{stand="7"} 2`)
	assert.Contains(t, body, `parking_sessions_closed_total{outcome="completed",stand="7"} 1`)
	assert.Contains(t, body, `parking_stand_occupancy{stand="7"} 3`)
	assert.Contains(t, body, `parking_session_open_rejected_total{reason="stand_at_capacity"} 1`)
	assert.Contains(t, body, `parking_revenue_total{currency="INR"} 15`)
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.SessionOpened("1", 1)
		c.SessionClosed("1", "cancelled", 0)
		c.OpenRejected("x")
		c.Occupancy("1", 0)
		c.Revenue("USD", 2)
	})
}
