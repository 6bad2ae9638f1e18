package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Handler(t *testing.T) {
	m := New("cms_auth")
	m.RPCTotal.WithLabelValues("/cms.auth.v1.AuthService/Login", "OK").Inc()
	m.PurgedRows.WithLabelValues("otps").Add(3)

	if got := testutil.ToFloat64(m.PurgedRows.WithLabelValues("otps")); got != 3 {
		t.Fatalf("purged=%v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `cms_auth_rpc_requests_total{code="OK",method="/cms.auth.v1.AuthService/Login"} 1`) {
		t.Fatalf("metric missing from scrape:\n%s", body)
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	// two instances must not collide on registration
	_ = New("a")
	_ = New("a")
}
