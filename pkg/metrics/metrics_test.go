package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRecordOutcomes(t *testing.T) {
	m := New()
	m.ObserveReplay("completed", 2*time.Second)
	m.ObserveReplay("interrupted", time.Second)
	m.ObserveReplay("interrupted", time.Second)
	m.ObservePostponement("pointer moved")
	m.ObserveAlarm(nil)
	m.ObserveAlarm(errors.New("no speaker"))
	m.ObserveRecording("push", 42)

	if got := testutil.ToFloat64(m.replays.WithLabelValues("interrupted")); got != 2 {
		t.Fatalf("expected 2 interrupted replays, got %v", got)
	}
	if got := testutil.ToFloat64(m.interference); got != 2 {
		t.Fatalf("expected interference counter 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.alarms.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected one failed alarm, got %v", got)
	}
	if got := testutil.ToFloat64(m.recordedEvents.WithLabelValues("push")); got != 42 {
		t.Fatalf("expected 42 recorded events, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveReplay("completed", time.Second)
	m.ObservePostponement("x")
	m.ObserveAlarm(nil)
	m.ObserveRecording("poll", 1)
	if m.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveReplay("completed", time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `replayer_replays_total{outcome="completed"} 1`) {
		t.Fatalf("expected replay counter in exposition, got:\n%s", body)
	}
}
