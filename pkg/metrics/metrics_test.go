package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/ardnew/nspire/pkg"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveOperation(t *testing.T) {
	c, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c.ObserveOperation("info", time.Millisecond, nil)
	c.ObserveOperation("info", time.Millisecond, nil)
	c.ObserveOperation("list_dir", time.Millisecond, pkg.NewError(pkg.KindNotExist, "list_dir", nil))

	if got := counterValue(t, c.operations.WithLabelValues("info", "ok")); got != 2 {
		t.Errorf("info ok = %v, want 2", got)
	}
	if got := counterValue(t, c.operations.WithLabelValues("list_dir", "not-exist")); got != 1 {
		t.Errorf("list_dir not-exist = %v, want 1", got)
	}
}

func TestAddTransferBytes(t *testing.T) {
	c, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c.AddTransferBytes(DirectionRead, 100)
	c.AddTransferBytes(DirectionRead, 0)
	c.AddTransferBytes(DirectionRead, -5)
	c.AddTransferBytes(DirectionRead, 28)

	if got := counterValue(t, c.transferBytes.WithLabelValues(DirectionRead)); got != 128 {
		t.Errorf("read bytes = %v, want 128", got)
	}
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Error("second New() on the same registry succeeded")
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	// None of these may panic.
	c.ObserveOperation("info", time.Second, nil)
	c.AddTransferBytes(DirectionWrite, 10)
	c.HandleOpened()
	c.HandleClosed()
}
