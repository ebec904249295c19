package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RegisterRuntimeMetrics registers observable gauges for the Go runtime
// and the WebSocket client count on the given meter. The instruments
// report through the Prometheus exporter on every scrape; there is no
// collection goroutine to manage.
//
// clientCount may be nil when no hub exists, for example in the CLIs.
func RegisterRuntimeMetrics(meter metric.Meter, clientCount func() int) error {
	start := time.Now()

	goroutines, err := meter.Int64ObservableGauge(
		"runtime_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return err
	}

	heapAlloc, err := meter.Int64ObservableGauge(
		"runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	heapSys, err := meter.Int64ObservableGauge(
		"runtime_heap_sys_bytes",
		metric.WithDescription("Heap memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	gcCount, err := meter.Int64ObservableGauge(
		"runtime_gc_count",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return err
	}

	uptime, err := meter.Float64ObservableGauge(
		"process_uptime_seconds",
		metric.WithDescription("Process uptime"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	wsClients, err := meter.Int64ObservableGauge(
		"websocket_clients",
		metric.WithDescription("Connected dashboard WebSocket clients"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)

			o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
			o.ObserveInt64(heapAlloc, int64(ms.HeapAlloc))
			o.ObserveInt64(heapSys, int64(ms.HeapSys))
			o.ObserveInt64(gcCount, int64(ms.NumGC))
			o.ObserveFloat64(uptime, time.Since(start).Seconds())
			if clientCount != nil {
				o.ObserveInt64(wsClients, int64(clientCount()))
			}
			return nil
		},
		goroutines, heapAlloc, heapSys, gcCount, uptime, wsClients,
	)
	return err
}
