package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/MrEthical07/authflow"
	otelexport "github.com/MrEthical07/authflow/metrics/export/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collectOTel reads the controller counters once through the OpenTelemetry
// exporter and returns the int64 sums by instrument name.
func collectOTel(ctx context.Context, c *authflow.Controller) (map[string]int64, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(ctx)

	exp, err := otelexport.NewOTelExporter(provider.Meter("authflow-loadtest"), c)
	if err != nil {
		return nil, err
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && len(sum.DataPoints) > 0 {
				sums[m.Name] = sum.DataPoints[0].Value
			}
		}
	}
	return sums, nil
}

func printSums(w io.Writer, sums map[string]int64) {
	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s %d\n", name, sums[name])
	}
}
