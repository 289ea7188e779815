package prometheus

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() authflow.MetricsSnapshot
	ActivityDropped() uint64
}

// PrometheusExporter renders controller metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
	bounds []internaldefs.Bound
}

// NewPrometheusExporter creates an exporter that reads from c.
func NewPrometheusExporter(c *authflow.Controller) *PrometheusExporter {
	return NewPrometheusExporterFromSource(c)
}

// NewPrometheusExporterFromSource creates an exporter over any value with
// MetricsSnapshot and ActivityDropped methods.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source, bounds: internaldefs.Bounds()}
}

// Handler serves the current Render output.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = io.WriteString(w, p.Render())
	})
}

// Render returns the exposition text, or "" when metrics are disabled and
// nothing was dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snap := p.source.MetricsSnapshot()
	dropped := p.source.ActivityDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var buf bytes.Buffer
	buf.Grow(4096)
	for _, def := range internaldefs.Counters {
		writeCounter(&buf, def, snap.Counters[def.ID])
	}
	for _, def := range internaldefs.Histograms {
		p.writeHistogram(&buf, def, snap.Histograms[def.ID], snap.Sums[def.ID].Seconds())
	}
	writeCounter(&buf, internaldefs.ActivityDropped, dropped)
	return buf.String()
}

func writeHeader(w io.Writer, def internaldefs.Def, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", def.Name, escapeHelp(def.Help), def.Name, kind)
}

func writeCounter(w io.Writer, def internaldefs.Def, v uint64) {
	writeHeader(w, def, "counter")
	fmt.Fprintf(w, "%s %d\n", def.Name, v)
}

func (p *PrometheusExporter) writeHistogram(w io.Writer, def internaldefs.Def, raw []uint64, sum float64) {
	writeHeader(w, def, "histogram")
	cumulative := internaldefs.Cumulative(raw)
	for i, b := range p.bounds {
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", def.Name, b.Le, cumulative[i])
	}
	fmt.Fprintf(w, "%s_sum %s\n", def.Name, strconv.FormatFloat(sum, 'g', -1, 64))
	fmt.Fprintf(w, "%s_count %d\n", def.Name, cumulative[len(cumulative)-1])
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(help string) string {
	return helpEscaper.Replace(help)
}
