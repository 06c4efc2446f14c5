package handlers

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"
)

var (
	checkinValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventcheckin",
			Name:      "api_key_validations_total",
			Help:      "Check-in API key validations by outcome (global, event, rejected, error).",
		},
		[]string{"outcome"},
	)
	ticketsAdded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventcheckin",
			Name:      "tickets_added_total",
			Help:      "Tickets added to events, by provider.",
		},
		[]string{"provider"},
	)
)

// InitPrometheusMetrics registers the handler metrics with reg.
func InitPrometheusMetrics(reg prometheus.Registerer) {
	reg.MustRegister(checkinValidations, ticketsAdded)
}

// MetricsHandler writes every metric family from g in the Prometheus text format.
func MetricsHandler(g prometheus.Gatherer) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		metricFamilies, err := g.Gather()
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to gather metrics")
			return
		}

		var buf bytes.Buffer
		if err := encodeMetrics(&buf, metricFamilies); err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to encode metrics")
			return
		}

		ctx.SetContentType(string(expfmt.FmtText))
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}

func encodeMetrics(buf *bytes.Buffer, families []*dto.MetricFamily) error {
	encoder := expfmt.NewEncoder(buf, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
