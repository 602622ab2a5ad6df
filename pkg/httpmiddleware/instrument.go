package httpmiddleware

import (
	"net/http"
	"strconv"

	sdkapp "github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument returns a middleware that wraps the handler with otelhttp
// tracing and records a per-request counter on the OTEL meter.
func Instrument(service string, m *sdkapp.Telemetry) Middleware {
	meter := m.MeterProvider().Meter(service)
	requests, err := meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Number of HTTP requests handled"),
	)
	if err != nil {
		requests = nil
	}

	return func(next http.Handler) http.Handler {
		counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if requests != nil {
				requests.Add(r.Context(), 1, metric.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("http.response.status_code", strconv.Itoa(rec.status)),
				))
			}
		})

		return otelhttp.NewHandler(counted, service,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		)
	}
}
