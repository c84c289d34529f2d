package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	invoicesIssued    metric.Int64Counter
	invoicesRouted    metric.Int64Counter
	paymentsRecorded  metric.Int64Counter
	duplicateWarnings metric.Int64Counter
	commissionEvents  metric.Int64Counter
	marginSnapshots   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "tradesettle"
	}
	meter := provider.Meter(name)

	invoicesIssued, err := meter.Int64Counter("tradesettle_invoices_issued_total")
	if err != nil {
		return nil, err
	}
	invoicesRouted, err := meter.Int64Counter("tradesettle_invoice_routed_total")
	if err != nil {
		return nil, err
	}
	paymentsRecorded, err := meter.Int64Counter("tradesettle_payments_recorded_total")
	if err != nil {
		return nil, err
	}
	duplicateWarnings, err := meter.Int64Counter("tradesettle_payment_duplicate_warnings_total")
	if err != nil {
		return nil, err
	}
	commissionEvents, err := meter.Int64Counter("tradesettle_commission_events_total")
	if err != nil {
		return nil, err
	}
	marginSnapshots, err := meter.Int64Counter("tradesettle_margin_snapshots_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		invoicesIssued:    invoicesIssued,
		invoicesRouted:    invoicesRouted,
		paymentsRecorded:  paymentsRecorded,
		duplicateWarnings: duplicateWarnings,
		commissionEvents:  commissionEvents,
		marginSnapshots:   marginSnapshots,
	}, nil
}

// RecordInvoiceIssued increments issued invoice counts.
func (m *Metrics) RecordInvoiceIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.invoicesIssued.Add(ctx, 1)
}

// RecordInvoiceRouted increments blocked issuance counts by routing outcome.
func (m *Metrics) RecordInvoiceRouted(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.invoicesRouted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPayment increments recorded payment counts.
func (m *Metrics) RecordPayment(ctx context.Context, duplicateSuspected bool) {
	if m == nil {
		return
	}
	m.paymentsRecorded.Add(ctx, 1)
	if duplicateSuspected {
		m.duplicateWarnings.Add(ctx, 1)
	}
}

// RecordCommissionEvents adds newly created commission events.
func (m *Metrics) RecordCommissionEvents(ctx context.Context, created int, latePosted bool) {
	if m == nil || created <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.Bool("late_posted", latePosted))
	m.commissionEvents.Add(ctx, int64(created), metric.WithAttributes(attrs...))
}

// RecordMarginSnapshot increments snapshot counts; created is false when an
// existing snapshot was returned.
func (m *Metrics) RecordMarginSnapshot(ctx context.Context, created bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.Bool("created", created))
	m.marginSnapshots.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"method":      {},
	"status_code": {},
	"outcome":     {},
	"late_posted": {},
	"created":     {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
