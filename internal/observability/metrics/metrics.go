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
	adminMutations      metric.Int64Counter
	signIns             metric.Int64Counter
	authorizationDenied metric.Int64Counter
	grantsRemoved       metric.Int64Counter
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
		name = "idadmin"
	}
	meter := provider.Meter(name)

	adminMutations, err := meter.Int64Counter("idadmin_admin_mutations_total")
	if err != nil {
		return nil, err
	}
	signIns, err := meter.Int64Counter("idadmin_sign_ins_total")
	if err != nil {
		return nil, err
	}
	authorizationDenied, err := meter.Int64Counter("idadmin_authorization_denied_total")
	if err != nil {
		return nil, err
	}

	grantsRemoved, err := meter.Int64Counter("idadmin_expired_grants_removed_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		adminMutations:      adminMutations,
		signIns:             signIns,
		authorizationDenied: authorizationDenied,
		grantsRemoved:       grantsRemoved,
	}, nil
}

// RecordAdminMutation counts a console write against a resource.
func (m *Metrics) RecordAdminMutation(ctx context.Context, resource, action, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("resource", strings.TrimSpace(resource)),
		attribute.String("action", strings.TrimSpace(action)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.adminMutations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSignIn counts console sign-in attempts by outcome.
func (m *Metrics) RecordSignIn(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.signIns.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAuthorizationDenied counts forbidden policy checks.
func (m *Metrics) RecordAuthorizationDenied(ctx context.Context, policy string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("policy", strings.TrimSpace(policy)))
	m.authorizationDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordExpiredGrantsRemoved counts grants deleted by the cleanup job.
func (m *Metrics) RecordExpiredGrantsRemoved(ctx context.Context, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.grantsRemoved.Add(ctx, count)
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
	"resource":    {},
	"action":      {},
	"outcome":     {},
	"policy":      {},
	"status_code": {},
	"route":       {},
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
