package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/modbay/storefront/internal/order/domain"
)

var tracer = otel.Tracer("order-repository")

// GormOrderRepositoryWithTracing wraps GormOrderRepository with tracing
// spans around the operations that matter for the payment path.
type GormOrderRepositoryWithTracing struct {
	*GormOrderRepository
}

// NewGormOrderRepositoryWithTracing creates a new repository with tracing.
func NewGormOrderRepositoryWithTracing(db *gorm.DB) *GormOrderRepositoryWithTracing {
	return &GormOrderRepositoryWithTracing{
		GormOrderRepository: NewGormOrderRepository(db),
	}
}

func (r *GormOrderRepositoryWithTracing) FindByPaymentExternalID(ctx context.Context, externalID string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "repository.FindByPaymentExternalID",
		trace.WithAttributes(
			attribute.String("order.payment_external_id", externalID),
		),
	)
	defer span.End()

	order, err := r.GormOrderRepository.FindByPaymentExternalID(ctx, externalID)
	if err != nil {
		if err != domain.ErrOrderNotFound {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("order.id", int(order.ID)),
		attribute.String("order.status", order.Status),
	)
	return order, nil
}

func (r *GormOrderRepositoryWithTracing) Materialize(ctx context.Context, params domain.MaterializeParams) (bool, *domain.Order, error) {
	ctx, span := tracer.Start(ctx, "repository.Materialize",
		trace.WithAttributes(
			attribute.String("order.payment_external_id", params.PaymentExternalID),
			attribute.Int64("order.platform_fee", params.PlatformFee),
			attribute.Int64("order.seller_amount", params.SellerAmount),
		),
	)
	defer span.End()

	won, order, err := r.GormOrderRepository.Materialize(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, nil, err
	}

	span.SetAttributes(attribute.Bool("order.materialize_won", won))
	if order != nil {
		span.SetAttributes(attribute.Int("order.id", int(order.ID)))
	}
	return won, order, nil
}
