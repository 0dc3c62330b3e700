package domain

import "context"

// OrderGateway is the outbound half of the host execution environment. The
// engine submits requests and learns the outcome later through fill and
// order-status callbacks.
type OrderGateway interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (string, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// AuditRepository defines storage operations for the persistent audit trail.
type AuditRepository interface {
	SaveCycle(ctx context.Context, rec *CycleRecord) error
	ListCycles(ctx context.Context, limit int) ([]*CycleRecord, error)
	ListEvents(ctx context.Context, limit int) ([]*AuditEvent, error)
}
