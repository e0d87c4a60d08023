package enums

// OutboxEventType identifies the domain event carried by an outbox row.
type OutboxEventType string

const (
	EventProductListed OutboxEventType = "product.listed"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateProduct OutboxAggregateType = "product"
)
