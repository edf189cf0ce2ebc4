package enum

// ── State machines (CHECK constrained in DB) ──

const (
	TableStatusAvailable = "AVAILABLE"
	TableStatusOccupied  = "OCCUPIED"
	TableStatusReserved  = "RESERVED"
	TableStatusCleaning  = "CLEANING"
)

const (
	OrderStatusOpen      = "OPEN"
	OrderStatusClosed    = "CLOSED"
	OrderStatusCancelled = "CANCELLED"
)

// Per-station item status. Only the column matching the item's resolved
// station is meaningful; transitions are forward-only.
const (
	StationStatusPending    = "PENDING"
	StationStatusInProgress = "IN_PROGRESS"
	StationStatusReady      = "READY"
	StationStatusArchived   = "ARCHIVED"
)

// ── Routing ──

const (
	StationKitchen = "KITCHEN"
	StationBar     = "BAR"
)

// ── Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
)

const (
	WaiterRoleWaiter  = "WAITER"
	WaiterRoleManager = "MANAGER"
)
