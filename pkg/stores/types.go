package stores

import (
	"context"
	"time"
)

// Backend identifies one of the two persistence implementations.
type Backend string

const (
	BackendXML Backend = "xml"
	BackendSQL Backend = "sql"
)

// String implements fmt.Stringer.
func (b Backend) String() string {
	return string(b)
}

// Sentinel filter values meaning "do not filter on this field".
const (
	AllTypes        = "Todos los tipos"
	AllDistributors = "Todos los distribuidores"
)

// TimestampLayout is the textual form of Order.Timestamp in the XML document.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the date-only form used when deleting by name and date.
const DateLayout = "2006-01-02"

// BranchSeparator joins branches into the single relational column.
const BranchSeparator = ", "

// KnownTypes are the pharmacological categories an order may carry.
var KnownTypes = []string{
	"analgésico",
	"analéptico",
	"anestésico",
	"antiácido",
	"antidepresivo",
	"antibiótico",
}

// KnownDistributors are the distributors an order may be placed with.
var KnownDistributors = []string{
	"Cofarma",
	"Empsephar",
	"Cemefar",
}

// KnownBranches are the pharmacy locations offered by default.
var KnownBranches = []string{
	"Principal",
	"Secundaria",
}

// Order is one medication order.
type Order struct {
	ID          int64     `json:"id,omitempty"` // relational backend only
	Name        string    `json:"name" validate:"required,max=255,alphanumspace"`
	Type        string    `json:"type" validate:"required,medtype"`
	Quantity    int       `json:"quantity" validate:"gt=0"`
	Distributor string    `json:"distributor" validate:"required,distributor"`
	Branches    []string  `json:"branches" validate:"min=1,unique,dive,required,max=100,excludes=0x2C"`
	Timestamp   time.Time `json:"timestamp"`
}

// FormattedTimestamp renders the timestamp the way the XML document stores it.
func (o *Order) FormattedTimestamp() string {
	return o.Timestamp.Format(TimestampLayout)
}

// Filter restricts a listing to a type and/or distributor.
// Empty fields and the All* sentinels disable the corresponding predicate.
type Filter struct {
	Type        string
	Distributor string
}

func (f Filter) byType() bool {
	return f.Type != "" && f.Type != AllTypes
}

func (f Filter) byDistributor() bool {
	return f.Distributor != "" && f.Distributor != AllDistributors
}

// Store is the operation set shared by both backends.
type Store interface {
	// Backend reports which implementation this is.
	Backend() Backend

	// Add persists a new order and assigns its timestamp.
	Add(ctx context.Context, order *Order) error

	// List returns every stored order.
	List(ctx context.Context) ([]*Order, error)

	// ListFiltered returns the orders matching the filter.
	ListFiltered(ctx context.Context, filter Filter) ([]*Order, error)

	// SearchByName returns the orders whose name contains pattern.
	SearchByName(ctx context.Context, pattern string) ([]*Order, error)

	// Count returns the number of stored orders.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// Observer receives the outcome of store operations. telemetry.Metrics
// implements it; a nil Observer is allowed everywhere.
type Observer interface {
	ObserveOperation(backend Backend, operation string, duration time.Duration, err error)
	ObserveConnectAttempt(backend Backend, err error)
}
