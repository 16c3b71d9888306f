package orders

import "context"

type Filter struct {
	BuyerID  string
	SellerID string
	Kind     Kind
	Status   Status
	Page     int
	Limit    int
}

// Normalize clamps paging to sane defaults (page 1, limit 10, max 100).
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}

func (f Filter) Offset() int { return (f.Page - 1) * f.Limit }

// Store persists orders. Update is optimistic: it succeeds only when
// o.Version matches the stored version and then increments o.Version.
type Store interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	List(ctx context.Context, f Filter) ([]*Order, int, error)
}
