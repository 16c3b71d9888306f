package redisx

import "time"

const (
	// Order number sequence: seq:{namespace} -> INCR counter, never expires
	KeySequence = "seq:%s"

	// Idempotent create: idem:order:create:{buyer_id}:{key} -> "pending" while running, then JSON {status, body} of the response to replay
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Cache status order: order_status:{order_id} -> {"status": "...", "payment_status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

// IdemPending marks a create request that is still running.
const IdemPending = "pending"

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemPending = 2 * time.Minute
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
