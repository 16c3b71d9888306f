package orders

// Topics lists every event name published for orders; each event goes to the
// topic of the same name.
var Topics = []string{
	EventOrderCreated,
	EventPaymentVerified,
	EventStatusChanged,
	EventOrderCancelled,
}

// Partition key = order number so all events of one order keep their order.
func PartitionKey(orderNumber string) []byte { return []byte(orderNumber) }
