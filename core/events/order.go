package events

const (
	// KindOrderAddRequested identifies a request to add items to the order.
	KindOrderAddRequested Kind = "order.add_requested"
	// KindOrderConfirmRequested identifies a request to confirm the order.
	KindOrderConfirmRequested Kind = "order.confirm_requested"
	// KindOrderRemoveRequested identifies a request to remove an item.
	KindOrderRemoveRequested Kind = "order.remove_requested"
)

// OrderItem is one requested menu item. Quantity is always at least 1.
type OrderItem struct {
	Name      string
	Quantity  int
	Modifiers []string
}

// ConfirmAction is the requested order confirmation action.
type ConfirmAction string

const (
	ConfirmActionCheckout ConfirmAction = "checkout"
	ConfirmActionReview   ConfirmAction = "review"
	ConfirmActionCancel   ConfirmAction = "cancel"
)

// OrderAddRequested carries items the assistant asked to add.
type OrderAddRequested struct {
	Base
	Items []OrderItem
}

// NewOrderAddRequested creates an order add event.
func NewOrderAddRequested(items []OrderItem) OrderAddRequested {
	return OrderAddRequested{Base: NewBase(KindOrderAddRequested), Items: items}
}

// OrderConfirmRequested carries the requested confirmation action.
type OrderConfirmRequested struct {
	Base
	Action ConfirmAction
}

// NewOrderConfirmRequested creates an order confirm event.
func NewOrderConfirmRequested(action ConfirmAction) OrderConfirmRequested {
	return OrderConfirmRequested{Base: NewBase(KindOrderConfirmRequested), Action: action}
}

// OrderRemoveRequested carries the item the assistant asked to remove.
type OrderRemoveRequested struct {
	Base
	ItemName string
	Quantity int
}

// NewOrderRemoveRequested creates an order remove event.
func NewOrderRemoveRequested(itemName string, quantity int) OrderRemoveRequested {
	return OrderRemoveRequested{Base: NewBase(KindOrderRemoveRequested), ItemName: itemName, Quantity: quantity}
}
