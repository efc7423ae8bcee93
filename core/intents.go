package orchestration

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/voiceorder/realtime-core/core/events"
	"github.com/voiceorder/realtime-core/core/realtime"
)

// Intent names the peer may call back with. Their argument schemas are
// advertised as tools in the session configuration.
const (
	intentAddToOrder      = "add_to_order"
	intentConfirmOrder    = "confirm_order"
	intentRemoveFromOrder = "remove_from_order"
)

type orderItemArgs struct {
	Name      string   `json:"name" jsonschema:"required,description=Menu item name"`
	Quantity  int      `json:"quantity,omitempty" jsonschema:"description=How many to add; defaults to 1"`
	Modifiers []string `json:"modifiers,omitempty" jsonschema:"description=Preparation modifiers"`
}

type addToOrderArgs struct {
	Items []orderItemArgs `json:"items" jsonschema:"required,description=Items to add to the order"`
}

type confirmOrderArgs struct {
	Action string `json:"action" jsonschema:"required,enum=checkout,enum=review,enum=cancel,description=What to do with the order"`
}

type removeFromOrderArgs struct {
	ItemName string `json:"itemName" jsonschema:"required,description=Name of the item to remove"`
	Quantity int    `json:"quantity,omitempty" jsonschema:"description=How many to remove; defaults to all"`
}

// parseIntent turns accumulated function-call arguments into a typed order
// event. Malformed JSON and unknown intents come back as errors for the
// caller to log; they never propagate further.
func parseIntent(name, arguments string) (events.Event, error) {
	switch name {
	case intentAddToOrder:
		var args addToOrderArgs
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return nil, fmt.Errorf("malformed %s arguments: %w", name, err)
		}

		items := make([]events.OrderItem, 0, len(args.Items))
		for _, item := range args.Items {
			if item.Name == "" {
				logger.Warn("dropping order item without a name", "intent", name)
				continue
			}
			quantity := item.Quantity
			if quantity <= 0 {
				quantity = 1
			}
			items = append(items, events.OrderItem{
				Name:      item.Name,
				Quantity:  quantity,
				Modifiers: item.Modifiers,
			})
		}
		return events.NewOrderAddRequested(items), nil

	case intentConfirmOrder:
		var args confirmOrderArgs
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return nil, fmt.Errorf("malformed %s arguments: %w", name, err)
		}
		action := events.ConfirmAction(args.Action)
		switch action {
		case events.ConfirmActionCheckout, events.ConfirmActionReview, events.ConfirmActionCancel:
		default:
			return nil, fmt.Errorf("unknown confirm action %q", args.Action)
		}
		return events.NewOrderConfirmRequested(action), nil

	case intentRemoveFromOrder:
		var args removeFromOrderArgs
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return nil, fmt.Errorf("malformed %s arguments: %w", name, err)
		}
		if args.ItemName == "" {
			return nil, fmt.Errorf("%s is missing itemName", name)
		}
		return events.NewOrderRemoveRequested(args.ItemName, args.Quantity), nil

	default:
		return nil, fmt.Errorf("unknown intent %q", name)
	}
}

// intentTools reflects the intent argument schemas into tool definitions for
// the session.update payload.
func intentTools() []realtime.Tool {
	reflector := jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}

	return []realtime.Tool{
		{
			Type:        "function",
			Name:        intentAddToOrder,
			Description: "Add one or more menu items to the customer's order",
			Parameters:  reflector.Reflect(&addToOrderArgs{}),
		},
		{
			Type:        "function",
			Name:        intentConfirmOrder,
			Description: "Confirm, review, or cancel the customer's order",
			Parameters:  reflector.Reflect(&confirmOrderArgs{}),
		},
		{
			Type:        "function",
			Name:        intentRemoveFromOrder,
			Description: "Remove an item from the customer's order",
			Parameters:  reflector.Reflect(&removeFromOrderArgs{}),
		},
	}
}
