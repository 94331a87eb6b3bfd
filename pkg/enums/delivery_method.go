package enums

import "strings"

// DeliveryMethod selects how an order ships. Express carries a flat surcharge.
type DeliveryMethod string

const (
	DeliveryStandard DeliveryMethod = "standard"
	DeliveryExpress  DeliveryMethod = "express"
)

var deliveryMethods = []DeliveryMethod{DeliveryStandard, DeliveryExpress}

func (d DeliveryMethod) String() string { return string(d) }

func (d DeliveryMethod) IsValid() bool { return member(d, deliveryMethods) }

// ParseDeliveryMethod treats blank input as standard delivery.
func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	if strings.TrimSpace(value) == "" {
		return DeliveryStandard, nil
	}
	return parse("delivery method", value, deliveryMethods)
}
