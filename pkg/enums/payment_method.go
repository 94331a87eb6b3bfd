package enums

// PaymentMethod records the buyer's selection. No payment is processed.
type PaymentMethod string

const (
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodCOD        PaymentMethod = "cod"
	PaymentMethodNetBanking PaymentMethod = "netbanking"
)

var paymentMethods = []PaymentMethod{PaymentMethodCard, PaymentMethodUPI, PaymentMethodCOD, PaymentMethodNetBanking}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return member(p, paymentMethods) }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse("payment method", value, paymentMethods)
}
