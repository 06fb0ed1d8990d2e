package booking

import (
	"fmt"
	"net/url"
	"strings"

	"ground-booking-backend/config"
	"ground-booking-backend/internal/model"
)

// PaymentMethodUPI is the only payment method bookings are taken with.
const PaymentMethodUPI = "upi"

// PaymentLink builds the UPI deep link a user pays the booking fee with. The
// payment itself is never verified.
func PaymentLink(p config.PaymentConfig, ground model.GroundType) string {
	q := []string{
		"pa=" + escape(p.UPIID),
		"pn=" + escape(p.MerchantName),
		fmt.Sprintf("am=%d.%02d", p.AmountPaise/100, p.AmountPaise%100),
		"cu=INR",
		"tn=" + escape(ground.Title()+" Booking"),
	}
	return "upi://pay?" + strings.Join(q, "&")
}

var upiEscaper = strings.NewReplacer("+", "%20", "%40", "@")

// escape percent-encodes a query value but keeps '@' readable, which UPI apps
// expect in payee addresses.
func escape(s string) string {
	return upiEscaper.Replace(url.QueryEscape(s))
}
