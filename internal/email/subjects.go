package email

const (
	subjectPaymentReceiptFmt      = "Payment received for invoice %s"
	subjectBookingConfirmationFmt = "Your inspection booking %s is confirmed"
)
