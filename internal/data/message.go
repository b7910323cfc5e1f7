package data

// Kind tags what a message is about. It ends up in the attempt log and in the
// relay endpoint template.
type Kind string

const (
	KindCustomerConfirmation Kind = "customer_confirmation"
	KindAdminNotification    Kind = "admin_notification"
	KindStatusUpdate         Kind = "status_update"
	KindAlert                Kind = "alert"
)

func (k Kind) Valid() bool {
	switch k {
	case KindCustomerConfirmation, KindAdminNotification, KindStatusUpdate, KindAlert:
		return true
	}
	return false
}

// Message is one outbound email, independent of the tier that delivers it.
type Message struct {
	Kind    Kind   `json:"type"`
	To      string `json:"to"`
	ReplyTo string `json:"reply_to,omitempty"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
	OrderID string `json:"order_id,omitempty"`
}
