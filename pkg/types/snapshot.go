package types

// FormField describes a single input element observed on a page.
type FormField struct {
	// Name is the field's name or id attribute.
	Name string `json:"name"`

	// Type is the input type ("text", "password", "email", ...).
	Type string `json:"type"`

	// Label is the visible label text, when one could be associated.
	Label string `json:"label,omitempty"`
}

// PageSnapshot is an immutable capture of page state taken after an action
// executes. It is the input to the deep risk classifier. A new action always
// produces a new snapshot; prior snapshots are never mutated.
type PageSnapshot struct {
	// URL is the page URL at capture time.
	URL string `json:"url"`

	// Title is the document title.
	Title string `json:"title,omitempty"`

	// DOMExcerpt is a bounded excerpt of the visible page text.
	DOMExcerpt string `json:"dom_excerpt,omitempty"`

	// FormFields lists the input elements found on the page.
	FormFields []FormField `json:"form_fields,omitempty"`

	// DetectedAmount is a monetary amount found on the page, as a
	// decimal string ("142.50"), empty when none was detected.
	DetectedAmount string `json:"detected_amount,omitempty"`

	// DetectedPayee is the payee associated with a detected amount.
	DetectedPayee string `json:"detected_payee,omitempty"`

	// UrgencySignals lists scare-tactic phrases found on the page
	// ("act now", "account suspended").
	UrgencySignals []string `json:"urgency_signals,omitempty"`
}

// HasPaymentSurface reports whether the snapshot shows a payment-shaped
// page: a detected amount or payment wording in the URL.
func (s *PageSnapshot) HasPaymentSurface() bool {
	if s == nil {
		return false
	}
	return s.DetectedAmount != ""
}
