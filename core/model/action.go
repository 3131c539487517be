package model

// ActionKind enumerates the structured actions a classified message can
// carry. The string values double as the delegate wire format.
type ActionKind string

const (
	ActionRegisterUser      ActionKind = "REGISTER_USER"
	ActionUpdateUser        ActionKind = "UPDATE_USER"
	ActionEmptyReturn       ActionKind = "EMPTY_RETURN"
	ActionFreightRequest    ActionKind = "FREIGHT_REQUEST"
	ActionCapacityOffer     ActionKind = "CAPACITY_OFFER"
	ActionQueryAvailability ActionKind = "QUERY_AVAILABILITY"
	ActionConfirmMatch      ActionKind = "CONFIRM_MATCH"
	ActionRejectMatch       ActionKind = "REJECT_MATCH"
)

// Action is the transient result of classifying one message. It is consumed
// immediately by the conversation handler and never persisted.
type Action struct {
	Kind ActionKind `json:"action"`
	Data ActionData `json:"data"`
}

// ActionData is the superset of per-kind fields. The rule engine and the
// generative delegate fill the subset relevant to the action kind; the JSON
// tags are the delegate's fenced-block schema.
type ActionData struct {
	Name         string  `json:"name,omitempty"`
	Type         string  `json:"type,omitempty"` // "camionero" or "productor", as written by the sender
	Locality     string  `json:"locality,omitempty"`
	Origin       string  `json:"origin,omitempty"`
	Destination  string  `json:"destination,omitempty"`
	TimeEstimate string  `json:"time_estimate,omitempty"`
	Date         string  `json:"date,omitempty"`
	Cereal       string  `json:"cereal_type,omitempty"`
	Tons         float64 `json:"tons,omitempty"`
	CapacityTons float64 `json:"capacity_tn,omitempty"`
	Scope        string  `json:"query_type,omitempty"`
	Zone         string  `json:"zona,omitempty"`
}
