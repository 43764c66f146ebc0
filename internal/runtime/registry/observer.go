package registry

// Outcome classifies a selection query.
type Outcome string

const (
	OutcomeMatched  Outcome = "matched"
	OutcomeFallback Outcome = "fallback"
	OutcomeEmpty    Outcome = "empty"
)

// RegistrationResult classifies a Register call.
type RegistrationResult string

const (
	RegistrationAccepted  RegistrationResult = "accepted"
	RegistrationDuplicate RegistrationResult = "duplicate"
	RegistrationRejected  RegistrationResult = "rejected"
)

// Observer receives registry events; the metrics package implements it.
type Observer interface {
	ObserveRegistration(family, id string, result RegistrationResult)
	ObserveSelection(family string, outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) ObserveRegistration(string, string, RegistrationResult) {}
func (nopObserver) ObserveSelection(string, Outcome)                       {}

func orNopObserver(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
