package ports

type PollOutcome string

const (
	PollSubmitted PollOutcome = "submitted"
	PollSkipped   PollOutcome = "skipped"
	PollFailed    PollOutcome = "failed"
)

type Metrics interface {
	ResponseForwarded()
	OpenFailed()
	Reconnected()
	HealthPoll(outcome PollOutcome)
	SessionUp(up bool)
}

type NopMetrics struct{}

func (NopMetrics) ResponseForwarded()     {}
func (NopMetrics) OpenFailed()            {}
func (NopMetrics) Reconnected()           {}
func (NopMetrics) HealthPoll(PollOutcome) {}
func (NopMetrics) SessionUp(bool)         {}
