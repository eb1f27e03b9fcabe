package domain

import "encoding/json"

type HealthSnapshot struct {
	IsSyncing       bool
	Peers           uint32
	ShouldHavePeers bool
}

// NeedsReconnect reports the stalled-connection signal: not syncing, no peers,
// and not expecting any.
func (h HealthSnapshot) NeedsReconnect() bool {
	return !h.IsSyncing && !h.ShouldHavePeers && h.Peers == 0
}

type HealthVerdict int

const (
	VerdictNotApplicable HealthVerdict = iota
	VerdictHealthy
	VerdictNeedsReconnect
)

func (v HealthVerdict) String() string {
	switch v {
	case VerdictHealthy:
		return "healthy"
	case VerdictNeedsReconnect:
		return "needs_reconnect"
	default:
		return "not_applicable"
	}
}

type healthResponse struct {
	Result *healthResult `json:"result"`
}

type healthResult struct {
	IsSyncing       *bool   `json:"isSyncing"`
	Peers           *uint32 `json:"peers"`
	ShouldHavePeers *bool   `json:"shouldHavePeers"`
}

// DecodeHealth reports whether text is a system_health reply and, if so, its
// snapshot. Every other shape, malformed text included, returns false.
func DecodeHealth(text string) (HealthSnapshot, bool) {
	var resp healthResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return HealthSnapshot{}, false
	}

	result := resp.Result
	if result == nil || result.IsSyncing == nil || result.Peers == nil || result.ShouldHavePeers == nil {
		return HealthSnapshot{}, false
	}

	return HealthSnapshot{
		IsSyncing:       *result.IsSyncing,
		Peers:           *result.Peers,
		ShouldHavePeers: *result.ShouldHavePeers,
	}, true
}

func EvaluateHealth(text string) HealthVerdict {
	snapshot, ok := DecodeHealth(text)
	if !ok {
		return VerdictNotApplicable
	}
	if snapshot.NeedsReconnect() {
		return VerdictNeedsReconnect
	}

	return VerdictHealthy
}
