package relay

// Metrics receives relay events. The server backs it with Prometheus.
type Metrics interface {
	SetOnline(n int)
	MessageRelayed()
	MessageDelivered()
	MessageDropped(reason string)
}

// Reasons passed to MessageDropped.
const (
	DropOffline    = "offline"
	DropSendFailed = "send_failed"
)

type nopMetrics struct{}

func (nopMetrics) SetOnline(int)         {}
func (nopMetrics) MessageRelayed()       {}
func (nopMetrics) MessageDelivered()     {}
func (nopMetrics) MessageDropped(string) {}
