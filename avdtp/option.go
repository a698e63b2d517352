package avdtp

import (
	"time"

	"github.com/rigado/btstack"
)

// config holds every tunable Manager setting, mirroring smp.config's
// functional-options shape.
type config struct {
	logger            btstack.Logger
	timers            btstack.TimerSource
	responseTimeout   time.Duration
	retransmitTimeout time.Duration
	maxRetransmit     int
	defaultPeerMTU    int
}

func defaultConfig() *config {
	return &config{
		logger:            btstack.GetLogger(),
		timers:            btstack.NewWheel(),
		responseTimeout:   4 * time.Second,
		retransmitTimeout: 2 * time.Second,
		maxRetransmit:     1,
		defaultPeerMTU:    672,
	}
}

// Option configures a Manager at construction time.
type Option func(*config)

// OptLogger overrides the default btstack.Logger.
func OptLogger(l btstack.Logger) Option {
	return func(c *config) { c.logger = l }
}

// OptTimerSource overrides the default btstack.TimerSource.
func OptTimerSource(t btstack.TimerSource) Option {
	return func(c *config) { c.timers = t }
}

// OptResponseTimeout overrides how long a command that doesn't use
// retransmission (discover, get-cap, security-control) waits for a reply
// before the attempt is declared a transport failure.
func OptResponseTimeout(d time.Duration) Option {
	return func(c *config) { c.responseTimeout = d }
}

// OptRetransmitTimeout overrides how long a retransmit-eligible command
// waits before it is resent.
func OptRetransmitTimeout(d time.Duration) Option {
	return func(c *config) { c.retransmitTimeout = d }
}

// OptMaxRetransmit overrides how many times a command is resent on
// retransmit-timer fires before the attempt is declared a transport
// failure.
func OptMaxRetransmit(n int) Option {
	return func(c *config) { c.maxRetransmit = n }
}

// OptDefaultPeerMTU overrides the peer MTU assumed for a CCB when the
// Transport doesn't (yet) report one via PeerMTU.
func OptDefaultPeerMTU(n int) Option {
	return func(c *config) { c.defaultPeerMTU = n }
}
