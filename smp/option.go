package smp

import (
	"time"

	"github.com/rigado/btstack"
	"github.com/rigado/btstack/crypto"
)

// config holds every tunable Manager setting, assembled from zero or more
// Option values at NewManager time. Generalizes the DeviceOption/Option
// split in the teacher's option.go: since this module has nothing like
// DeviceOption's HCI-command-parameter surface, a plain struct plays the
// role DeviceOption played, and Option closes over it directly.
type config struct {
	logger               btstack.Logger
	engine               crypto.Engine
	timers               btstack.TimerSource
	bonds                BondStore
	localIOCapability    byte
	localAuthReq         byte
	localMaxKeySize      byte
	localInitKeyDist     byte
	localRespKeyDist     byte
	scOnlyMode           bool
	allowCrossTransport  bool
	delayedAuthTail      time.Duration
	retransmitOnFailure  bool
}

func defaultConfig() *config {
	return &config{
		logger:              btstack.GetLogger(),
		engine:              crypto.New(),
		timers:              btstack.NewWheel(),
		bonds:               NewMemoryBondStore(),
		localIOCapability:   IOCapNoInputNoOutput,
		localAuthReq:        AuthReqBonding | AuthReqSC,
		localMaxKeySize:     16,
		localInitKeyDist:    KeyDistEnc | KeyDistID | KeyDistSign,
		localRespKeyDist:    KeyDistEnc | KeyDistID | KeyDistSign,
		delayedAuthTail:     500 * time.Millisecond,
		allowCrossTransport: true,
	}
}

// Option configures a Manager at construction time.
type Option func(*config)

// OptLogger overrides the default btstack.Logger.
func OptLogger(l btstack.Logger) Option {
	return func(c *config) { c.logger = l }
}

// OptCryptoEngine overrides the default crypto.Engine, mainly so tests can
// substitute a deterministic fake.
func OptCryptoEngine(e crypto.Engine) Option {
	return func(c *config) { c.engine = e }
}

// OptTimerSource overrides the default btstack.TimerSource.
func OptTimerSource(t btstack.TimerSource) Option {
	return func(c *config) { c.timers = t }
}

// OptBondStore overrides the default in-memory BondStore.
func OptBondStore(b BondStore) Option {
	return func(c *config) { c.bonds = b }
}

// OptIOCapability sets the local IO capability advertised in Pairing
// Request/Response PDUs.
func OptIOCapability(cap byte) Option {
	return func(c *config) { c.localIOCapability = cap }
}

// OptAuthReq sets the local AuthReq byte (bonding, MITM, SC, keypress bits).
func OptAuthReq(authReq byte) Option {
	return func(c *config) { c.localAuthReq = authReq }
}

// OptMaxEncryptionKeySize sets the locally-supported maximum encryption key
// size, 7..16 octets.
func OptMaxEncryptionKeySize(size byte) Option {
	return func(c *config) { c.localMaxKeySize = size }
}

// OptKeyDistribution overrides the default InitKeyDist/RespKeyDist bitmasks.
func OptKeyDistribution(initKeyDist, respKeyDist byte) Option {
	return func(c *config) {
		c.localInitKeyDist = initKeyDist
		c.localRespKeyDist = respKeyDist
	}
}

// OptSecureConnectionsOnly enables the policy gate of §4.3.2: any
// association model other than an SC model (and never SC_JUSTWORKS) fails
// pairing immediately with PAIR_AUTH_FAIL.
func OptSecureConnectionsOnly() Option {
	return func(c *config) { c.scOnlyMode = true }
}

// OptDisallowCrossTransportDerivation disables the h6/h7 BR/EDR
// cross-transport key derivation path of §4.3.6 even when both sides
// request it.
func OptDisallowCrossTransportDerivation() Option {
	return func(c *config) { c.allowCrossTransport = false }
}

// OptDelayedAuthTail overrides the default 500ms delayed-auth tail timer
// duration used before declaring a bonding outcome successful (§4.3.3,
// Open Question (b): "spec-unspecified; expose as configuration").
func OptDelayedAuthTail(d time.Duration) Option {
	return func(c *config) { c.delayedAuthTail = d }
}
