// Package obs wires up Prometheus metrics and the /metrics, /ready HTTP
// endpoints for the rollback server.
package obs

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus series.
var (
	PacketsRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvsi_packets_rx_total",
		Help: "Total UDP packets received.",
	})
	PacketsTx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvsi_packets_tx_total",
		Help: "Total UDP packets sent.",
	})
	BytesRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvsi_bytes_rx_total",
		Help: "Total UDP bytes received.",
	})
	BytesTx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvsi_bytes_tx_total",
		Help: "Total UDP bytes sent.",
	})
	RelayForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvsi_relay_forwarded_total",
		Help: "Total packets forwarded verbatim by the host-passthrough relay.",
	})
	HolePunchesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvsi_hole_punches_sent_total",
		Help: "Total UDP hole-punch packets sent to peers.",
	})
	PingSamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvsi_ping_samples_total",
		Help: "Total ping/pong RTT samples recorded.",
	})
	PingRTT = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mvsi_ping_rtt_ms_last",
		Help: "Most recently measured RTT of any player, in milliseconds.",
	})
	TickDrift = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mvsi_tick_drift_ms",
		Help: "Absolute drift of the most recent tick from the 16ms target, in milliseconds.",
	})
	ConnectedPlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mvsi_connected_players",
		Help: "Current number of connected players in the active match.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mvsi_build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mvsi_errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	MalformedPackets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mvsi_malformed_packets_total",
		Help: "Total rejected malformed packets (decompress/parse failures, oversize).",
	})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrDecompress  = "decompress"
	ErrParse       = "parse"
	ErrSerialize   = "serialize"
	ErrCompress    = "compress"
	ErrSend        = "send"
	ErrRegistry    = "registry"
	ErrUnknownPeer = "unknown_peer"
)

// StartHTTP serves Prometheus metrics and readiness on addr.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for cheap in-process logging.
var (
	localPacketsRx  uint64
	localPacketsTx  uint64
	localRelay      uint64
	localHolePunch  uint64
	localErrors     uint64
	localMalformed  uint64
)

// Snapshot is a cheap copy of local counters, used by the periodic metrics logger.
type Snapshot struct {
	PacketsRx  uint64
	PacketsTx  uint64
	Relayed    uint64
	HolePunch  uint64
	Errors     uint64
	Malformed  uint64
}

func Snap() Snapshot {
	return Snapshot{
		PacketsRx: atomic.LoadUint64(&localPacketsRx),
		PacketsTx: atomic.LoadUint64(&localPacketsTx),
		Relayed:   atomic.LoadUint64(&localRelay),
		HolePunch: atomic.LoadUint64(&localHolePunch),
		Errors:    atomic.LoadUint64(&localErrors),
		Malformed: atomic.LoadUint64(&localMalformed),
	}
}

func IncPacketsRx(n int) {
	PacketsRx.Inc()
	BytesRx.Add(float64(n))
	atomic.AddUint64(&localPacketsRx, 1)
}

func IncPacketsTx(n int) {
	PacketsTx.Inc()
	BytesTx.Add(float64(n))
	atomic.AddUint64(&localPacketsTx, 1)
}

func IncRelayForwarded() {
	RelayForwarded.Inc()
	atomic.AddUint64(&localRelay, 1)
}

func IncHolePunchSent() {
	HolePunchesSent.Inc()
	atomic.AddUint64(&localHolePunch, 1)
}

func ObservePingRTT(ms uint16) {
	PingSamples.Inc()
	PingRTT.Set(float64(ms))
}

func SetTickDrift(ms float64) {
	TickDrift.Set(ms)
}

func SetConnectedPlayers(n int) {
	ConnectedPlayers.Set(float64(n))
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

func IncMalformed() {
	MalformedPackets.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

// InitBuildInfo sets the build info gauge and pre-registers error label series.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{
		ErrDecompress, ErrParse, ErrSerialize, ErrCompress, ErrSend, ErrRegistry, ErrUnknownPeer,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
