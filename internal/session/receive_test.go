package session

import (
	"net"
	"testing"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/match"
)

func TestRejectStaleDropsOldSequence(t *testing.T) {
	s := newTestSession()
	p := match.NewPlayer(0, 0, addr(9000), 2, false)
	p.LastSeqReceived = 10
	s.roster.Add(p)

	if stale := s.rejectStale(5, addr(9000)); !stale {
		t.Fatalf("expected sequence 5 (behind 10) to be rejected as stale")
	}
	if p.LastSeqReceived != 10 {
		t.Fatalf("expected LastSeqReceived unchanged on stale reject, got %d", p.LastSeqReceived)
	}
}

func TestRejectStaleAdvancesWatermark(t *testing.T) {
	s := newTestSession()
	p := match.NewPlayer(0, 0, addr(9000), 2, false)
	p.LastSeqReceived = 10
	s.roster.Add(p)

	if stale := s.rejectStale(11, addr(9000)); stale {
		t.Fatalf("expected sequence 11 to be accepted")
	}
	if p.LastSeqReceived != 11 {
		t.Fatalf("expected LastSeqReceived advanced to 11, got %d", p.LastSeqReceived)
	}
}

func TestRejectStaleUnknownPlayerIsStale(t *testing.T) {
	s := newTestSession()
	if stale := s.rejectStale(1, addr(9999)); !stale {
		t.Fatalf("expected unknown player to be treated as stale")
	}
}

func TestRelayForwardsLoopbackToHost(t *testing.T) {
	hostConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen host: %v", err)
	}
	defer hostConn.Close()

	selfConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen self: %v", err)
	}
	defer selfConn.Close()

	s := newTestSession()
	s.conn = selfConn

	hostAddr := hostConn.LocalAddr().(*net.UDPAddr)
	s.relay([]byte("hello"), addr(1), hostAddr)

	buf := make([]byte, 16)
	n, _, err := hostConn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read from host: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("expected relayed payload %q, got %q", "hello", buf[:n])
	}
}

func TestRelayForwardsRemoteToLocalSocket(t *testing.T) {
	localConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen local: %v", err)
	}
	defer localConn.Close()

	selfConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen self: %v", err)
	}
	defer selfConn.Close()

	s := newTestSession()
	s.conn = selfConn
	s.localSocket = localConn.LocalAddr().(*net.UDPAddr)

	remoteSrc := &net.UDPAddr{IP: net.ParseIP("203.0.113.5"), Port: 4000}
	s.relay([]byte("world"), remoteSrc, addr(1))

	buf := make([]byte, 16)
	n, _, err := localConn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read from local: %v", err)
	}
	if string(buf[:n]) != "world" {
		t.Fatalf("expected relayed payload %q, got %q", "world", buf[:n])
	}
}
