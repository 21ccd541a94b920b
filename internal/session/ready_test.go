package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/match"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/wire"
)

func TestHandlePlayerReadyWaitsForAllPlayers(t *testing.T) {
	s := newTestSession()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()
	s.conn = conn

	p0 := match.NewPlayer(0, 0, addr(9000), 2, true)
	p1 := match.NewPlayer(1, 0, addr(9001), 2, false)
	s.roster.Add(p0)
	s.roster.Add(p1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.HandlePlayerReady(ctx, wire.ReadyForMatchPayload{Ready: 1}, addr(9000))

	if s.State() == StateMatchInProgress {
		t.Fatalf("expected state unchanged until every player is ready")
	}
}

func TestHandlePlayerReadyStartsMatchOnceAllReady(t *testing.T) {
	s := newTestSession()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()
	s.conn = conn

	p0 := match.NewPlayer(0, 0, addr(9000), 2, true)
	p1 := match.NewPlayer(1, 0, addr(9001), 2, false)
	s.roster.Add(p0)
	s.roster.Add(p1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // tick.Start returns immediately once spawned

	s.HandlePlayerReady(ctx, wire.ReadyForMatchPayload{Ready: 1}, addr(9000))
	s.HandlePlayerReady(ctx, wire.ReadyForMatchPayload{Ready: 1}, addr(9001))

	time.Sleep(10 * time.Millisecond)
	s.wg.Wait()

	if s.State() != StateMatchInProgress {
		t.Fatalf("expected state MatchInProgress, got %s", s.State())
	}
}
