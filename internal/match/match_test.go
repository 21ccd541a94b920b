package match

import (
	"net"
	"testing"
)

func addr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}
}

func TestRosterAddFind(t *testing.T) {
	r := NewRoster()
	p := NewPlayer(0, 0, addr(5000), 2, true)
	r.Add(p)

	if got := r.FindBySocket(addr(5000)); got != p {
		t.Fatalf("FindBySocket returned %+v, want %+v", got, p)
	}
	if got := r.FindByIndex(0); got != p {
		t.Fatalf("FindByIndex returned %+v, want %+v", got, p)
	}
	if got := r.FindBySocket(addr(5001)); got != nil {
		t.Fatalf("expected nil for unknown socket, got %+v", got)
	}
}

func TestRosterAllConnectedAndReady(t *testing.T) {
	r := NewRoster()
	a := NewPlayer(0, 0, addr(5000), 2, true)
	b := NewPlayer(1, 0, addr(5001), 2, false)
	r.Add(a)
	r.Add(b)

	if r.AllConnected(2) != true {
		t.Fatalf("expected both players connected")
	}
	if r.AllReady() {
		t.Fatalf("expected not all ready yet")
	}
	a.Ready = true
	b.Ready = true
	if !r.AllReady() {
		t.Fatalf("expected all ready")
	}
}

func TestRosterSortByIndex(t *testing.T) {
	r := NewRoster()
	r.Add(NewPlayer(2, 0, addr(5002), 3, false))
	r.Add(NewPlayer(0, 0, addr(5000), 3, true))
	r.Add(NewPlayer(1, 0, addr(5001), 3, false))

	r.SortByIndex()
	var order []uint16
	r.With(func(players []*Player) {
		for _, p := range players {
			order = append(order, p.Index)
		}
	})
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("unexpected order after sort: %v", order)
	}
}

func TestRosterMaxPing(t *testing.T) {
	r := NewRoster()
	a := NewPlayer(0, 0, addr(5000), 2, true)
	b := NewPlayer(1, 0, addr(5001), 2, false)
	a.Ping = 30
	b.Ping = 55
	r.Add(a)
	r.Add(b)

	if got := r.MaxPing(); got != 55 {
		t.Fatalf("MaxPing = %d, want 55", got)
	}
}

func TestPlayerGC(t *testing.T) {
	p := NewPlayer(0, 0, addr(5000), 1, false)
	p.Inputs[1] = 10
	p.Inputs[2] = 20
	p.Inputs[3] = 30

	p.GC(3)

	if _, ok := p.Inputs[1]; ok {
		t.Fatalf("expected frame 1 to be collected")
	}
	if _, ok := p.Inputs[2]; ok {
		t.Fatalf("expected frame 2 to be collected")
	}
	if _, ok := p.Inputs[3]; !ok {
		t.Fatalf("expected frame 3 to survive")
	}
}

func TestMatchNextSequence(t *testing.T) {
	m := NewMatch()
	if seq := m.NextSequence(); seq != 0 {
		t.Fatalf("first sequence = %d, want 0", seq)
	}
	if seq := m.NextSequence(); seq != 1 {
		t.Fatalf("second sequence = %d, want 1", seq)
	}
}
