// Package match holds the Match and Player data model shared by the
// session state machine and the tick engine.
package match

import (
	"net"
	"sync"
	"time"
)

// Match is the single active match a server process coordinates. Only one
// match is ever in flight per process.
type Match struct {
	ID             string
	Key            string
	NumPlayers     uint8
	SequenceNumber uint32
	MatchDuration  uint32
	CurrentFrame   uint32
	Ready          bool
}

// NewMatch returns a zero-value Match, mirroring the original's defaults.
func NewMatch() *Match {
	return &Match{}
}

// NextSequence returns the current sequence number and advances it, for use
// by callers serializing an outbound message under the match lock.
func (m *Match) NextSequence() uint32 {
	seq := m.SequenceNumber
	m.SequenceNumber++
	return seq
}

// Player is one roster slot of the active match.
type Player struct {
	Index          uint16
	TeamIndex      uint16
	Socket         *net.UDPAddr
	PendingPings   map[uint32]time.Time
	RepliedPings   uint32
	Ready          bool
	Connected      bool
	Ping           uint16
	IsHost         bool
	LastSeqReceived uint32

	LastClientFrame uint32
	// AckedFrames[i] is the highest frame of player i's input this player has
	// acknowledged receiving.
	AckedFrames []uint32
	Rift        float32
	// Inputs maps frame number to that frame's raw input for this player.
	Inputs       map[uint32]uint32
	MissedInputs uint32
}

// NewPlayer constructs a roster slot the way handle_new_connection does:
// zeroed ping/rift/ack state, one AckedFrames slot per match player.
func NewPlayer(index, teamIndex uint16, socket *net.UDPAddr, numPlayers uint8, isHost bool) *Player {
	return &Player{
		Index:        index,
		TeamIndex:    teamIndex,
		Socket:       socket,
		PendingPings: make(map[uint32]time.Time),
		Connected:    true,
		AckedFrames:  make([]uint32, numPlayers),
		Inputs:       make(map[uint32]uint32),
		IsHost:       isHost,
	}
}

// GC trims acknowledged input history below belowFrame. Not called by the
// session loop today (input history is retained in full by default), but
// provided as the hook a caller that wants bounded memory would use.
func (p *Player) GC(belowFrame uint32) {
	for frame := range p.Inputs {
		if frame < belowFrame {
			delete(p.Inputs, frame)
		}
	}
}

// Roster guards the live player list and exposes the lookup/mutation
// primitives the session and tick packages need, always taking the lock
// for the duration of the closure so callers can't forget to unlock.
type Roster struct {
	mu      sync.Mutex
	players []*Player
}

// NewRoster returns an empty roster.
func NewRoster() *Roster { return &Roster{} }

// With runs fn with the roster lock held, passing the live slice.
// Mutations to *Player fields are visible to later calls; appending to the
// slice itself must go through Add. The roster has no removal method.
func (r *Roster) With(fn func(players []*Player)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.players)
}

// Add appends a player under the roster lock.
func (r *Roster) Add(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players = append(r.players, p)
}

// FindBySocket returns the player at addr, or nil.
func (r *Roster) FindBySocket(addr *net.UDPAddr) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if udpAddrEqual(p.Socket, addr) {
			return p
		}
	}
	return nil
}

// FindByIndex returns the player with the given roster index, or nil.
func (r *Roster) FindByIndex(index uint16) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.Index == index {
			return p
		}
	}
	return nil
}

// SortByIndex orders the roster by player index, matching the ping-loop's
// pre-PlayerGetReady sort.
func (r *Roster) SortByIndex() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 1; i < len(r.players); i++ {
		for j := i; j > 0 && r.players[j-1].Index > r.players[j].Index; j-- {
			r.players[j-1], r.players[j] = r.players[j], r.players[j-1]
		}
	}
}

// Count returns the number of roster slots currently filled.
func (r *Roster) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// AllConnected reports whether exactly want players are connected.
func (r *Roster) AllConnected(want int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.players {
		if p.Connected {
			n++
		}
	}
	return n == want
}

// AllRepliedPings reports whether every player has replied at least min times.
func (r *Roster) AllRepliedPings(min uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.RepliedPings < min {
			return false
		}
	}
	return true
}

// AllReady reports whether every player's Ready flag is set.
func (r *Roster) AllReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// AllHaveInputBacklog reports whether every player has at least min buffered
// input frames, the gate the tick engine uses before its first fan-out.
func (r *Roster) AllHaveInputBacklog(min int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if len(p.Inputs) < min {
			return false
		}
	}
	return true
}

// MaxPing returns the highest Ping among all players, or 0 if the roster is empty.
func (r *Roster) MaxPing() uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var max uint16
	for _, p := range r.players {
		if p.Ping > max {
			max = p.Ping
		}
	}
	return max
}

func udpAddrEqual(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IP.Equal(b.IP) && a.Port == b.Port
}
