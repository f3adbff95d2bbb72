package snowflake

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Epoch is the custom epoch ids are measured from: January 1, 2024 00:00:00 UTC.
const Epoch int64 = 1704067200000

// Bit layout: 41 bits of milliseconds, 10 bits of node, 12 bits of sequence.
const (
	nodeBits     = 10
	sequenceBits = 12

	MaxNode     = (1 << nodeBits) - 1
	maxSequence = (1 << sequenceBits) - 1

	nodeShift      = sequenceBits
	timestampShift = sequenceBits + nodeBits
)

// ID is a snowflake ID that marshals to/from JSON as a string.
type ID int64

func (id ID) Int64() int64 {
	return int64(id)
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Time returns the creation time embedded in the id.
func (id ID) Time() time.Time {
	return ExtractTimestamp(int64(id))
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(id), 10))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int64
		if nerr := json.Unmarshal(data, &n); nerr != nil {
			return fmt.Errorf("snowflake: cannot unmarshal %s: %w", string(data), err)
		}
		*id = ID(n)
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Parse parses a decimal id string.
func Parse(s string) (ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("snowflake: invalid id string %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("snowflake: id must be positive, got %d", n)
	}
	return ID(n), nil
}

// Generator produces unique, time-ordered snowflake IDs. Ids generated by
// one Generator sort in creation order, which the message listing relies on.
type Generator struct {
	mu       sync.Mutex
	node     int64
	sequence int64
	lastTime int64
	now      func() time.Time
}

// NewGenerator creates a generator for the given node id in [0, MaxNode].
func NewGenerator(node int64) (*Generator, error) {
	if node < 0 || node > MaxNode {
		return nil, fmt.Errorf("snowflake: node must be between 0 and %d", MaxNode)
	}
	return &Generator{node: node, now: time.Now}, nil
}

// Generate returns the next unique snowflake ID.
func (g *Generator) Generate() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UnixMilli() - Epoch
	if now < g.lastTime {
		// Clock moved backwards; keep issuing from the last seen millisecond.
		now = g.lastTime
	}

	if now == g.lastTime {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			for now <= g.lastTime {
				now = g.now().UnixMilli() - Epoch
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTime = now

	return ID((now << timestampShift) | (g.node << nodeShift) | g.sequence)
}

// ExtractTimestamp returns the wall-clock time embedded in a snowflake ID.
func ExtractTimestamp(id int64) time.Time {
	return time.UnixMilli((id >> timestampShift) + Epoch)
}
