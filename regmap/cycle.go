package regmap

// Cycler steps through a fixed sequence of measurement selections, e.g.
// input mux codes or output indexes. Next returns the current head and
// advances, so a sequence {2, 3} yields 2, 3, 2, ...
//
// A nil or empty Cycler reports ok=false; callers fall back to whatever
// single selection they were configured with.
type Cycler struct {
	seq  []uint64
	head int
}

// NewCycler builds a Cycler over seq. The slice is not copied.
func NewCycler(seq ...uint64) *Cycler {
	return &Cycler{seq: seq}
}

// Next returns the head of the sequence and rotates it to the back.
func (c *Cycler) Next() (uint64, bool) {
	if c == nil || len(c.seq) == 0 {
		return 0, false
	}
	v := c.seq[c.head]
	c.head++
	if c.head == len(c.seq) {
		c.head = 0
	}
	return v, true
}

// Len returns the sequence length; 0 for a nil Cycler.
func (c *Cycler) Len() int {
	if c == nil {
		return 0
	}
	return len(c.seq)
}
