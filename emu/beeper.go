package emu

// Beeper models the single-bit speaker driven by CTC channel 0 through a
// flip-flop. Downsampling from the CPU clock to the host sample rate
// accumulates the exact fractional ratio so no drift builds up over time.
type Beeper struct {
	state bool
	vol   float32

	tickHz int
	rateHz int
	acc    int
	sample float32
}

// NewBeeper configures resampling from tickHz machine ticks to rateHz
// output samples per second.
func NewBeeper(tickHz, rateHz int) *Beeper {
	return &Beeper{
		vol:    0.4,
		tickHz: tickHz,
		rateHz: rateHz,
	}
}

// Toggle flips the speaker flip-flop.
func (b *Beeper) Toggle() {
	b.state = !b.state
}

// Set forces the speaker level.
func (b *Beeper) Set(state bool) {
	b.state = state
}

// Tick advances the beeper by one machine tick and reports whether a new
// output sample is ready in Sample.
func (b *Beeper) Tick() bool {
	b.acc += b.rateHz
	if b.acc < b.tickHz {
		return false
	}
	b.acc -= b.tickHz
	if b.state {
		b.sample = b.vol
	} else {
		b.sample = -b.vol
	}
	return true
}

// Sample returns the most recent output sample in the range [-1, 1].
func (b *Beeper) Sample() float32 {
	return b.sample
}

func (b *Beeper) Reset() {
	b.state = false
	b.acc = 0
	b.sample = 0
}
