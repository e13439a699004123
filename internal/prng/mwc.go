// Package prng provides the multiply-with-carry generator used by the
// random access workloads. It is deliberately tiny and deterministic: every
// worker seeds its own generator from its index, so access patterns are
// reproducible from run to run without any shared state.
package prng

// seed constants for the z and w state words
const (
	SeedZ uint32 = 362436069
	SeedW uint32 = 521288629
)

// Next advances the two state words and returns the next draw together
// with the new state. It is a pure function of its inputs.
// see http://www.cse.yorku.ca/~oz/marsaglia-rng.html
func Next(z, w uint32) (uint32, uint32, uint32) {
	z = 36969*(z&65535) + (z >> 16)
	w = 18000*(w&65535) + (w >> 16)
	return (z << 16) + w, z, w
}

// MWC is a stateful wrapper around Next
type MWC struct {
	z uint32
	w uint32
}

// New returns a generator seeded with the given state words
func New(z, w uint32) *MWC {
	return &MWC{z: z, w: w}
}

// ForWorker returns the generator for worker number instance
func ForWorker(instance uint32) *MWC {
	return New(SeedZ, SeedW+instance)
}

// Next returns the next 32 bit draw
func (m *MWC) Next() uint32 {
	var r uint32
	r, m.z, m.w = Next(m.z, m.w)
	return r
}

// State returns the current state words
func (m *MWC) State() (uint32, uint32) {
	return m.z, m.w
}

// Letters returns n lowercase letters drawn from the generator
func (m *MWC) Letters(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a' + byte(m.Next()%26)
	}
	return string(b)
}
