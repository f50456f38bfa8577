package biquad

import "github.com/cwbudde/algo-dac/dsp/sample"

// Cascade is an ordered series of sections belonging to one logical
// channel. It tracks whether every stage is bypassed so the signal path can
// skip the whole channel without a per-stage branch.
type Cascade[S sample.Num[S]] struct {
	sections    []Section[S]
	allBypassed bool
}

// NewCascade creates a cascade from one or more coefficient sets.
func NewCascade[S sample.Num[S]](coeffs []Coefficients) *Cascade[S] {
	c := &Cascade[S]{sections: make([]Section[S], len(coeffs))}
	for i := range coeffs {
		c.sections[i].Update(coeffs[i])
	}

	c.refreshBypass()

	return c
}

// ProcessSample cascades x through all non-bypassed sections in order.
func (c *Cascade[S]) ProcessSample(x S) S {
	if c.allBypassed {
		return x
	}

	for i := range c.sections {
		x = c.sections[i].ProcessSample(x)
	}

	return x
}

// UpdateSection replaces the coefficients of the i-th section, resetting
// its state, and re-derives the all-bypassed fast path.
func (c *Cascade[S]) UpdateSection(i int, coeffs Coefficients) {
	if i < 0 || i >= len(c.sections) {
		return
	}

	c.sections[i].Update(coeffs)
	c.refreshBypass()
}

// Reset clears all section states.
func (c *Cascade[S]) Reset() {
	for i := range c.sections {
		c.sections[i].Reset()
	}
}

// AllBypassed reports whether every stage is an identity.
func (c *Cascade[S]) AllBypassed() bool { return c.allBypassed }

// NumSections returns the number of sections.
func (c *Cascade[S]) NumSections() int { return len(c.sections) }

// Section returns a pointer to the i-th section for inspection.
func (c *Cascade[S]) Section(i int) *Section[S] { return &c.sections[i] }

func (c *Cascade[S]) refreshBypass() {
	for i := range c.sections {
		if !c.sections[i].Bypassed() {
			c.allBypassed = false
			return
		}
	}

	c.allBypassed = true
}
