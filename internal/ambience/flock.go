// Package ambience runs the background bird simulation that gives the forest
// scene movement. The flock lives entirely in memory and shares no state with
// the tree catalog.
package ambience

import (
	"math/rand"
	"sync"
)

// WorldBound is the half-extent of the square world the birds fly in.
const WorldBound = 50.0

// Bird is one simulated bird.
type Bird struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Flock holds the birds and advances them on each tick. All methods are safe
// for concurrent use.
type Flock struct {
	mu    sync.Mutex
	birds []Bird
	rng   *rand.Rand
}

// NewFlock creates a flock of n birds at random positions.
func NewFlock(n int, seed int64) *Flock {
	rng := rand.New(rand.NewSource(seed))
	birds := make([]Bird, n)
	for i := range birds {
		birds[i] = Bird{
			ID: i,
			X:  (rng.Float64()*2 - 1) * WorldBound,
			Y:  (rng.Float64()*2 - 1) * WorldBound,
			VX: (rng.Float64()*2 - 1) * 2,
			VY: (rng.Float64()*2 - 1) * 2,
		}
	}
	return &Flock{birds: birds, rng: rng}
}

// Step advances every bird by dt seconds and returns the new positions.
// Birds wander with slight random steering and bounce off the world bounds.
func (f *Flock) Step(dt float64) []Bird {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.birds {
		b := &f.birds[i]

		b.VX += (f.rng.Float64()*2 - 1) * 0.5 * dt
		b.VY += (f.rng.Float64()*2 - 1) * 0.5 * dt

		b.X += b.VX * dt
		b.Y += b.VY * dt

		if b.X > WorldBound {
			b.X, b.VX = WorldBound, -b.VX
		} else if b.X < -WorldBound {
			b.X, b.VX = -WorldBound, -b.VX
		}
		if b.Y > WorldBound {
			b.Y, b.VY = WorldBound, -b.VY
		} else if b.Y < -WorldBound {
			b.Y, b.VY = -WorldBound, -b.VY
		}
	}

	return f.snapshotLocked()
}

// Jump gives the bird a velocity impulse away from its current heading.
// Unknown ids are ignored.
func (f *Flock) Jump(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id < 0 || id >= len(f.birds) {
		return
	}

	b := &f.birds[id]
	b.VX = (f.rng.Float64()*2 - 1) * 6
	b.VY = (f.rng.Float64()*2 - 1) * 6
}

// Snapshot returns the current bird positions.
func (f *Flock) Snapshot() []Bird {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flock) snapshotLocked() []Bird {
	out := make([]Bird, len(f.birds))
	copy(out, f.birds)
	return out
}

// Size returns the number of birds in the flock.
func (f *Flock) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.birds)
}
