package world

import "fmt"

type Direction string

const (
	North Direction = "north"
	East  Direction = "east"
	South Direction = "south"
	West  Direction = "west"
)

// clockwise order; index arithmetic below depends on it.
var compass = [4]Direction{North, East, South, West}

var unitVectors = map[Direction]Vec{
	North: {X: 0, Y: 1},
	East:  {X: 1, Y: 0},
	South: {X: 0, Y: -1},
	West:  {X: -1, Y: 0},
}

// Directions returns the four valid directions in clockwise order.
func Directions() []Direction {
	out := make([]Direction, len(compass))
	copy(out, compass[:])
	return out
}

func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown direction %q", s)
	}
	return d, nil
}

func (d Direction) Valid() bool {
	_, ok := unitVectors[d]
	return ok
}

// Vector returns the unit step for d, or the zero vector if d is invalid.
func (d Direction) Vector() Vec { return unitVectors[d] }

func (d Direction) index() int {
	for i, c := range compass {
		if c == d {
			return i
		}
	}
	return -1
}

// normalizeSteps converts a signed quarter-turn count into [0,3].
func normalizeSteps(steps int) int {
	steps %= 4
	if steps < 0 {
		steps += 4
	}
	return steps
}

// Clockwise rotates d by steps quarter turns; negative steps turn
// counter-clockwise. Invalid directions are returned unchanged.
func Clockwise(d Direction, steps int) Direction {
	i := d.index()
	if i < 0 {
		return d
	}
	return compass[(i+normalizeSteps(steps))%4]
}
