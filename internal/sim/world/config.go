package world

import "fmt"

type WorldConfig struct {
	ID        string
	StartPos  Vec
	StartDir  Direction
	BoundaryR int

	// Items the learner holds when the world is created.
	StarterItems map[string]int
}

func (c WorldConfig) validate() error {
	if !c.StartDir.Valid() {
		return fmt.Errorf("start direction %q", c.StartDir)
	}
	if c.BoundaryR <= 0 {
		return fmt.Errorf("boundary_r must be > 0 (got %d)", c.BoundaryR)
	}
	if !inBounds(c.StartPos, c.BoundaryR) {
		return fmt.Errorf("start position %s outside boundary %d", c.StartPos, c.BoundaryR)
	}
	for item, n := range c.StarterItems {
		if err := validateItem(item); err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("starter item %s: negative count %d", item, n)
		}
	}
	return nil
}

func inBounds(p Vec, r int) bool {
	return p.X >= -r && p.X <= r && p.Y >= -r && p.Y <= r
}
