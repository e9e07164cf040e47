package world

import (
	"fmt"
	"sort"
	"sync"
)

// World is the learner's grid. Every method is safe for concurrent use;
// mutations are serialized by an internal lock, so several episodes may share
// one World.
type World struct {
	cfg WorldConfig

	mu       sync.Mutex
	pos      Vec
	dir      Direction
	inv      Inventory
	entities map[Vec][]Entity
}

func New(cfg WorldConfig) (*World, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("world config: %w", err)
	}
	w := &World{
		cfg:      cfg,
		pos:      cfg.StartPos,
		dir:      cfg.StartDir,
		inv:      Inventory{},
		entities: map[Vec][]Entity{},
	}
	for item, n := range cfg.StarterItems {
		if n > 0 {
			w.inv[item] = n
		}
	}
	return w, nil
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *World) stateLocked() State {
	return State{LearnerPos: w.pos, LearnerDir: w.dir, Inventory: w.inv.Clone()}
}

// PutEntity places item at p.
func (w *World) PutEntity(p Vec, item string, visible, collectible bool) error {
	if err := validateItem(item); err != nil {
		return err
	}
	if !inBounds(p, w.cfg.BoundaryR) {
		return fmt.Errorf("put %s at %s: outside boundary %d", item, p, w.cfg.BoundaryR)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entities[p] = append(w.entities[p], Entity{Item: item, Pos: p, Visible: visible, Collectible: collectible})
	return nil
}

// EntitiesAt returns the visible entities at p.
func (w *World) EntitiesAt(p Vec) []Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Entity
	for _, e := range w.entities[p] {
		if e.Visible {
			out = append(out, e)
		}
	}
	return out
}

// Entities returns every placed entity ordered by position then item.
func (w *World) Entities() []Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Entity
	for _, es := range w.entities {
		out = append(out, es...)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pos.X != b.Pos.X {
			return a.Pos.X < b.Pos.X
		}
		if a.Pos.Y != b.Pos.Y {
			return a.Pos.Y < b.Pos.Y
		}
		return a.Item < b.Item
	})
	return out
}

// AddItem changes the learner's count of item by delta.
func (w *World) AddItem(item string, delta int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inv.add(item, delta)
}

// ClockwiseDirection returns the learner's facing rotated by steps quarter turns.
func (w *World) ClockwiseDirection(steps int) Direction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Clockwise(w.dir, steps)
}

func (w *World) turnLocked(steps int) {
	w.dir = Clockwise(w.dir, steps)
}

func (w *World) moveLocked() bool {
	next := w.pos.Add(w.dir.Vector())
	if !inBounds(next, w.cfg.BoundaryR) {
		return false
	}
	w.pos = next
	return true
}

// pickUpLocked removes the first collectible item at the learner's cell.
func (w *World) pickUpLocked(item string) bool {
	es := w.entities[w.pos]
	for i, e := range es {
		if e.Item != item || !e.Collectible {
			continue
		}
		es = append(es[:i], es[i+1:]...)
		if len(es) == 0 {
			delete(w.entities, w.pos)
		} else {
			w.entities[w.pos] = es
		}
		w.inv[item]++
		return true
	}
	return false
}
