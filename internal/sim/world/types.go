package world

import "fmt"

// Vec is a cell on the learner's grid. North is +Y, east is +X.
type Vec struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (v Vec) Add(o Vec) Vec { return Vec{X: v.X + o.X, Y: v.Y + o.Y} }

func (v Vec) String() string { return fmt.Sprintf("(%d,%d)", v.X, v.Y) }

func Manhattan(a, b Vec) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Entity is an item placed on the grid.
type Entity struct {
	Item        string `json:"item"`
	Pos         Vec    `json:"pos"`
	Visible     bool   `json:"visible"`
	Collectible bool   `json:"collectible"`
}

// State is a point-in-time copy of everything tasks may observe about the
// learner. It never aliases the live world.
type State struct {
	LearnerPos Vec       `json:"learner_pos"`
	LearnerDir Direction `json:"learner_dir"`
	Inventory  Inventory `json:"inventory"`
}

func (s State) Clone() State {
	s.Inventory = s.Inventory.Clone()
	return s
}

func (s State) Equal(o State) bool {
	return s.LearnerPos == o.LearnerPos &&
		s.LearnerDir == o.LearnerDir &&
		s.Inventory.Equal(o.Inventory)
}
