package model

import "fmt"

// A Position references a block in a world.
type Position struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

// IsValid returns true if the position references a world.
func (p *Position) IsValid() bool {
	return p != nil && p.World != ""
}

// Adjacent returns true if o is next to p on the horizontal plane.
func (p Position) Adjacent(o Position) bool {
	if p.World != o.World || p.Y != o.Y {
		return false
	}
	return abs(p.X-o.X)+abs(p.Z-o.Z) == 1
}

func (p Position) String() string {
	return fmt.Sprintf("%s(%d,%d,%d)", p.World, p.X, p.Y, p.Z)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
