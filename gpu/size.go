package gpu

import "fmt"

// Size3 is a 3D extent, used both for texture resolutions and thread group counts.
type Size3 struct {
	X, Y, Z int
}

// Cells returns the number of elements covered by the extent.
func (s Size3) Cells() int {
	return s.X * s.Y * s.Z
}

// Valid reports whether every axis is strictly positive.
func (s Size3) Valid() bool {
	return s.X > 0 && s.Y > 0 && s.Z > 0
}

// Contains reports whether the coordinate lies inside the extent.
func (s Size3) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < s.X && y < s.Y && z < s.Z
}

func (s Size3) String() string {
	return fmt.Sprintf("%dx%dx%d", s.X, s.Y, s.Z)
}

// GroupCount returns ceil(n/groupSize).
func GroupCount(n, groupSize int) int {
	return (n + groupSize - 1) / groupSize
}

// Groups returns the number of thread groups of size group needed to cover domain.
func Groups(domain, group Size3) Size3 {
	return Size3{
		X: GroupCount(domain.X, group.X),
		Y: GroupCount(domain.Y, group.Y),
		Z: GroupCount(domain.Z, group.Z),
	}
}
