package game

import "math"

// PlayerRadius is the circular hitbox radius used for all players.
const PlayerRadius = 28.0

// Vec2 is a 2D point or direction.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is a wall segment in arena space. All arena collision is circle
// versus segment; this is not a general physics engine.
type Segment struct {
	X1, Y1 float64
	X2, Y2 float64
}

// Arena describes the static geometry one match is fought in.
type Arena struct {
	ID     string
	Name   string
	Width  float64
	Height float64
	Walls  []Segment
	Spawns [2]Vec2
}

// arenas is the builtin arena catalog, keyed by id.
var arenas = map[string]Arena{
	"colosseum": {
		ID:     "colosseum",
		Name:   "Colosseum",
		Width:  1280,
		Height: 720,
		Walls: []Segment{
			// Two center pillars forcing lateral play.
			{X1: 560, Y1: 260, X2: 720, Y2: 260},
			{X1: 560, Y1: 460, X2: 720, Y2: 460},
		},
		Spawns: [2]Vec2{{X: 160, Y: 360}, {X: 1120, Y: 360}},
	},
	"crossfire": {
		ID:     "crossfire",
		Name:   "Crossfire",
		Width:  1280,
		Height: 720,
		Walls: []Segment{
			// Diagonal baffles around the center.
			{X1: 400, Y1: 200, X2: 560, Y2: 360},
			{X1: 880, Y1: 520, X2: 720, Y2: 360},
			{X1: 400, Y1: 520, X2: 560, Y2: 360},
			{X1: 880, Y1: 200, X2: 720, Y2: 360},
		},
		Spawns: [2]Vec2{{X: 160, Y: 160}, {X: 1120, Y: 560}},
	},
	"pit": {
		ID:     "pit",
		Name:   "The Pit",
		Width:  960,
		Height: 960,
		Walls:  nil, // open floor, bounds only
		Spawns: [2]Vec2{{X: 160, Y: 480}, {X: 800, Y: 480}},
	},
}

// GetArena looks up an arena by id.
func GetArena(id string) (Arena, bool) {
	a, ok := arenas[id]
	return a, ok
}

// ArenaIDs returns the ids of all builtin arenas.
func ArenaIDs() []string {
	ids := make([]string, 0, len(arenas))
	for id := range arenas {
		ids = append(ids, id)
	}
	return ids
}

// Contains reports whether a point lies inside the arena bounds.
func (a Arena) Contains(x, y float64) bool {
	return x >= 0 && x <= a.Width && y >= 0 && y <= a.Height
}

// ClampCircle clamps a circle center so the circle stays inside the bounds.
func (a Arena) ClampCircle(x, y, r float64) (float64, float64) {
	if x < r {
		x = r
	}
	if x > a.Width-r {
		x = a.Width - r
	}
	if y < r {
		y = r
	}
	if y > a.Height-r {
		y = a.Height - r
	}
	return x, y
}

// CircleHitsWall reports whether a circle overlaps any wall segment.
func (a Arena) CircleHitsWall(x, y, r float64) bool {
	for _, w := range a.Walls {
		if pointSegmentDistance(x, y, w) < r {
			return true
		}
	}
	return false
}

// MoveCircle resolves a circle move from (x,y) to (nx,ny). The target is
// clamped to bounds, then corrected against walls with axis-separated
// sliding: a blocked diagonal move still slides along the free axis.
func (a Arena) MoveCircle(x, y, nx, ny, r float64) (float64, float64) {
	nx, ny = a.ClampCircle(nx, ny, r)
	if !a.CircleHitsWall(nx, ny, r) {
		return nx, ny
	}
	if !a.CircleHitsWall(nx, y, r) {
		return nx, y
	}
	if !a.CircleHitsWall(x, ny, r) {
		return x, ny
	}
	return x, y
}

// pointSegmentDistance returns the distance from a point to the closest
// point on a segment.
func pointSegmentDistance(px, py float64, s Segment) float64 {
	dx := s.X2 - s.X1
	dy := s.Y2 - s.Y1
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-s.X1, py-s.Y1)
	}
	t := ((px-s.X1)*dx + (py-s.Y1)*dy) / lenSq
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	cx := s.X1 + t*dx
	cy := s.Y1 + t*dy
	return math.Hypot(px-cx, py-cy)
}
