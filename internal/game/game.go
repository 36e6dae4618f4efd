package game

import "sync/atomic"

// Game is the authoritative world state. It is exclusively owned by the core
// loop goroutine; nothing here is safe for concurrent mutation. The tick
// counter is atomic only so read-model surfaces (/metrics, the live feed)
// can observe it without touching the loop.
type Game struct {
	tick   atomic.Uint64
	galaxy *Galaxy
}

type GameConfig struct {
	Seed            int64
	NumberOfPlanets int
}

func New(cfg GameConfig) *Game {
	return &Game{
		galaxy: newGalaxy(cfg.Seed, cfg.NumberOfPlanets),
	}
}

// Sim advances the world by one tick. Core loop goroutine only.
func (g *Game) Sim() {
	g.galaxy.sim()
	g.tick.Add(1)
}

func (g *Game) Time() uint64 { return g.tick.Load() }

// GalaxySummary is the read model served by the galaxy command.
type GalaxySummary struct {
	Time    uint64       `json:"time"`
	Planets []PlanetInfo `json:"planets"`
}

type PlanetInfo struct {
	ID    int         `json:"id"`
	Name  string      `json:"name"`
	Class PlanetClass `json:"class"`
}

func (g *Game) GalaxySummary() GalaxySummary {
	s := GalaxySummary{Time: g.Time(), Planets: make([]PlanetInfo, 0, len(g.galaxy.planets))}
	for _, p := range g.galaxy.planets {
		s.Planets = append(s.Planets, PlanetInfo{ID: p.ID, Name: p.Name, Class: p.Class})
	}
	return s
}

// Planet returns a copy of one planet's state, or false if the id is out of
// range.
func (g *Game) Planet(id int) (Planet, bool) {
	p := g.galaxy.planet(id)
	if p == nil {
		return Planet{}, false
	}
	return *p, true
}

func (g *Game) PlanetCount() int { return len(g.galaxy.planets) }
