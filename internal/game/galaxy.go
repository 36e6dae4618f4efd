package game

import "math/rand"

type Galaxy struct {
	planets []*Planet
}

func newGalaxy(seed int64, n int) *Galaxy {
	rng := rand.New(rand.NewSource(seed))
	classes := []PlanetClass{ClassA, ClassB, ClassC}
	g := &Galaxy{planets: make([]*Planet, 0, n)}
	for i := 0; i < n; i++ {
		g.planets = append(g.planets, newPlanet(i+1, classes[rng.Intn(len(classes))]))
	}
	return g
}

func (g *Galaxy) sim() {
	for _, p := range g.planets {
		p.sim()
	}
}

func (g *Galaxy) planet(id int) *Planet {
	if id < 1 || id > len(g.planets) {
		return nil
	}
	return g.planets[id-1]
}
