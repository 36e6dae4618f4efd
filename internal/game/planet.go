package game

import "fmt"

type PlanetClass string

const (
	ClassA PlanetClass = "A" // barren
	ClassB PlanetClass = "B" // temperate
	ClassC PlanetClass = "C" // lush
)

// growthPerTick is the resource yield of one sim tick by planet class.
var growthPerTick = map[PlanetClass]uint64{
	ClassA: 1,
	ClassB: 3,
	ClassC: 7,
}

type Planet struct {
	ID        int         `json:"id"`
	Name      string      `json:"name"`
	Class     PlanetClass `json:"class"`
	Resources uint64      `json:"resources"`
}

func newPlanet(id int, class PlanetClass) *Planet {
	return &Planet{
		ID:    id,
		Name:  fmt.Sprintf("ZP-%04d", id),
		Class: class,
	}
}

func (p *Planet) sim() {
	p.Resources += growthPerTick[p.Class]
}
