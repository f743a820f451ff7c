// Package useragent produces randomized Chrome user-agent strings used as
// camouflage in TCP HTTP header obfuscation.
package useragent

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Platforms are the OS tokens a generated agent may claim.
var Platforms = []string{
	"Macintosh; Intel Mac OS X 10_15",
	"X11; Linux x86_64",
	"Windows NT 10.0; Win64; x64",
}

const (
	minMajor = 50
	maxMajor = 79
	minBuild = 1000
	maxBuild = 4999
	maxPatch = 99
)

// Generator is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Generator backed by the process-wide random source.
func New() *Generator {
	return &Generator{}
}

// NewSeeded returns a Generator whose output is fully determined by seed.
func NewSeeded(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns n freshly generated user agents.
func (g *Generator) Generate(n int) []string {
	if n <= 0 {
		return []string{}
	}

	agents := make([]string, 0, n)
	for i := 0; i < n; i++ {
		agents = append(agents, g.next())
	}
	return agents
}

func (g *Generator) next() string {
	os := Platforms[g.intN(len(Platforms))]
	major := minMajor + g.intN(maxMajor-minMajor+1)
	build := minBuild + g.intN(maxBuild-minBuild+1)
	patch := g.intN(maxPatch + 1)

	return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36",
		os, major, build, patch)
}

func (g *Generator) intN(n int) int {
	if g.rng == nil {
		return rand.IntN(n)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(n)
}
