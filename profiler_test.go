package volumetrics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfilerScopesAndCounts(t *testing.T) {
	p := NewProfiler()
	end := p.Scope("fog.execute")
	time.Sleep(time.Millisecond)
	end()
	p.SetCount("fog.lights", 3)

	assert.Greater(t, p.Duration("fog.execute"), time.Duration(0))
	assert.Equal(t, 3, p.Count("fog.lights"))

	stats := p.GetStatsString()
	assert.True(t, strings.Contains(stats, "fog.execute"))
	assert.True(t, strings.Contains(stats, "fog.lights"))

	p.Reset()
	assert.Zero(t, p.Duration("fog.execute"))
	assert.Equal(t, []string{"fog.execute"}, p.Order)
}

func TestNilProfilerIsSafe(t *testing.T) {
	var p *Profiler
	assert.NotPanics(t, func() {
		p.Scope("x")()
		p.SetCount("x", 1)
		p.Reset()
	})
	assert.Zero(t, p.Count("x"))
	assert.Empty(t, p.GetStatsString())
}
