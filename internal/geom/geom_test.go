package geom

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixInvertRoundTrip(t *testing.T) {
	m := Translate(12, -3).Multiply(Scale(2.5, -4))
	inv := m.Invert()

	x, y := m.TransformPoint(7, 9)
	bx, by := inv.TransformPoint(x, y)
	assert.InDelta(t, 7, bx, 1e-12)
	assert.InDelta(t, 9, by, 1e-12)

	assert.Equal(t, Identity(), Scale(0, 1).Invert(), "singular matrix inverts to identity")
}

func TestEnvelopeIncludeAndFinish(t *testing.T) {
	env := EmptyEnvelope()
	assert.True(t, env.IsEmpty())
	assert.Equal(t, DefaultEnvelope(), env.Finish())

	env = env.Include(5, -2).Include(-1, 8)
	assert.False(t, env.IsEmpty())
	assert.Equal(t, Envelope{MinX: -1, MaxX: 5, MinY: -2, MaxY: 8}, env.Finish())
	assert.Equal(t, 6.0, env.Width())
	assert.Equal(t, 10.0, env.Height())
	assert.True(t, env.Contains(0, 0))
	assert.False(t, env.Contains(6, 0))
}

func TestFitCentersEnvelope(t *testing.T) {
	v := NewViewTransform(0, 0, 20)
	env := Envelope{MinX: 0, MaxX: 100, MinY: 0, MaxY: 50}
	require.True(t, v.Fit(env, 800, 600))

	// width-bound: (800-40)/100 = 7.6 vs (600-40)/50 = 11.2
	assert.InDelta(t, 7.6*0.9, v.Scale, 1e-12)

	// the envelope center lands on the surface center
	cx, cy := v.WorldToDisplay(50, 25)
	assert.InDelta(t, 400, cx, 1e-9)
	assert.InDelta(t, 300, cy, 1e-9)

	// world Y up is display Y down
	_, top := v.WorldToDisplay(0, 50)
	_, bottom := v.WorldToDisplay(0, 0)
	assert.Less(t, top, bottom)
}

func TestFitDegenerateIsNoop(t *testing.T) {
	v := NewViewTransform(640, 480, 10)
	require.True(t, v.Fit(Envelope{MinX: 0, MaxX: 10, MinY: 0, MaxY: 10}, 640, 480))
	before := v

	assert.False(t, v.Fit(Envelope{MinX: 3, MaxX: 3, MinY: 0, MaxY: 10}, 1024, 768))
	assert.False(t, v.Fit(Envelope{MinX: 0, MaxX: 10, MinY: 4, MaxY: 4}, 1024, 768))
	assert.Equal(t, before, v)

	square := Envelope{MinX: 0, MaxX: 10, MinY: 0, MaxY: 10}
	assert.False(t, v.Fit(square, math.NaN(), 768))
	assert.False(t, v.Fit(square, 1024, math.Inf(1)))
	assert.False(t, v.Fit(square, 10, 10))
	assert.Equal(t, before, v)
}

func TestWorldDisplayRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 10; trial++ {
		minX := rng.Float64()*2000 - 1000
		minY := rng.Float64()*2000 - 1000
		env := Envelope{
			MinX: minX,
			MaxX: minX + 1 + rng.Float64()*500,
			MinY: minY,
			MaxY: minY + 1 + rng.Float64()*500,
		}
		v := NewViewTransform(0, 0, rng.Float64()*40)
		require.True(t, v.Fit(env, 200+rng.Float64()*1800, 200+rng.Float64()*1800))

		for i := 0; i < 100; i++ {
			x := env.MinX + rng.Float64()*env.Width()
			y := env.MinY + rng.Float64()*env.Height()
			dx, dy := v.WorldToDisplay(x, y)
			bx, by := v.DisplayToWorld(dx, dy)
			require.False(t, math.IsNaN(bx) || math.IsNaN(by))
			assert.InDelta(t, x, bx, 1e-6)
			assert.InDelta(t, y, by, 1e-6)
		}
	}
}
