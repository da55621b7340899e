package lights

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-tile-pathtracer/pkg/core"
)

// ceilingLight faces down (-Y) at height 2
func ceilingLight(emission core.Vec3) EmissiveTriangle {
	return NewEmissiveTriangle(
		core.NewVec3(-1, 2, -1),
		core.NewVec3(1, 2, -1),
		core.NewVec3(0, 2, 1),
		emission,
	)
}

func randomVec3(random *rand.Rand) core.Vec3 {
	return core.NewVec3(random.Float64(), random.Float64(), random.Float64())
}

func TestEmissiveTriangle_Geometry(t *testing.T) {
	tri := ceilingLight(core.NewVec3(1, 1, 1))

	if tri.Normal.Subtract(core.NewVec3(0, -1, 0)).Length() > 1e-12 {
		t.Errorf("Expected normal (0,-1,0), got %v", tri.Normal)
	}
	if math.Abs(tri.Area-2) > 1e-12 {
		t.Errorf("Expected area 2, got %f", tri.Area)
	}
}

func TestEmissiveSampler_Empty(t *testing.T) {
	sampler := NewEmissiveSampler()
	if _, ok := sampler.Sample(core.NewVec3(0, 0, 0), core.NewVec3(0.5, 0.5, 0.5)); ok {
		t.Error("Empty sampler should not produce samples")
	}
	if pdf := sampler.EvalPDF(0, core.NewVec3(0, 0, 0), core.NewVec3(0, 2, 0)); pdf != 0 {
		t.Errorf("Expected zero density for a missing triangle, got %f", pdf)
	}
}

func TestEmissiveSampler_SampleMatchesEvalPDF(t *testing.T) {
	sampler := NewEmissiveSampler(
		ceilingLight(core.NewVec3(5, 5, 5)),
		NewEmissiveTriangle(core.NewVec3(3, 0, 0), core.NewVec3(3, 1, 0), core.NewVec3(3, 0, 1), core.NewVec3(1, 0, 0)),
	)
	point := core.NewVec3(0.1, 0, 0.2)
	random := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		sample, ok := sampler.Sample(point, randomVec3(random))
		if !ok {
			continue
		}
		if pdf := sampler.EvalPDF(sample.Index, point, sample.Point); pdf != sample.PDF {
			t.Fatalf("sample %d: Sample PDF %v differs from EvalPDF %v", i, sample.PDF, pdf)
		}
		if math.Abs(sample.Direction.Length()-1) > 1e-12 {
			t.Fatalf("sample %d: direction not normalized: %v", i, sample.Direction)
		}
		if sample.Point.Subtract(point.Add(sample.Direction.Multiply(sample.Distance))).Length() > 1e-9 {
			t.Fatalf("sample %d: direction and distance do not reach the sampled point", i)
		}
	}
}

func TestEmissiveSampler_PointsLieOnTriangle(t *testing.T) {
	tri := ceilingLight(core.NewVec3(1, 1, 1))
	sampler := NewEmissiveSampler(tri)
	random := rand.New(rand.NewSource(2))

	for i := 0; i < 1000; i++ {
		sample, ok := sampler.Sample(core.NewVec3(0, 0, 0), randomVec3(random))
		if !ok {
			t.Fatalf("sample %d: expected a sample facing the light", i)
		}
		p := sample.Point
		if math.Abs(p.Y-2) > 1e-12 {
			t.Fatalf("sample %d: point %v is off the light plane", i, p)
		}

		// Sub-triangle areas sum to the full area only for interior points
		a := core.NewVec3(-1, 2, -1)
		b := core.NewVec3(1, 2, -1)
		c := core.NewVec3(0, 2, 1)
		sum := 0.5 * (b.Subtract(p).Cross(c.Subtract(p)).Length() +
			c.Subtract(p).Cross(a.Subtract(p)).Length() +
			a.Subtract(p).Cross(b.Subtract(p)).Length())
		if math.Abs(sum-tri.Area) > 1e-9 {
			t.Fatalf("sample %d: point %v lies outside the triangle", i, p)
		}
	}
}

func TestEmissiveSampler_UniformSelection(t *testing.T) {
	sampler := NewEmissiveSampler(
		ceilingLight(core.NewVec3(1, 0, 0)),
		ceilingLight(core.NewVec3(0, 1, 0)),
		ceilingLight(core.NewVec3(0, 0, 1)),
		ceilingLight(core.NewVec3(1, 1, 1)),
	)

	counts := make([]int, sampler.Len())
	random := rand.New(rand.NewSource(3))
	const samples = 40000
	for i := 0; i < samples; i++ {
		sample, ok := sampler.Sample(core.NewVec3(0, 0, 0), randomVec3(random))
		if !ok {
			t.Fatal("Expected every sample to succeed")
		}
		counts[sample.Index]++
	}

	for i, count := range counts {
		fraction := float64(count) / samples
		if math.Abs(fraction-0.25) > 0.02 {
			t.Errorf("Triangle %d selected with frequency %.3f, expected 0.25", i, fraction)
		}
	}

	// random.X == 1 must still select a valid triangle
	if sample, ok := sampler.Sample(core.NewVec3(0, 0, 0), core.NewVec3(1, 0.2, 0.2)); !ok || sample.Index != 3 {
		t.Errorf("Expected the last triangle for random.X=1, got %d (ok=%v)", sample.Index, ok)
	}
}

func TestEmissiveSampler_BackFaceHasNoDensity(t *testing.T) {
	sampler := NewEmissiveSampler(ceilingLight(core.NewVec3(1, 1, 1)))

	above := core.NewVec3(0, 5, 0)
	if _, ok := sampler.Sample(above, core.NewVec3(0.5, 0.3, 0.3)); ok {
		t.Error("Sampling from behind the emitter should fail")
	}
	if pdf := sampler.EvalPDF(0, above, core.NewVec3(0, 2, 0)); pdf != 0 {
		t.Errorf("Expected zero density from behind, got %f", pdf)
	}
}

// solidAngle returns the solid angle of triangle abc seen from the origin (Van Oosterom & Strackee)
func solidAngle(a, b, c core.Vec3) float64 {
	la, lb, lc := a.Length(), b.Length(), c.Length()
	numerator := math.Abs(a.Dot(b.Cross(c)))
	denominator := la*lb*lc + a.Dot(b)*lc + a.Dot(c)*lb + b.Dot(c)*la
	return 2 * math.Atan2(numerator, denominator)
}

func TestEmissiveSampler_DensityIntegratesToSolidAngle(t *testing.T) {
	// E[1/pdf] over samples equals the solid angle subtended by the light
	tri := ceilingLight(core.NewVec3(1, 1, 1))
	sampler := NewEmissiveSampler(tri)
	point := core.NewVec3(0.3, 0, 0.1)
	random := rand.New(rand.NewSource(4))

	const samples = 200000
	sum := 0.0
	for i := 0; i < samples; i++ {
		sample, ok := sampler.Sample(point, randomVec3(random))
		if !ok {
			t.Fatal("Expected every sample to succeed")
		}
		sum += 1 / sample.PDF
	}

	estimate := sum / samples
	expected := solidAngle(tri.V0.Subtract(point), tri.V1.Subtract(point), tri.V2.Subtract(point))
	if math.Abs(estimate-expected)/expected > 0.01 {
		t.Errorf("Expected solid angle %f, estimated %f", expected, estimate)
	}
}
