package geometry

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/df07/go-tile-pathtracer/pkg/core"
	"github.com/df07/go-tile-pathtracer/pkg/material"
)

var allHeuristics = []SplitHeuristic{SplitEqual, SplitMiddle, SplitSAH}

// testMaterials: index 0 is opaque and culls back faces, index 1 is glass
func testMaterials() []material.Material {
	return []material.Material{
		material.NewDiffuse(core.NewVec3(0.5, 0.5, 0.5)),
		material.NewRefractive(core.NewVec3(1, 1, 1), 1.5),
	}
}

func randomVec(random *rand.Rand, scale float64) core.Vec3 {
	return core.NewVec3(
		(random.Float64()*2-1)*scale,
		(random.Float64()*2-1)*scale,
		(random.Float64()*2-1)*scale,
	)
}

func randomTriangles(random *rand.Rand, n int) []Triangle {
	triangles := make([]Triangle, n)
	for i := range triangles {
		center := randomVec(random, 1)
		tri := NewFlatTriangle(
			center.Add(randomVec(random, 0.2)),
			center.Add(randomVec(random, 0.2)),
			center.Add(randomVec(random, 0.2)),
			random.Intn(2),
		)
		tri.ID = i
		triangles[i] = tri
	}
	return triangles
}

func randomRays(random *rand.Rand, n int) []core.Ray {
	rays := make([]core.Ray, n)
	for i := range rays {
		origin := randomVec(random, 2)
		target := randomVec(random, 1)
		rays[i] = core.NewRay(origin, target.Subtract(origin))
	}
	return rays
}

// bruteNearest tests every triangle; ties go to the lowest ID
func bruteNearest(triangles []Triangle, materials []material.Material, ray core.Ray) (HitRecord, int) {
	closest := NoHit()
	closestID := -1
	for i := range triangles {
		tri := &triangles[i]
		var rec HitRecord
		if !tri.Hit(ray, materials[tri.MaterialIndex].CullBackFace(), &rec) {
			continue
		}
		if rec.T < closest.T || (rec.T == closest.T && tri.ID < closestID) {
			closest = rec
			closestID = tri.ID
		}
	}
	return closest, closestID
}

func bruteAny(triangles []Triangle, materials []material.Material, ray core.Ray) bool {
	for i := range triangles {
		tri := &triangles[i]
		mat := &materials[tri.MaterialIndex]
		var rec HitRecord
		if tri.Hit(ray, mat.CullBackFace(), &rec) && mat.Occludes() {
			return true
		}
	}
	return false
}

func TestBVH_NearestHitMatchesBruteForce(t *testing.T) {
	materials := testMaterials()

	for _, heuristic := range allHeuristics {
		t.Run(heuristic.String(), func(t *testing.T) {
			random := rand.New(rand.NewSource(7))
			original := randomTriangles(random, 500)
			triangles := append([]Triangle(nil), original...)
			bvh := BuildBVH(triangles, materials, heuristic)

			for i, ray := range randomRays(random, 2000) {
				expected, expectedID := bruteNearest(original, materials, ray)

				traced := ray
				got := bvh.NearestHit(&traced)

				if got.Hit != expected.Hit {
					t.Fatalf("ray %d: expected hit=%v, got hit=%v", i, expected.Hit, got.Hit)
				}
				if !got.Hit {
					continue
				}
				if got.T != expected.T {
					t.Errorf("ray %d: expected t=%v, got t=%v", i, expected.T, got.T)
				}
				if id := bvh.Triangles[got.TriangleIndex].ID; id != expectedID {
					t.Errorf("ray %d: expected triangle %d, got %d", i, expectedID, id)
				}
				if traced.MaxT != got.T {
					t.Errorf("ray %d: expected MaxT shrunk to %v, got %v", i, got.T, traced.MaxT)
				}
			}
		})
	}
}

func TestBVH_AnyHitMatchesBruteForce(t *testing.T) {
	materials := testMaterials()

	for _, heuristic := range allHeuristics {
		t.Run(heuristic.String(), func(t *testing.T) {
			random := rand.New(rand.NewSource(11))
			original := randomTriangles(random, 300)
			triangles := append([]Triangle(nil), original...)
			bvh := BuildBVH(triangles, materials, heuristic)

			for i, ray := range randomRays(random, 1000) {
				// Bounded rays exercise the MaxT cutoff as well
				if i%2 == 1 {
					ray.MaxT = random.Float64() * 3
				}
				if got, expected := bvh.AnyHit(ray), bruteAny(original, materials, ray); got != expected {
					t.Errorf("ray %d: expected any-hit=%v, got %v", i, expected, got)
				}
			}
		})
	}
}

func TestBVH_AnyHitIgnoresRefractive(t *testing.T) {
	materials := testMaterials()
	glass := NewFlatTriangle(core.NewVec3(-1, -1, 0), core.NewVec3(1, -1, 0), core.NewVec3(0, 1, 0), 1)
	bvh := BuildBVH([]Triangle{glass}, materials, SplitEqual)

	ray := core.NewRay(core.NewVec3(0, 0, 1), core.NewVec3(0, 0, -1))
	if bvh.AnyHit(ray) {
		t.Error("Glass should not block shadow rays")
	}

	traced := ray
	if rec := bvh.NearestHit(&traced); !rec.Hit {
		t.Error("Glass should still be found by nearest-hit queries")
	}
}

func TestBVH_AnyHitOpaqueInFrontOfGlass(t *testing.T) {
	materials := testMaterials()
	glass := NewFlatTriangle(core.NewVec3(-1, -1, 0), core.NewVec3(1, -1, 0), core.NewVec3(0, 1, 0), 1)
	wall := NewFlatTriangle(core.NewVec3(-1, -1, 0.5), core.NewVec3(1, -1, 0.5), core.NewVec3(0, 1, 0.5), 0)
	ray := core.NewRay(core.NewVec3(0, 0, 1), core.NewVec3(0, 0, -1))

	for _, heuristic := range allHeuristics {
		bvh := BuildBVH([]Triangle{glass, wall}, materials, heuristic)
		if !bvh.AnyHit(ray) {
			t.Errorf("%s: opaque triangle in front of glass should block shadow rays", heuristic)
		}

		short := ray
		short.MaxT = 0.25
		if bvh.AnyHit(short) {
			t.Errorf("%s: ray ending before the opaque triangle should not be blocked", heuristic)
		}
	}
}

// wideStack returns triangles spanning x in [-10, 10] stacked along y, so the
// node box is longest in x while the centroids only vary in y.
func wideStack(n int) []Triangle {
	triangles := make([]Triangle, n)
	for i := range triangles {
		y := float64(i)
		tri := NewFlatTriangle(core.NewVec3(-10, y, 0), core.NewVec3(10, y, 0), core.NewVec3(0, y+0.5, 0), 0)
		tri.ID = i
		triangles[i] = tri
	}
	return triangles
}

func TestBVH_SplitAxisFollowsNodeBox(t *testing.T) {
	for _, heuristic := range []SplitHeuristic{SplitEqual, SplitMiddle} {
		t.Run(heuristic.String(), func(t *testing.T) {
			bvh := BuildBVH(wideStack(8), testMaterials(), heuristic)

			root := bvh.Nodes[0]
			if root.IsLeaf() {
				t.Fatal("Expected an interior root")
			}
			if axis := root.BoundingBox.LongestAxis(); int(root.SplitAxis) != axis || axis != 0 {
				t.Errorf("Expected split axis %d (longest node box axis), got %d", axis, root.SplitAxis)
			}

			// All centroids sit on the midpoint, so the build falls back to a median split
			left := bvh.Nodes[1]
			right := bvh.Nodes[root.Offset]
			if left.Count+right.Count != 8 || !left.IsLeaf() || !right.IsLeaf() {
				t.Errorf("Expected two leaves holding all triangles, got %d and %d", left.Count, right.Count)
			}
		})
	}
}

func TestBVH_Empty(t *testing.T) {
	bvh := BuildBVH(nil, testMaterials(), SplitSAH)

	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	if rec := bvh.NearestHit(&ray); rec.Hit || !math.IsInf(rec.T, 1) {
		t.Errorf("Expected no hit from empty BVH, got %+v", rec)
	}
	if bvh.AnyHit(ray) {
		t.Error("Expected no any-hit from empty BVH")
	}
	if stats := bvh.Stats(); stats.Nodes != 0 || stats.Leaves != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
}

func TestBVH_PartitionCompleteness(t *testing.T) {
	for _, heuristic := range allHeuristics {
		t.Run(heuristic.String(), func(t *testing.T) {
			random := rand.New(rand.NewSource(3))
			triangles := randomTriangles(random, 1000)
			bvh := BuildBVH(triangles, testMaterials(), heuristic)

			// Every triangle appears exactly once
			ids := make([]int, len(bvh.Triangles))
			for i, tri := range bvh.Triangles {
				ids[i] = tri.ID
			}
			sort.Ints(ids)
			for i, id := range ids {
				if id != i {
					t.Fatalf("Triangle IDs are not a permutation: position %d holds %d", i, id)
				}
			}

			type leafRange struct{ start, end int }
			var leaves []leafRange
			type entry struct{ index, depth int }
			pending := []entry{{0, 0}}

			for len(pending) > 0 {
				e := pending[len(pending)-1]
				pending = pending[:len(pending)-1]
				node := &bvh.Nodes[e.index]

				if e.depth > maxDepth {
					t.Fatalf("Node %d exceeds max depth: %d", e.index, e.depth)
				}

				if node.IsLeaf() {
					start, end := int(node.Offset), int(node.Offset+node.Count)
					if int(node.Count) > leafThreshold && e.depth < maxDepth {
						t.Errorf("Leaf %d above depth limit holds %d triangles", e.index, node.Count)
					}
					for i := start; i < end; i++ {
						box := bvh.Triangles[i].BoundingBox()
						if !node.BoundingBox.Contains(box.Min) || !node.BoundingBox.Contains(box.Max) {
							t.Errorf("Leaf %d does not bound triangle %d", e.index, i)
						}
					}
					leaves = append(leaves, leafRange{start, end})
					continue
				}

				first, second := e.index+1, int(node.Offset)
				for _, child := range []int{first, second} {
					childBox := bvh.Nodes[child].BoundingBox
					if !node.BoundingBox.Contains(childBox.Min) || !node.BoundingBox.Contains(childBox.Max) {
						t.Errorf("Node %d does not bound child %d", e.index, child)
					}
				}
				pending = append(pending, entry{first, e.depth + 1}, entry{second, e.depth + 1})
			}

			// Leaf ranges tile [0, N) without gaps or overlap
			sort.Slice(leaves, func(i, j int) bool { return leaves[i].start < leaves[j].start })
			next := 0
			for _, leaf := range leaves {
				if leaf.start != next {
					t.Fatalf("Leaf ranges leave a gap or overlap at %d (next leaf starts at %d)", next, leaf.start)
				}
				next = leaf.end
			}
			if next != len(bvh.Triangles) {
				t.Errorf("Leaf ranges end at %d, expected %d", next, len(bvh.Triangles))
			}
		})
	}
}

func TestBVH_SmallSceneIsSingleLeaf(t *testing.T) {
	random := rand.New(rand.NewSource(5))
	for n := 1; n <= leafThreshold; n++ {
		bvh := BuildBVH(randomTriangles(random, n), testMaterials(), SplitSAH)
		if len(bvh.Nodes) != 1 || !bvh.Nodes[0].IsLeaf() || int(bvh.Nodes[0].Count) != n {
			t.Errorf("Expected a single leaf for %d triangles, got %d nodes", n, len(bvh.Nodes))
		}
	}
}

func TestBVH_CoincidentTrianglesPickLowestID(t *testing.T) {
	for _, heuristic := range allHeuristics {
		t.Run(heuristic.String(), func(t *testing.T) {
			triangles := make([]Triangle, 40)
			for i := range triangles {
				tri := NewFlatTriangle(
					core.NewVec3(0, 0, 0),
					core.NewVec3(1, 0, 0.5),
					core.NewVec3(0, 1, 0.5),
					0,
				)
				tri.ID = len(triangles) - 1 - i
				triangles[i] = tri
			}
			bvh := BuildBVH(triangles, testMaterials(), heuristic)

			ray := core.NewRay(core.NewVec3(0.2, 0.2, 5), core.NewVec3(0, 0, -1))
			rec := bvh.NearestHit(&ray)
			if !rec.Hit {
				t.Fatal("Expected hit")
			}
			if id := bvh.Triangles[rec.TriangleIndex].ID; id != 0 {
				t.Errorf("Expected lowest triangle ID 0, got %d", id)
			}
		})
	}
}

func TestBVH_Stats(t *testing.T) {
	random := rand.New(rand.NewSource(9))
	bvh := BuildBVH(randomTriangles(random, 200), testMaterials(), SplitMiddle)
	stats := bvh.Stats()

	if bvh.Heuristic() != SplitMiddle || stats.Heuristic != SplitMiddle {
		t.Errorf("Expected middle heuristic, got %v / %v", bvh.Heuristic(), stats.Heuristic)
	}
	if stats.Triangles != 200 {
		t.Errorf("Expected 200 triangles, got %d", stats.Triangles)
	}
	if stats.Nodes != 2*stats.Leaves-1 {
		t.Errorf("Binary tree should have 2*leaves-1 nodes: %d nodes, %d leaves", stats.Nodes, stats.Leaves)
	}
	if stats.MaxDepth > maxDepth {
		t.Errorf("Max depth %d exceeds limit %d", stats.MaxDepth, maxDepth)
	}

	table := stats.Table()
	if !strings.Contains(table, "middle") || !strings.Contains(table, "200") {
		t.Errorf("Stats table missing values:\n%s", table)
	}
}

func TestParseSplitHeuristic(t *testing.T) {
	tests := []struct {
		input    string
		expected SplitHeuristic
		wantErr  bool
	}{
		{"equal", SplitEqual, false},
		{"Middle", SplitMiddle, false},
		{"SAH", SplitSAH, false},
		{"octree", SplitEqual, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSplitHeuristic(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
