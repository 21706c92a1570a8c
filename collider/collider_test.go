package collider_test

import (
	"sync"
	"testing"

	"github.com/eak1mov/go-vectiles/collider"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"
)

func square(x0, y0, x1, y1 float64) []vec.Vec2 {
	a, b := vec.Vec2{X: x0, Y: y0}, vec.Vec2{X: x1, Y: y0}
	c, d := vec.Vec2{X: x1, Y: y1}, vec.Vec2{X: x0, Y: y1}
	// One triangle per winding to exercise reordering.
	return []vec.Vec2{a, b, c, a, d, c}
}

func TestQuery(t *testing.T) {
	c := collider.New()
	c.InsertTriangles(3, square(0, 0, 2048, 2048))
	c.InsertTriangles(1, square(1000, 1000, 3000, 3000))
	c.InsertSegments(2, []vec.Vec2{{X: 0, Y: 4000}, {X: 4000, Y: 4000}, {X: 4000, Y: 0}}, 10)
	// Degenerate triangles are ignored.
	c.InsertTriangles(4, []vec.Vec2{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}})
	require.Equal(t, 6, c.Len())

	for _, tc := range []struct {
		Name  string
		Point vec.Vec2
		Want  []int
	}{
		{Name: "Inside", Point: vec.Vec2{X: 10, Y: 10}, Want: []int{3}},
		{Name: "Corner", Point: vec.Vec2{X: 2048, Y: 2048}, Want: []int{3, 1}},
		{Name: "Overlap", Point: vec.Vec2{X: 1500, Y: 1200}, Want: []int{3, 1}},
		{Name: "Diagonal", Point: vec.Vec2{X: 500, Y: 500}, Want: []int{3}},
		{Name: "Line", Point: vec.Vec2{X: 2000, Y: 4005}, Want: []int{2}},
		{Name: "LineJoin", Point: vec.Vec2{X: 4000, Y: 4000}, Want: []int{2}},
		{Name: "Empty", Point: vec.Vec2{X: 3500, Y: 500}, Want: []int{}},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			got, ok := c.TryQuery(tc.Point)
			require.True(t, ok)
			if diff := cmp.Diff(tc.Want, got); diff != "" {
				t.Errorf("TryQuery(%v) mismatch (-want+got):\n%v", tc.Point, diff)
			}
			if diff := cmp.Diff(got, c.Query(tc.Point)); diff != "" {
				t.Errorf("Query(%v) mismatch (-want+got):\n%v", tc.Point, diff)
			}
		})
	}
}

func TestConcurrentQueries(t *testing.T) {
	c := collider.New()
	c.InsertTriangles(0, square(0, 0, 100, 100))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if got, ok := c.TryQuery(vec.Vec2{X: 50, Y: 50}); ok && !cmp.Equal(got, []int{0}) {
					t.Errorf("TryQuery = %v, want = [0]", got)
				}
			}
		}()
	}
	for i := range 50 {
		c.InsertSegments(i+1, []vec.Vec2{{X: 500, Y: float64(i)}, {X: 600, Y: float64(i)}}, 1)
	}
	wg.Wait()
	require.Equal(t, 52, c.Len())
}

func TestQueryOutsideShapeBounds(t *testing.T) {
	c := collider.New()
	c.InsertTriangles(0, []vec.Vec2{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 100}})
	c.InsertSegments(1, []vec.Vec2{{X: 200, Y: 200}, {X: 300, Y: 300}}, 2)

	require.Equal(t, []int{0}, c.Query(vec.Vec2{X: 10, Y: 10}))
	require.Equal(t, []int{0}, c.Query(vec.Vec2{X: 50, Y: 50}))
	require.Empty(t, c.Query(vec.Vec2{X: 90, Y: 90}))
	require.Equal(t, []int{1}, c.Query(vec.Vec2{X: 251, Y: 250}))
	require.Empty(t, c.Query(vec.Vec2{X: 290, Y: 210}))
}

func TestConcurrentNew(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := collider.New()
			c.InsertTriangles(i, square(0, 0, 10, 10))
			if got := c.Query(vec.Vec2{X: 5, Y: 5}); !cmp.Equal(got, []int{i}) {
				t.Errorf("Query = %v, want = [%d]", got, i)
			}
		}()
	}
	wg.Wait()
}
