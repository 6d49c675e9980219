package weave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestBuildGeometryCounts(t *testing.T) {
	for n := 2; n <= 16; n++ {
		g, err := BuildGeometry(n, DefaultLayout())
		require.NoError(t, err)
		require.Len(t, g.Rows, n)
		require.Len(t, g.Columns, n)
		for i := 0; i < n; i++ {
			assert.Len(t, g.Rows[i].Anchors, 2*n+1, "row %d of %d", i, n)
			assert.Len(t, g.Columns[i].Anchors, 2*n+1, "column %d of %d", i, n)
		}
	}
}

func TestBuildGeometryRejectsSmallGrids(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		_, err := BuildGeometry(n, DefaultLayout())
		assert.ErrorIs(t, err, ErrGridTooSmall)
	}
}

func TestBuildGeometryPositions(t *testing.T) {
	g, err := BuildGeometry(4, DefaultLayout())
	require.NoError(t, err)

	assert.InDelta(t, (640.0-60-40.0/3)/3, g.Gap, 1e-9)

	row := g.Rows[0]
	assert.Equal(t, r2.Vec{X: 80, Y: 110}, row.Start)
	assert.Equal(t, r2.Vec{X: 90, Y: 110}, row.Anchors[0])
	assert.Equal(t, r2.Vec{X: 130, Y: 110}, row.Anchors[1])
	assert.Equal(t, r2.Vec{X: 720, Y: 110}, row.End())

	col := g.Columns[2]
	assert.Equal(t, 80.0, col.Start.Y)
	assert.InDelta(t, 110+2*g.Gap, col.Start.X, 1e-9)
	assert.Equal(t, 720.0, col.End().Y)

	// Anchors advance monotonically along each thread.
	for _, th := range append(g.Rows, g.Columns...) {
		for i := 1; i < len(th.Anchors); i++ {
			d := r2.Sub(th.Anchors[i], th.Anchors[i-1])
			assert.Greater(t, d.X+d.Y, 0.0)
		}
	}
}

func TestCellPoint(t *testing.T) {
	g, err := BuildGeometry(4, DefaultLayout())
	require.NoError(t, err)

	// Cell 0 is the bottom-right crossing.
	p, ok := g.CellPoint(0)
	require.True(t, ok)
	assert.InDelta(t, 110+3*g.Gap, p.X, 1e-9)
	assert.InDelta(t, 110+3*g.Gap, p.Y, 1e-9)

	// The last cell is the top-left crossing.
	p, ok = g.CellPoint(15)
	require.True(t, ok)
	assert.InDelta(t, 110, p.X, 1e-9)
	assert.InDelta(t, 110, p.Y, 1e-9)

	_, ok = g.CellPoint(16)
	assert.False(t, ok)
}

func TestThreadWidthFor(t *testing.T) {
	assert.Equal(t, 40.0, ThreadWidthFor(4))
	assert.Equal(t, 40.0, ThreadWidthFor(10))
	assert.Equal(t, 35.0, ThreadWidthFor(11))
	assert.Equal(t, 25.0, ThreadWidthFor(13))
}
