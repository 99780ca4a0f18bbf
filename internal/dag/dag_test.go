package dag

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/blockflow/internal/flowerr"
	"github.com/vk/blockflow/internal/workflow"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
	assert.Equal(t, 0, g.Len())
}

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a")
	assert.Len(t, g.nodes, 1)
	nodeA, ok := g.nodes["a"]
	require.True(t, ok)
	assert.Equal(t, "a", nodeA.id)
	assert.Equal(t, 0, nodeA.inDegree)

	g.AddNode("a") // Test idempotency
	assert.Len(t, g.nodes, 1)
	assert.Equal(t, []string{"a"}, g.order)

	g.AddNode("b")
	assert.Len(t, g.nodes, 2)
	assert.Equal(t, 1, g.nodes["b"].index)
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("a", "b") // b depends on a
		require.NoError(t, err)

		deps, err := g.Dependents("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, deps)

		in, err := g.InDegree("b")
		require.NoError(t, err)
		assert.Equal(t, 1, in)

		in, err = g.InDegree("a")
		require.NoError(t, err)
		assert.Equal(t, 0, in)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("dne", "a")
		assert.ErrorContains(t, err, "source node not found")

		err = g.AddEdge("a", "dne")
		assert.ErrorContains(t, err, "destination node not found")

		err = g.AddEdge("a", "a")
		assert.ErrorContains(t, err, "self-referential edge")

		_, err = g.InDegree("dne")
		assert.ErrorContains(t, err, "node not found")

		_, err = g.Dependents("dne")
		assert.ErrorContains(t, err, "node not found")
	})
}

func TestSort(t *testing.T) {
	t.Run("empty graph sorts to empty order", func(t *testing.T) {
		order, err := New().Sort()
		require.NoError(t, err)
		assert.Empty(t, order)
	})

	t.Run("root ties follow declaration order", func(t *testing.T) {
		g := New()
		g.AddNode("A")
		g.AddNode("B")
		order, err := g.Sort()
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, order)

		g = New()
		g.AddNode("B")
		g.AddNode("A")
		order, err = g.Sort()
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "A"}, order)
	})

	t.Run("newly ready nodes follow declaration order", func(t *testing.T) {
		g := New()
		// Declared: root, z, y. Edges are added y first to make sure the
		// tie-break does not depend on edge insertion order.
		g.AddNode("root")
		g.AddNode("z")
		g.AddNode("y")
		require.NoError(t, g.AddEdge("root", "y"))
		require.NoError(t, g.AddEdge("root", "z"))

		order, err := g.Sort()
		require.NoError(t, err)
		assert.Equal(t, []string{"root", "z", "y"}, order)
	})

	t.Run("consumer declared before producer", func(t *testing.T) {
		g := New()
		g.AddNode("display")
		g.AddNode("generate")
		require.NoError(t, g.AddEdge("generate", "display"))

		order, err := g.Sort()
		require.NoError(t, err)
		assert.Equal(t, []string{"generate", "display"}, order)
	})

	t.Run("simple direct cycle is detected", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))

		order, err := g.Sort()
		assert.Nil(t, order)
		assert.True(t, errors.Is(err, flowerr.ErrCyclicWorkflow))
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))

		g.AddNode("x")
		g.AddNode("y")
		g.AddNode("z")
		require.NoError(t, g.AddEdge("x", "y"))
		require.NoError(t, g.AddEdge("y", "z"))
		require.NoError(t, g.AddEdge("z", "y"))

		order, err := g.Sort()
		assert.Nil(t, order)
		require.Error(t, err)
		assert.True(t, errors.Is(err, flowerr.ErrCyclicWorkflow))
		assert.Contains(t, err.Error(), "[y z]")
	})
}

// TestSort_RandomAcyclic checks the ordering properties over many random DAGs.
// Edges only go from lower to higher generation index, so every graph is
// acyclic; declaration order is shuffled independently.
func TestSort_RandomAcyclic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		size := 1 + rng.Intn(12)
		ids := make([]string, size)
		for i := range ids {
			ids[i] = fmt.Sprintf("n%d", i)
		}

		type edge struct{ from, to string }
		var edges []edge
		for to := 1; to < size; to++ {
			for from := 0; from < to; from++ {
				if rng.Intn(4) == 0 {
					edges = append(edges, edge{ids[from], ids[to]})
				}
			}
		}

		declared := append([]string(nil), ids...)
		rng.Shuffle(len(declared), func(i, j int) { declared[i], declared[j] = declared[j], declared[i] })

		g := New()
		for _, id := range declared {
			g.AddNode(id)
		}
		for _, e := range edges {
			require.NoError(t, g.AddEdge(e.from, e.to))
		}

		order, err := g.Sort()
		require.NoError(t, err, "round %d", round)
		require.Len(t, order, size, "round %d", round)

		pos := make(map[string]int, size)
		for i, id := range order {
			pos[id] = i
		}
		require.Len(t, pos, size, "order must be a permutation")
		for _, e := range edges {
			assert.Less(t, pos[e.from], pos[e.to], "round %d: edge %s -> %s", round, e.from, e.to)
		}
	}
}

// TestSort_RandomCyclic closes a back edge over a random chain and expects
// the whole graph to be rejected.
func TestSort_RandomCyclic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 100; round++ {
		size := 2 + rng.Intn(10)
		g := New()
		for i := 0; i < size; i++ {
			g.AddNode(fmt.Sprintf("n%d", i))
		}
		for i := 1; i < size; i++ {
			require.NoError(t, g.AddEdge(fmt.Sprintf("n%d", i-1), fmt.Sprintf("n%d", i)))
		}
		from := 1 + rng.Intn(size-1)
		to := rng.Intn(from)
		require.NoError(t, g.AddEdge(fmt.Sprintf("n%d", from), fmt.Sprintf("n%d", to)))

		order, err := g.Sort()
		assert.Nil(t, order, "round %d", round)
		assert.True(t, errors.Is(err, flowerr.ErrCyclicWorkflow), "round %d", round)
	}
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("derives one edge per input slot", func(t *testing.T) {
		nodes := []workflow.Node{
			{ID: "n1", Type: workflow.GenerateText},
			{ID: "n2", Type: workflow.DisplayText, Inputs: map[string]string{"input": "n1"}},
			{ID: "n3", Type: workflow.GenerateImage, Inputs: map[string]string{"input": "n1"}},
		}
		g, err := Build(ctx, nodes)
		require.NoError(t, err)
		assert.Equal(t, 3, g.Len())

		deps, err := g.Dependents("n1")
		require.NoError(t, err)
		assert.Equal(t, []string{"n2", "n3"}, deps)

		for id, want := range map[string]int{"n1": 0, "n2": 1, "n3": 1} {
			in, err := g.InDegree(id)
			require.NoError(t, err)
			assert.Equal(t, want, in, id)
		}
	})

	t.Run("unknown producer", func(t *testing.T) {
		_, err := Build(ctx, []workflow.Node{
			{ID: "n2", Type: workflow.DisplayText, Inputs: map[string]string{"input": "ghost"}},
		})
		assert.True(t, errors.Is(err, flowerr.ErrUnknownReference))
		assert.ErrorContains(t, err, "ghost")
	})

	t.Run("duplicate ids", func(t *testing.T) {
		_, err := Build(ctx, []workflow.Node{
			{ID: "n1", Type: workflow.GenerateText},
			{ID: "n1", Type: workflow.GenerateText},
		})
		assert.True(t, errors.Is(err, flowerr.ErrDuplicateNode))
	})

	t.Run("self reference is a cycle", func(t *testing.T) {
		_, err := Build(ctx, []workflow.Node{
			{ID: "loop", Type: workflow.DisplayText, Inputs: map[string]string{"input": "loop"}},
		})
		assert.True(t, errors.Is(err, flowerr.ErrCyclicWorkflow))
	})
}
