package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
modules:
  activos:
    tree:
      - id: infra
        label: Infraestructura
        kind: category
        children:
          - id: srv-db
            label: Servidor de base de datos principal
            kind: server
          - id: srv-web
            label: Servidor web
            kind: server
  riesgos:
    tree:
      - id: r1
        label: Riesgo operativo
    flat:
      - id: r1
        label: Riesgo operativo
        path: [Operativos]
`

func writeSample(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sample), 0o644))
	return p
}

type countingSource struct {
	Source
	trees int
	fail  error
}

func (c *countingSource) Tree(ctx context.Context, module string) ([]Node, error) {
	c.trees++
	if c.fail != nil {
		return nil, c.fail
	}
	return c.Source.Tree(ctx, module)
}

func TestFileSource(t *testing.T) {
	src := NewFileSource(writeSample(t))
	ctx := context.Background()

	tree, err := src.Tree(ctx, "Activos")
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Len(t, tree[0].Children, 2)

	flat, err := src.Flat(ctx, "activos")
	require.NoError(t, err)
	require.Len(t, flat, 3)
	assert.Equal(t, "srv-db", flat[1].ID)
	assert.Equal(t, []string{"Infraestructura"}, flat[1].Path)
	assert.Nil(t, flat[0].Path)

	flat, err = src.Flat(ctx, "riesgos")
	require.NoError(t, err)
	assert.Equal(t, []string{"Operativos"}, flat[0].Path)

	_, err = src.Tree(ctx, "procesos")
	assert.ErrorIs(t, err, ErrUnknownModule)

	mods, err := src.Modules()
	require.NoError(t, err)
	assert.Equal(t, []string{"activos", "riesgos"}, mods)
}

func TestCacheLoadsOncePerSelection(t *testing.T) {
	src := &countingSource{Source: NewFileSource(writeSample(t))}
	c := NewCache(src)
	ctx := context.Background()

	a, err := c.Select(ctx, "activos")
	require.NoError(t, err)
	b, err := c.Select(ctx, " ACTIVOS ")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, src.trees)

	_, err = c.Select(ctx, "riesgos")
	require.NoError(t, err)
	_, err = c.Select(ctx, "activos")
	require.NoError(t, err)
	assert.Equal(t, 3, src.trees)

	c.Invalidate()
	assert.Nil(t, c.Current())
}

func TestCacheFailureKeepsSelection(t *testing.T) {
	src := &countingSource{Source: NewFileSource(writeSample(t))}
	c := NewCache(src)
	ctx := context.Background()

	_, err := c.Select(ctx, "activos")
	require.NoError(t, err)

	backend := errors.New("catalog service down")
	src.fail = backend
	_, err = c.Select(ctx, "riesgos")
	assert.ErrorIs(t, err, ErrLoad)
	assert.ErrorIs(t, err, backend)
	assert.Equal(t, "activos", c.Current().Module)
}

func TestFlatten(t *testing.T) {
	tree := []Node{{ID: "a", Label: "A", Children: []Node{{ID: "b", Label: "B", Children: []Node{{ID: "c", Label: "C"}}}}}}
	flat := Flatten(tree)
	require.Len(t, flat, 3)
	assert.Equal(t, []string{"A", "B"}, flat[2].Path)
	assert.Equal(t, []string{"A"}, flat[1].Path)
}
