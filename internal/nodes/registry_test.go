package nodes

import (
	"testing"

	"github.com/danielolaszy/jiraflow/internal/jira"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{
		TypeCommentAdd,
		TypeCommentUpdate,
		TypeCreate,
		TypeGet,
		TypeUpdate,
		TypeSearch,
	}, r.Types())

	deps := Deps{Client: jira.NewClient(&fakeExecutor{})}
	for _, name := range r.Types() {
		n, err := r.New(name, deps, Settings{})
		require.NoError(t, err, name)
		assert.Equal(t, name, n.Type())
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(TypeGet, NewGetNode))

	err := r.Register(TypeGet, NewGetNode)
	assert.ErrorContains(t, err, "already registered")

	assert.Error(t, r.Register("", NewGetNode))
	assert.Error(t, r.Register("x", nil))

	_, err = r.New("jira-unknown", Deps{}, Settings{})
	assert.ErrorContains(t, err, "unknown node type")

	_, err = r.New(TypeGet, Deps{}, Settings{})
	assert.Error(t, err, "factory errors are returned")

	require.Error(t, RegisterAll(r), "registering the builtins twice fails")
}
