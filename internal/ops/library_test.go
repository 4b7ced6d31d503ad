package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLibrary = `
operations:
  - name: shop-info
    description: Basic shop metadata
    document: "query { shop { name currencyCode } }"
    cost: 5
  - name: update-note
    document: |
      mutation($id: ID!, $note: String!) {
        orderUpdate(input: {id: $id, note: $note}) { userErrors { message } }
      }
    cost: 40
`

func TestLoadParsesOperations(t *testing.T) {
	lib, err := Load("test.yaml", []byte(sampleLibrary))
	require.NoError(t, err)
	require.Equal(t, 2, lib.Len())

	op, ok := lib.Get("shop-info")
	require.True(t, ok)
	assert.Equal(t, "query", op.Kind)
	assert.Equal(t, 5.0, op.Cost)
	assert.Equal(t, "Basic shop metadata", op.Description)

	op, ok = lib.Get("update-note")
	require.True(t, ok)
	assert.Equal(t, "mutation", op.Kind)
}

func TestLoadListIsSorted(t *testing.T) {
	lib, err := Load("test.yaml", []byte(sampleLibrary))
	require.NoError(t, err)

	list := lib.List()
	require.Len(t, list, 2)
	assert.Equal(t, "shop-info", list[0].Name)
	assert.Equal(t, "update-note", list[1].Name)
}

func TestLoadRejectsMissingName(t *testing.T) {
	_, err := Load("test.yaml", []byte(`
operations:
  - document: "query { x }"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing name")
}

func TestLoadRejectsMissingDocument(t *testing.T) {
	_, err := Load("test.yaml", []byte(`
operations:
  - name: empty-op
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing document")
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	_, err := Load("test.yaml", []byte(`
operations:
  - name: dup
    document: "query { a }"
  - name: dup
    document: "query { b }"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadRejectsEmptyFile(t *testing.T) {
	_, err := Load("test.yaml", []byte("  \n"))
	require.Error(t, err)
}

func TestInferKindIsLexical(t *testing.T) {
	assert.Equal(t, "mutation", inferKind("mutation { x }"))
	assert.Equal(t, "mutation", inferKind("  mutation Update($id: ID!) { x }"))
	assert.Equal(t, "query", inferKind("query mutationAudit { x }"))
	assert.Equal(t, "query", inferKind("mutationX { x }"))
	assert.Equal(t, "query", inferKind("{ shop { name } }"))
}
