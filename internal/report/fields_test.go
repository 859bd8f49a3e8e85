package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFullPayload(t *testing.T) {
	raw := `{"company_name":"Acme Corp","fiscal_year":"2024","total_revenue":1234.5,` +
		`"net_income":-20,"total_assets":5000,"total_liabilities":null}`

	res, err := Decode(raw)
	require.NoError(t, err)
	require.False(t, res.Failed())
	require.Len(t, res.Fields, 6)

	assert.Equal(t, "Company Name", res.Fields[0].Label)
	assert.Equal(t, "Acme Corp", res.Fields[0].Value)
	assert.Equal(t, "1234.5", res.Fields[2].Value)
	assert.Equal(t, "-20", res.Fields[3].Value)
	assert.True(t, res.Fields[5].Null, "explicit null must be flagged")
	assert.Empty(t, res.Fields[5].Value)
}

func TestDecodeMissingFieldsAreNull(t *testing.T) {
	res, err := Decode(`{"company_name":"Acme Corp"}`)
	require.NoError(t, err)
	assert.True(t, res.Fields[1].Null)
	assert.True(t, res.Fields[5].Null)
}

func TestDecodeErrorPayload(t *testing.T) {
	res, err := Decode(`{"error":"all model candidates failed","detail":"attempted models: a, b"}`)
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Equal(t, "all model candidates failed", res.Err)
	assert.Contains(t, res.Detail, "attempted models")
}

func TestDecodeStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"company_name\":\"Acme Corp\"}\n```"
	res, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", res.Fields[0].Value)
}

func TestDecodeScansEmbeddedObject(t *testing.T) {
	raw := "Here is the data: {\"company_name\":\"Acme Corp\"} as requested."
	res, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", res.Fields[0].Value)
}

func TestDecodeRejectsNonJSON(t *testing.T) {
	_, err := Decode("I could not read the document, sorry.")
	require.Error(t, err)
}

func TestFromValues(t *testing.T) {
	fields := FromValues(map[string]string{
		"company_name": "Acme Corp",
		"fiscal_year":  "2024",
		"bogus":        "ignored",
	})

	require.Len(t, fields, 6)
	assert.Equal(t, "Company Name", fields[0].Label)
	assert.Equal(t, "Acme Corp", fields[0].Value)
	assert.Equal(t, "2024", fields[1].Value)
	assert.True(t, fields[2].Null, "missing values become null fields")
}
