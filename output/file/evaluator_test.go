package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/message"
)

func TestExprEvaluator_Evaluate(t *testing.T) {
	headers := message.Headers{"dir": "expression", "originalFileRef": "/in/Report.CSV"}

	tests := []struct {
		name       string
		expression string
		payload    string
		want       string
	}{
		{"substring", "substring(payload, 0, 4)", "this is another test", "this"},
		{"substring to end", "substring(payload, 8)", "this is another test", "another test"},
		{"substring clamps", "substring(payload, 2, 100)", "abc", "c"},
		{"substring runes", "substring(payload, 0, 2)", "héllo", "hé"},
		{"substring inverted", "substring(payload, 3, 1)", "abcdef", ""},
		{"concat header", "'/tmp/out/' + headers.dir", "", "/tmp/out/expression"},
		{"missing header", "'x' + headers.nope", "", "x"},
		{"basename lower", "lower(basename(headers.originalFileRef))", "", "report.csv"},
		{"upper trim", "upper(trim(payload))", "  abc ", "ABC"},
		{"conditional", "payload startsWith 'a' ? 'alpha' : 'other'", "abc", "alpha"},
	}

	eval, err := NewExprEvaluator()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.Evaluate(tt.expression, []byte(tt.payload), headers)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExprEvaluator_Errors(t *testing.T) {
	_, err := NewExprEvaluator("substring(payload")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = NewExprEvaluator("unknownFunc(payload)")
	assert.Error(t, err)

	eval, err := NewExprEvaluator("1 + 1")
	require.NoError(t, err)
	_, err = eval.Evaluate("1 + 1", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not string")
}

func TestExprEvaluator_CachesPrograms(t *testing.T) {
	eval, err := NewExprEvaluator("payload", "", "upper(payload)")
	require.NoError(t, err)
	assert.Len(t, eval.programs, 2)

	_, err = eval.Evaluate("lower(payload)", []byte("A"), nil)
	require.NoError(t, err)
	assert.Len(t, eval.programs, 3)
}
