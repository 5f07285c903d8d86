package props

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"# registry store",
		"",
		"types=evaluator",
		"evaluator.ids=group",
		"evaluator.group.name=Group Evaluator",
		"evaluator.group.name=Group Evaluator v2",
	}, "\n")

	properties, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "evaluator", properties["types"])
	assert.Equal(t, "Group Evaluator v2", properties["evaluator.group.name"], "later keys overwrite earlier ones")
	assert.Len(t, properties, 3)
}

func TestParseMalformedLine(t *testing.T) {
	_, err := Parse(strings.NewReader("no separator here"))
	assert.Error(t, err)
}

func TestParseKeepsValueEqualSigns(t *testing.T) {
	properties, err := Parse(strings.NewReader("rule=group=Administrators"))
	require.NoError(t, err)
	assert.Equal(t, "group=Administrators", properties["rule"])
}

func TestWriteIsDeterministic(t *testing.T) {
	properties := map[string]string{
		"types":         "evaluator",
		"evaluator.ids": "group",
	}

	var first, second bytes.Buffer
	require.NoError(t, Write(&first, properties))
	require.NoError(t, Write(&second, properties))

	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, "evaluator.ids=group\ntypes=evaluator\n", first.String())
}

func TestRoundTrip(t *testing.T) {
	properties := map[string]string{
		"multiroles.enable":                 "false",
		"multiroles.false.groupEnforceList": "Administrators,Auditors",
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, properties))

	parsed, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, properties, parsed)
}
