package parser

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func recordWithID(id int) []byte {
	return []byte(fmt.Sprintf(`{"geometry":{"coordinates":[100000,200000]},"properties":{"id":%d,
		"beheerder":{"key":1,"naam":"AWV"},
		"aanzichten":[{"hoek":0.5,"wegsegmentid":%d,"borden":[{"id":1,"code":"C43","x":0,"y":2000,"breedte":1,"hoogte":1,"vorm":"rond"}]}]}}`, id, id*10))
}

func TestParseBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	raws := make([][]byte, 0, 50)
	for i := 1; i <= 48; i++ {
		raws = append(raws, recordWithID(i))
	}
	raws = append(raws, []byte(`{"broken": \x}`), []byte(`{"properties":{}}`))

	n := NewNormalizer(WithWorkers(3))
	features, errs, err := n.ParseBatch(context.Background(), raws)
	require.NoError(t, err)

	assert.Len(t, features, 48)
	require.Len(t, errs, 2)

	failed := []int{errs[0].Record, errs[1].Record}
	sort.Ints(failed)
	assert.Equal(t, []int{48, 49}, failed)

	ids := make([]int, 0, len(features))
	for _, f := range features {
		ids = append(ids, int(f.ID))
	}
	sort.Ints(ids)
	for i, id := range ids {
		assert.Equal(t, i+1, id)
	}
}

func TestParseBatch_Empty(t *testing.T) {
	defer goleak.VerifyNone(t)

	features, errs, err := NewNormalizer().ParseBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, features)
	assert.Empty(t, errs)
}

func TestParseBatch_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raws := make([][]byte, 100)
	for i := range raws {
		raws[i] = recordWithID(i + 1)
	}

	features, _, err := NewNormalizer(WithWorkers(2)).ParseBatch(ctx, raws)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, len(features), len(raws))
}

func TestReadRecords(t *testing.T) {
	t.Run("json array", func(t *testing.T) {
		doc := "  [" + string(recordWithID(1)) + ",\n" + string(recordWithID(2)) + "]"
		records, err := ReadRecords(strings.NewReader(doc))
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("json array with mis-escape", func(t *testing.T) {
		doc := `[{"properties":{"parameters":["\xc3\x98 60"]}}]`
		records, err := ReadRecords(strings.NewReader(doc))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, `{"properties":{"parameters":["\xc3\x98 60"]}}`, string(records[0]))
	})

	t.Run("json array keeps broken elements isolated", func(t *testing.T) {
		doc := "[" + string(recordWithID(1)) + `, {"x":"\xe2 bad ] } [", "y": [1, 2]},` + string(recordWithID(2)) + "]"
		records, err := ReadRecords(strings.NewReader(doc))
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, `{"x":"\xe2 bad ] } [", "y": [1, 2]}`, string(records[1]))

		features, errs, err := NewNormalizer().ParseBatch(context.Background(), records)
		require.NoError(t, err)
		assert.Len(t, features, 2)
		require.Len(t, errs, 1)
		assert.Equal(t, 1, errs[0].Record)
		assert.Contains(t, errs[0].Context, `\xe2`)
	})

	t.Run("empty array", func(t *testing.T) {
		records, err := ReadRecords(strings.NewReader(" [ \n ] \n"))
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("escaped quotes inside strings", func(t *testing.T) {
		records, err := ReadRecords(strings.NewReader(`[{"a":"x\",y"},{"b":"\\"}]`))
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte(`{"a":"x\",y"}`), []byte(`{"b":"\\"}`)}, records)
	})

	t.Run("json lines keep broken records isolated", func(t *testing.T) {
		doc := string(recordWithID(1)) + "\n\n{\"broken\": \\x}\n" + string(recordWithID(2)) + "\n"
		doc = strings.ReplaceAll(doc, "\n\t\t", " ")
		records, err := ReadRecords(strings.NewReader(doc))
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("empty input", func(t *testing.T) {
		records, err := ReadRecords(strings.NewReader("  \n"))
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("malformed array", func(t *testing.T) {
		for _, doc := range []string{`[{"a":1},`, `[{"a":1}] trailing`, `[{"a":1}}]`} {
			_, err := ReadRecords(strings.NewReader(doc))
			assert.Error(t, err, doc)
		}
	})
}
