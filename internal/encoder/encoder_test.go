package encoder

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinsight/backend-go/internal/domain"
)

func TestFitDeterministic(t *testing.T) {
	a := Fit([]string{"Snacks", "Beverages", "Dairy", "Beverages"})
	b := Fit([]string{"Dairy", "Snacks", "Beverages"})

	require.Equal(t, a.Revision(), b.Revision())
	for _, c := range []string{"Beverages", "Dairy", "Snacks"} {
		codeA, err := a.Encode(c)
		require.NoError(t, err)
		codeB, err := b.Encode(c)
		require.NoError(t, err)
		assert.Equal(t, codeA, codeB)
	}

	// Sorted assignment: Beverages < Dairy < Snacks.
	code, err := a.Encode("Beverages")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestEncodeUnseenCategory(t *testing.T) {
	e := Fit([]string{"Snacks"})

	_, err := e.Encode("NewGadgetType")
	require.Error(t, err)

	var unseen *domain.UnseenCategoryError
	require.True(t, errors.As(err, &unseen))
	assert.Equal(t, "NewGadgetType", unseen.Category)
}

func TestExtendAppendOnly(t *testing.T) {
	e := Fit([]string{"Beverages", "Snacks"})
	before := e.Revision()
	snacksCode, err := e.Encode("Snacks")
	require.NoError(t, err)

	e.Extend([]string{"Apparel", "Snacks"})

	// Existing codes untouched, new category appended after the max.
	code, err := e.Encode("Snacks")
	require.NoError(t, err)
	assert.Equal(t, snacksCode, code)

	apparel, err := e.Encode("Apparel")
	require.NoError(t, err)
	assert.Equal(t, 2, apparel)

	assert.NotEqual(t, before, e.Revision())

	// Extending with only known categories is a no-op.
	after := e.Revision()
	e.Extend([]string{"Snacks"})
	assert.Equal(t, after, e.Revision())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	e := Fit([]string{"Beverages", "Dairy", "Snacks"})

	data, err := e.Save()
	require.NoError(t, err)

	loaded, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, e.Revision(), loaded.Revision())
	assert.Equal(t, e.Categories(), loaded.Categories())
}

func TestLoadRejectsTamperedTable(t *testing.T) {
	e := Fit([]string{"Beverages", "Snacks"})
	data, err := e.Save()
	require.NoError(t, err)

	tampered := strings.Replace(string(data), `"Snacks": 1`, `"Snacks": 5`, 1)

	_, err = Load([]byte(tampered))
	require.Error(t, err)
}
