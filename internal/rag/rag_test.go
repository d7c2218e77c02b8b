package rag_test

import (
	"errors"
	"testing"

	"kpiboard/internal/apperr"
	"kpiboard/internal/model"
	"kpiboard/internal/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_HigherIsBetter(t *testing.T) {
	cases := map[float64]rag.Status{
		80: rag.Green,
		75: rag.Green,
		60: rag.Amber,
		50: rag.Amber,
		40: rag.Red,
		-5: rag.Red,
	}
	for value, want := range cases {
		got, err := rag.Classify(value, model.HigherIsBetter, 50, 75)
		require.NoError(t, err)
		assert.Equal(t, want, got, "value %v", value)
	}
}

func TestClassify_LowerIsBetter(t *testing.T) {
	cases := map[float64]rag.Status{
		40: rag.Green,
		50: rag.Green,
		60: rag.Amber,
		75: rag.Amber,
		80: rag.Red,
	}
	for value, want := range cases {
		got, err := rag.Classify(value, model.LowerIsBetter, 50, 75)
		require.NoError(t, err)
		assert.Equal(t, want, got, "value %v", value)
	}
}

func TestClassify_MonotonicHigherIsBetter(t *testing.T) {
	rank := map[rag.Status]int{rag.Red: 0, rag.Amber: 1, rag.Green: 2}
	prev := -1
	for v := 0.0; v <= 100; v += 0.5 {
		got, err := rag.Classify(v, model.HigherIsBetter, 50, 75)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rank[got], prev, "value %v", v)
		prev = rank[got]
	}
}

func TestClassify_InvalidDirection(t *testing.T) {
	_, err := rag.Classify(10, model.Direction("sideways"), 50, 75)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestEvaluate(t *testing.T) {
	kpi := &model.Kpi{Direction: model.LowerIsBetter, RagRed: 2, RagAmber: 5}

	got, err := rag.Evaluate(kpi, 3)
	require.NoError(t, err)
	assert.Equal(t, rag.Amber, got)
}
