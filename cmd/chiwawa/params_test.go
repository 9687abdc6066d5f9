package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseParamsEmpty(t *testing.T) {
	vals, err := parseParams("")
	require.NoError(t, err)
	require.Nil(t, vals)
}

func TestParseParamsMixedTypes(t *testing.T) {
	vals, err := parseParams("I32(1), I64(-2), F32(1.5), F64(3.25)")
	require.NoError(t, err)
	require.Len(t, vals, 4)
	require.Equal(t, int32(1), vals[0].I32())
	require.Equal(t, int64(-2), vals[1].I64())
	require.Equal(t, float32(1.5), vals[2].F32())
	require.Equal(t, float64(3.25), vals[3].F64())
}

func TestParseParamRejectsMissingParens(t *testing.T) {
	_, err := parseParam("I32 1")
	require.Error(t, err)
}

func TestParseParamRejectsUnknownType(t *testing.T) {
	_, err := parseParam("V128(1)")
	require.Error(t, err)
}

func TestParseParamRejectsNonNumeric(t *testing.T) {
	_, err := parseParam("I32(abc)")
	require.Error(t, err)
}
