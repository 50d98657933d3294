package schema

import (
	"testing"

	"github.com/lucidkernel/runtime/core"
	"github.com/stretchr/testify/assert"
)

func v(major, minor, patch int) core.SemanticVersion {
	return core.SemanticVersion{Major: major, Minor: minor, Patch: patch}
}

func TestCheckCompatibility_NoChangesIsCompatible(t *testing.T) {
	from := NewSchema(v(1, 0, 0)).AddField("name", FieldSchema{FieldType: "string", Required: true})
	to := NewSchema(v(1, 0, 1)).AddField("name", FieldSchema{FieldType: "string", Required: true})

	result := CheckCompatibility(from, to)
	assert.True(t, result.Compatible)
	assert.Empty(t, result.BreakingChanges)
	assert.Equal(t, RiskLow, result.RiskLevel)
}

func TestCheckCompatibility_RemovedFieldIsBreaking(t *testing.T) {
	from := NewSchema(v(1, 0, 0)).AddField("name", FieldSchema{FieldType: "string"})
	to := NewSchema(v(2, 0, 0))

	result := CheckCompatibility(from, to)
	assert.False(t, result.Compatible)
	assert.Len(t, result.BreakingChanges, 1)
	assert.Equal(t, FieldRemoved, result.FieldChanges["name"].Kind)
}

func TestCheckCompatibility_TypeChangeIsBreaking(t *testing.T) {
	from := NewSchema(v(1, 0, 0)).AddField("count", FieldSchema{FieldType: "int"})
	to := NewSchema(v(1, 1, 0)).AddField("count", FieldSchema{FieldType: "string"})

	result := CheckCompatibility(from, to)
	assert.False(t, result.Compatible)
	assert.Equal(t, FieldTypeChanged, result.FieldChanges["count"].Kind)
}

func TestCheckCompatibility_AddedRequiredFieldWithoutDefaultIsBreaking(t *testing.T) {
	from := NewSchema(v(1, 0, 0))
	to := NewSchema(v(1, 1, 0)).AddField("new", FieldSchema{FieldType: "string", Required: true})

	result := CheckCompatibility(from, to)
	assert.False(t, result.Compatible)
	assert.Len(t, result.BreakingChanges, 1)
}

func TestCheckCompatibility_AddedOptionalFieldIsWarningOnly(t *testing.T) {
	from := NewSchema(v(1, 0, 0))
	to := NewSchema(v(1, 1, 0)).AddField("new", FieldSchema{FieldType: "string", Required: false})

	result := CheckCompatibility(from, to)
	assert.True(t, result.Compatible)
	assert.NotEmpty(t, result.Warnings)
}

func TestCheckCompatibility_BecameOptionalIsWarning(t *testing.T) {
	from := NewSchema(v(1, 0, 0)).AddField("f", FieldSchema{FieldType: "string", Required: true})
	to := NewSchema(v(1, 1, 0)).AddField("f", FieldSchema{FieldType: "string", Required: false})

	result := CheckCompatibility(from, to)
	assert.True(t, result.Compatible)
	assert.NotEmpty(t, result.Warnings)
	assert.Empty(t, result.BreakingChanges)
}

func TestCheckCompatibility_BecameRequiredIsBreaking(t *testing.T) {
	from := NewSchema(v(1, 0, 0)).AddField("f", FieldSchema{FieldType: "string", Required: false})
	to := NewSchema(v(1, 1, 0)).AddField("f", FieldSchema{FieldType: "string", Required: true})

	result := CheckCompatibility(from, to)
	assert.False(t, result.Compatible)
}

func TestCheckCompatibility_RiskEscalatesWithBreakingCount(t *testing.T) {
	from := NewSchema(v(1, 0, 0)).
		AddField("a", FieldSchema{FieldType: "string"}).
		AddField("b", FieldSchema{FieldType: "string"}).
		AddField("c", FieldSchema{FieldType: "string"})
	to := NewSchema(v(2, 0, 0))

	result := CheckCompatibility(from, to)
	assert.Equal(t, RiskCritical, result.RiskLevel)
}

func TestIsCompatible(t *testing.T) {
	from := NewSchema(v(1, 0, 0)).AddField("f", FieldSchema{FieldType: "string"})
	to := NewSchema(v(1, 0, 0)).AddField("f", FieldSchema{FieldType: "string"})
	assert.True(t, IsCompatible(from, to))
}
