package sysacc

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

func TestFrenchPCG_Classify(t *testing.T) {
	sys := NewFrenchPCG()

	tests := []struct {
		code string
		typ  model.AccountType
	}{
		{"101000", model.AccountTypeEquity},
		{"215000", model.AccountTypeAsset},
		{"370000", model.AccountTypeAsset},
		{"531000", model.AccountTypeAsset},
		{"401000", model.AccountTypeLiability},
		{"411000", model.AccountTypeLiability},
		{"445700", model.AccountTypeLiability},
		{"627000", model.AccountTypeExpense},
		{"706000", model.AccountTypeRevenue},
		{"801000", model.AccountTypeContra},
	}
	for _, tt := range tests {
		typ, err := sys.Classify(tt.code)
		require.NoError(t, err, tt.code)
		assert.Equal(t, tt.typ, typ, tt.code)
	}
}

func TestFrenchPCG_Classify_InvalidCode(t *testing.T) {
	sys := NewFrenchPCG()

	for _, code := range []string{"", "9", "41", "9xx", "900000", "ABC"} {
		_, err := sys.Classify(code)
		assert.Error(t, err, code)
	}
}

func TestFrenchPCG_ThirdMask(t *testing.T) {
	sys := NewFrenchPCG()
	re := regexp.MustCompile("^(" + sys.ThirdMask() + ")$")

	assert.True(t, re.MatchString("411000"))
	assert.True(t, re.MatchString("401000"))
	assert.True(t, re.MatchString("421000"))
	assert.True(t, re.MatchString("455000"))
	assert.False(t, re.MatchString("445700"))
	assert.False(t, re.MatchString("706000"))
}

func TestFrenchPCG_NewChartsAccount(t *testing.T) {
	sys := NewFrenchPCG()

	name, typ, err := sys.NewChartsAccount("411000")
	require.NoError(t, err)
	assert.Equal(t, "tiers 411000", name)
	assert.Equal(t, model.AccountTypeLiability, typ)
}

func TestFrenchPCG_CheckBegin(t *testing.T) {
	sys := NewFrenchPCG()

	assert.NoError(t, sys.CheckBegin(OpeningState{}))
	assert.NoError(t, sys.CheckBegin(OpeningState{CarryForwardLines: 2, CarryForwardSum: "0"}))
	assert.Error(t, sys.CheckBegin(OpeningState{CarryForwardLines: 2, CarryForwardSum: "10.5"}))
}

func TestFrenchPCG_CheckEnd(t *testing.T) {
	sys := NewFrenchPCG()

	assert.NoError(t, sys.CheckEnd(0, false))
	assert.NoError(t, sys.CheckEnd(3, true))
	assert.Error(t, sys.CheckEnd(3, false))
}

func TestByName(t *testing.T) {
	sys, err := ByName("french")
	require.NoError(t, err)
	assert.Equal(t, "french", sys.Name())

	_, err = ByName("martian")
	assert.Error(t, err)
}
