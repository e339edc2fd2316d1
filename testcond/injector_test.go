package testcond

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInjectorPerIndex(t *testing.T) {
	inj := New()
	inj.Set(CondInfected, 1)

	assert.False(t, inj.Active(CondInfected, 0))
	assert.True(t, inj.Active(CondInfected, 1))
	assert.False(t, inj.Active(CondScanError, 1))

	inj.Unset(CondInfected, 1)
	assert.False(t, inj.Active(CondInfected, 1))
}

func TestInjectorAnyIndex(t *testing.T) {
	inj := New()
	inj.Set(CondScanError, AnyIndex)

	assert.True(t, inj.Active(CondScanError, 0))
	assert.True(t, inj.Active(CondScanError, 42))

	inj.Clear()
	assert.False(t, inj.Active(CondScanError, 0))
}

func TestNilInjectorIsInactive(t *testing.T) {
	var inj *Injector
	assert.False(t, inj.Active(CondTempFileNotFound, 0))
}
