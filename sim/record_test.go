package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpecialistKey_Encoding(t *testing.T) {
	// type*10 + severity, so every specialist owns ten keys and red
	// sorts first within them.
	assert.Equal(t, int64(1), SpecialistKey(Cardiologist, ColorRed))
	assert.Equal(t, int64(23), SpecialistKey(Ophthalmologist, ColorGreen))
	assert.Equal(t, int64(52), SpecialistKey(Paediatrician, ColorYellow))
	assert.Equal(t, int64(53), SpecialistMaxKey(Paediatrician))

	for typ := 0; typ < SpecialistCount; typ++ {
		st := SpecialistType(typ)
		assert.Less(t, SpecialistKey(st, ColorRed), SpecialistKey(st, ColorYellow))
		assert.Less(t, SpecialistKey(st, ColorYellow), SpecialistKey(st, ColorGreen))
		assert.LessOrEqual(t, SpecialistKey(st, ColorGreen), SpecialistMaxKey(st))
	}
}

func TestPatientKey_VIPSortsFirst(t *testing.T) {
	assert.Equal(t, KeyVip, patientKey(true))
	assert.Equal(t, KeyNormal, patientKey(false))
	assert.Less(t, KeyVip, KeyNormal)
}

func TestColorPriority(t *testing.T) {
	assert.Equal(t, int64(1), ColorRed.Priority())
	assert.Equal(t, int64(2), ColorYellow.Priority())
	assert.Equal(t, int64(3), ColorGreen.Priority())
	assert.Equal(t, int64(3), ColorNone.Priority())
}

func TestClampExtra(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, clampExtra(string(long)), extraLimit)
	assert.Equal(t, "solo", clampExtra("solo"))
}
