package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexRecord_Field(t *testing.T) {
	r := &IndexRecord{Gvkeyx: "000003", Conm: "S&P 500 Comp-Ltd", Tic: "I0003", Idxstat: "A"}

	v, ok := r.Field("conm")
	assert.True(t, ok)
	assert.Equal(t, "S&P 500 Comp-Ltd", v)

	v, ok = r.Field("tic")
	assert.True(t, ok)
	assert.Equal(t, "I0003", v)

	_, ok = r.Field("market_cap")
	assert.False(t, ok)
}
