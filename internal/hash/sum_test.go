package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	tests := []struct {
		name string
		data string
		sum  uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short string", "test", 0x4fdcca5ddb678139},
		{"long string", "this is a longer test string to hash", 0x69275f7f7ee59dbd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sum, Sum([]byte(tt.data)))
			assert.Equal(t, tt.sum, SumString(tt.data))
		})
	}
}

func TestSum_Distinct(t *testing.T) {
	assert.NotEqual(t, Sum([]byte{0x06, 0x08}), Sum([]byte{0x06, 0x0E}))
}
