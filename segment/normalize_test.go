package segment_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/segment"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		raw       string
		want      string
		malformed bool
	}{
		{"123-45-6789", "123456789", false},
		{" 123 45 6789 ", "123456789", false},
		{"123456789", "123456789", false},
		{"(123).45.6789", "123456789", false},
		{"12-345-678", "12-345-678", true},
		{"1234567890", "1234567890", true},
		{"12345678A", "12345678A", true},
		{"\u0661\u0662\u0663-\u0664\u0665-\u0666\u0667\u0668\u0669", "\u0661\u0662\u0663-\u0664\u0665-\u0666\u0667\u0668\u0669", true},
		{"\uff11\uff12\uff13456789", "\uff11\uff12\uff13456789", true},
		{"", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := segment.NormalizeID(tt.raw)
			assert.Equal(t, tt.want, got)
			if !tt.malformed {
				assert.NoError(t, err)
				return
			}
			var me *generic.MalformedIdentifierError
			assert.True(t, errors.As(err, &me))
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "Jose Nunez", segment.Fold(" José Núñez "))
	assert.Equal(t, "Francois", segment.Fold("François"))
	assert.Equal(t, "Zoe", segment.Fold("Zoë"))
	assert.Equal(t, "", segment.Fold(""))
}
