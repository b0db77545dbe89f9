package limits

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFrameSize(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		height  int
		wantErr error
	}{
		{"valid", 1920, 1080, nil},
		{"max", MaxFrameWidth, MaxFrameHeight, nil},
		{"zero_width", 0, 1080, ErrFrameEmpty},
		{"negative_height", 640, -1, ErrFrameEmpty},
		{"too_wide", MaxFrameWidth + 1, 16, ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFrameSize(tt.width, tt.height)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestValidateBitstreamBuffer(t *testing.T) {
	assert.NoError(t, ValidateBitstreamBuffer(DefaultBitstreamBuffer))
	assert.ErrorIs(t, ValidateBitstreamBuffer(0), ErrBufferEmpty)
	assert.ErrorIs(t, ValidateBitstreamBuffer(MaxBitstreamBuffer+1), ErrBufferTooLarge)
}

func TestValidateFrameCount(t *testing.T) {
	assert.NoError(t, ValidateFrameCount(1))
	assert.NoError(t, ValidateFrameCount(MaxAllocFrames))
	assert.ErrorIs(t, ValidateFrameCount(0), ErrTooManyFrames)
	assert.ErrorIs(t, ValidateFrameCount(MaxAllocFrames+1), ErrTooManyFrames)
}

func TestAlignment(t *testing.T) {
	assert.Equal(t, 320, AlignWidth(320))
	assert.Equal(t, 336, AlignWidth(321))
	assert.Equal(t, 192, AlignHeight(180, true))
	assert.Equal(t, 192, AlignHeight(180, false))
	assert.Equal(t, 224, AlignHeight(200, false))
	assert.Equal(t, 208, AlignHeight(200, true))
	assert.Equal(t, 0, Align(0, 16))
}
