package mask

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWidth(t *testing.T) {
	w, err := Width(DefaultSlots)
	require.NoError(t, err)
	assert.Equal(t, 42, w)

	for _, slots := range []int{0, -8, 7, 337} {
		_, err := Width(slots)
		assert.ErrorIs(t, err, ErrInvalidWidth, "slots=%d", slots)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, width := range []int{1, 6, 8, 42} {
		for i := 0; i < 200; i++ {
			v := new(big.Int).Rand(r, new(big.Int).Lsh(big.NewInt(1), uint(width*8)))
			m, err := Encode(v, width)
			require.NoError(t, err)
			require.Len(t, m, width)
			assert.Equal(t, 0, v.Cmp(Decode(m)), "width=%d value=%s", width, v)
		}
	}
}

func TestEncode_Boundaries(t *testing.T) {
	const width = 42
	maxVal := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), width*8), big.NewInt(1))

	m, err := Encode(maxVal, width)
	require.NoError(t, err)
	assert.Equal(t, width*8, m.Count())
	assert.Equal(t, 0, maxVal.Cmp(Decode(m)))

	large := new(big.Int).Lsh(big.NewInt(1), 335)
	m, err = Encode(large, width)
	require.NoError(t, err)
	assert.Equal(t, byte(0x80), m[0])
	assert.Equal(t, []int{335}, m.Slots())

	zero, err := Encode(new(big.Int), width)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestEncode_Overflow(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 8*4)
	_, err := Encode(tooBig, 4)
	require.ErrorIs(t, err, ErrEncoding)

	var ee *EncodingError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 33, ee.BitLen)
	assert.Equal(t, 4, ee.Width)

	_, err = Encode(big.NewInt(-1), 4)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestMask_BitOrder(t *testing.T) {
	m, err := EncodeUint64(0b00101101, 2)
	require.NoError(t, err)
	assert.Equal(t, Mask{0x00, 0x2d}, m)
	assert.Equal(t, []int{0, 2, 3, 5}, m.Slots())
	assert.True(t, m.Test(2))
	assert.False(t, m.Test(4))
	assert.False(t, m.Test(16))

	fs, err := FromSlots(2, 0, 2, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, m, fs)

	_, err = FromSlots(2, 16)
	assert.ErrorIs(t, err, ErrEncoding)

	hi := New(2)
	hi.Set(15)
	assert.Equal(t, Mask{0x80, 0x00}, hi)
	assert.Equal(t, "1000000000000000", hi.String())
}

func TestMask_Covers(t *testing.T) {
	user, _ := EncodeUint64(0b00101101, 1)
	match, _ := EncodeUint64(0b00001100, 1)
	miss, _ := EncodeUint64(0b00011000, 1)
	zero := New(1)

	assert.True(t, user.Covers(match))
	assert.False(t, user.Covers(miss))
	assert.True(t, user.Covers(zero))
	assert.True(t, zero.Covers(zero))
	assert.False(t, zero.Covers(match))

	assert.Panics(t, func() { user.Covers(New(2)) })
}
