package cbor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testValue struct {
	_    struct{} `cbor:",toarray"`
	Name string
	ID   uint64
}

func Test_TaggedValue(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		v := testValue{Name: "alice", ID: 7}
		data, err := MarshalTaggedValue(1001, v)
		require.NoError(t, err)
		require.True(t, HasTag(data, 1001))
		require.False(t, HasTag(data, 1002))

		var out testValue
		require.NoError(t, UnmarshalTaggedValue(1001, data, &out))
		require.Equal(t, v, out)
	})

	t.Run("wrong tag", func(t *testing.T) {
		data, err := MarshalTaggedValue(1001, "x")
		require.NoError(t, err)
		var s string
		require.EqualError(t, UnmarshalTaggedValue(1005, data, &s), `unexpected tag: 1001, expected: 1005`)
	})

	t.Run("untagged data", func(t *testing.T) {
		data, err := Marshal("cool")
		require.NoError(t, err)
		require.False(t, HasTag(data, 1001))
		require.False(t, HasTag(nil, 1001))
	})
}

func Test_RawCBOR(t *testing.T) {
	t.Run("empty encodes as nil", func(t *testing.T) {
		var r RawCBOR
		data, err := r.MarshalCBOR()
		require.NoError(t, err)
		require.Equal(t, []byte{0xf6}, data)
		require.True(t, r.IsNil())
		require.True(t, Null().IsNil())
	})

	t.Run("nil marker decodes as empty", func(t *testing.T) {
		r := RawCBOR{1, 2, 3}
		require.NoError(t, r.UnmarshalCBOR([]byte{0xf6}))
		require.Empty(t, r)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var r *RawCBOR
		require.EqualError(t, r.UnmarshalCBOR([]byte{0x01}), `UnmarshalCBOR on nil pointer`)
	})

	t.Run("text", func(t *testing.T) {
		r := RawCBOR{0x64, 0x63, 0x6f, 0x6f, 0x6c}
		txt, err := r.MarshalText()
		require.NoError(t, err)
		require.Equal(t, "0x64636f6f6c", string(txt))

		var r2 RawCBOR
		require.NoError(t, r2.UnmarshalText(txt))
		require.Equal(t, r, r2)

		var s string
		require.NoError(t, Unmarshal(r2, &s))
		require.Equal(t, "cool", s)
	})
}
