package bencode

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var unmarshalTests = []struct {
	input    string
	expected interface{}
}{
	{"i42e", int64(42)},
	{"i-42e", int64(-42)},

	{"7:example", "example"},
	{"0:", ""},

	{"l3:one3:twoe", List{"one", "two"}},
	{"le", List{}},

	{"d3:one2:aa3:two2:bbe", Dict{"one": "aa", "two": "bb"}},
	{"de", Dict{}},
}

func TestUnmarshal(t *testing.T) {
	for _, tt := range unmarshalTests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Unmarshal([]byte(tt.input))
			require.Nil(t, err, "unmarshal should not fail")
			require.Equal(t, tt.expected, got, "unmarshalled values should match the expected results")
		})
	}
}

var malformedTests = []string{
	"",
	"i42",
	"ie",
	"ibade",
	"5:oops",
	"l3:one",
	"d3:one",
	"di1e3:onee",
	"x",
	"-5:x",
}

func TestUnmarshalMalformed(t *testing.T) {
	for _, input := range malformedTests {
		t.Run(input, func(t *testing.T) {
			_, err := Unmarshal([]byte(input))
			require.NotNil(t, err, "malformed input should not decode")
			require.Equal(t, ErrMalformed, errors.Cause(err), "decode failures should be rooted in ErrMalformed")
		})
	}
}

func TestRoundTrip(t *testing.T) {
	values := []interface{}{
		int64(0),
		int64(-1234567890),
		"",
		"spam",
		List{"a", int64(1), List{"nested"}},
		Dict{
			"ints":    int64(42),
			"strings": "val",
			"list":    List{"a", "b", "c"},
			"dict":    Dict{"inner": int64(-7)},
		},
	}

	for _, v := range values {
		buf, err := Marshal(v)
		require.Nil(t, err, "marshal should not fail")

		got, err := Unmarshal(buf)
		require.Nil(t, err, "unmarshal should not fail")
		require.Equal(t, v, got, "decode(encode(x)) should equal x")
	}
}

type bufferLoop struct {
	val string
}

func (r *bufferLoop) Read(b []byte) (int, error) {
	n := copy(b, r.val)
	return n, nil
}

func BenchmarkUnmarshalScalar(b *testing.B) {
	d1 := NewDecoder(&bufferLoop{"7:example"})
	d2 := NewDecoder(&bufferLoop{"i42e"})

	for i := 0; i < b.N; i++ {
		_, _ = d1.Decode()
		_, _ = d2.Decode()
	}
}

func BenchmarkUnmarshalLarge(b *testing.B) {
	data := Dict{
		"k1": List{"a", "b", "c"},
		"k2": int64(42),
		"k3": "val",
		"k4": int64(-42),
	}

	buf, _ := Marshal(data)
	dec := NewDecoder(&bufferLoop{string(buf)})

	for i := 0; i < b.N; i++ {
		_, _ = dec.Decode()
	}
}
