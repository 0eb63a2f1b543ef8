package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanBalanced(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"nested", `x = { a: { b: [1, 2] } }; y = 1`, `{ a: { b: [1, 2] } }`},
		{"braces in strings", `x = { a: "}", b: '{', c: ` + "`}${'}'}`" + ` }`, `{ a: "}", b: '{', c: ` + "`}${'}'}`" + ` }`},
		{"escaped quote", `x = { a: "\"}" } tail`, `{ a: "\"}" }`},
		{"comments", "x = { a: 1 // }\n, b: /* } */ 2 } tail", "{ a: 1 // }\n, b: /* } */ 2 }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := indexFrom(tt.src, "{", 0)
			got, err := ScanBalanced(tt.src, start)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanBalanced_Errors(t *testing.T) {
	_, err := ScanBalanced(`{ a: 1`, 0)
	assert.ErrorIs(t, err, ErrUnbalanced)

	_, err = ScanBalanced(`{ a: "open }`, 0)
	assert.ErrorIs(t, err, ErrUnbalanced)

	_, err = ScanBalanced(`abc`, 0)
	assert.ErrorIs(t, err, ErrUnbalanced)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"arrow with block", `{ a: (x) => { return {y: 1}; }, b: 2 }`, `{ a: null, b: 2 }`},
		{"arrow expression", `{ a: x => x + 1, b: 2 }`, `{ a: null, b: 2 }`},
		{"async arrow", `{ a: async (x) => { await x; } }`, `{ a: null }`},
		{"function expression", `{ a: function named(x) { return x; } }`, `{ a: null }`},
		{"require", `{ a: require('./x'), b: 'require(y)' }`, `{ a: null, b: 'require(y)' }`},
		{"template", "{ a: `id-${user.id}-x` }", "{ a: `id--x` }"},
		{"call", `{ a: assign({ b: 1 }) }`, `{ a: null }`},
		{"dotted call", `{ a: Date.now(), b: 1 }`, `{ a: null, b: 1 }`},
		{"constructor", `{ a: new Date(0) }`, `{ a: null }`},
		{"call in array", `['a', assign(x), 'b']`, `['a', null, 'b']`},
		{"method shorthand", `{ guard(ctx) { return ctx.ok; }, b: 1 }`, `{ guard: null, b: 1 }`},
		{"dotted reference", `{ equals: STATUS.PENDING }`, `{ equals: "STATUS.PENDING" }`},
		{"spread", `{ ...Base.mirrorsOn, web: {} }`, `{  web: {} }`},
		{"trailing spread", `[1, ...rest]`, `[1, ]`},
		{"bare identifier", `{ a: PENDING }`, `{ a: PENDING }`},
		{"keys untouched", `{ status: 'x', on: { A: 'b' } }`, `{ status: 'x', on: { A: 'b' } }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}
