package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("secret"))
	assert.Equal(t, "****cdef", MaskSecret("0123456789abcdef"))
}

func TestRedact(t *testing.T) {
	in := map[string]any{"client_id": "web", "secret": "0123456789abcdef", "empty": ""}
	out := Redact(in, "secret", "empty", "missing")

	assert.Equal(t, map[string]any{"client_id": "web", "secret": "****cdef"}, out)
	assert.Equal(t, "0123456789abcdef", in["secret"])
	assert.Nil(t, Redact(nil, "secret"))
}
