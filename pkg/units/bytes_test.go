package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteCountIEC(t *testing.T) {
	assert.Equal(t, "0 B", ByteCountIEC(0))
	assert.Equal(t, "1023 B", ByteCountIEC(1023))
	assert.Equal(t, "1.0 KiB", ByteCountIEC(1024))
	assert.Equal(t, "1.5 KiB", ByteCountIEC(1536))
	assert.Equal(t, "256.0 KiB", ByteCountIEC(256*1024))
	assert.Equal(t, "1.0 MiB", ByteCountIEC(1<<20))
	assert.Equal(t, "4.0 GiB", ByteCountIEC(4<<30))
}
