package errkind

import (
	"fmt"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	t.Run("new carries kind", func(t *testing.T) {
		err := New(Unimplemented, "envelope of %s", "Mixed")
		require.Error(t, err)
		assert.Equal(t, Unimplemented, KindOf(err))
		assert.Equal(t, "unimplemented: envelope of Mixed", err.Error())
	})

	t.Run("wrap keeps cause", func(t *testing.T) {
		err := Wrap(WKBParse, io.ErrUnexpectedEOF, "failed to parse row %d", 3)
		assert.True(t, Is(err, WKBParse))
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
		assert.Equal(t, io.ErrUnexpectedEOF, errors.Cause(err))
	})

	t.Run("wrap nil", func(t *testing.T) {
		assert.NoError(t, Wrap(Internal, nil, "nothing"))
	})

	t.Run("kind survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(MalformedGeoMetadata, "bad json"))
		assert.Equal(t, MalformedGeoMetadata, KindOf(err))
	})

	t.Run("untagged is internal", func(t *testing.T) {
		assert.Equal(t, Internal, KindOf(errors.New("plain")))
		assert.False(t, Is(nil, Internal))
	})
}
