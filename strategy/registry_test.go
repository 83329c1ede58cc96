package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop/types"
)

func TestForID(t *testing.T) {
	for _, id := range IDs() {
		t.Run(id, func(t *testing.T) {
			rb, err := ForID(id)
			require.NoError(t, err)
			require.Equal(t, id == CooperativeStickyID, rb.Cooperative())
		})
	}

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := ForID("range")
		require.ErrorIs(t, err, types.ErrUnknownStrategy)
	})
}
