package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "feedlink/pkg/domain-errors"
)

func TestNewDonor(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.New()

	t.Run("normalizes fields", func(t *testing.T) {
		d, err := NewDonor(id, "  Ada Lovelace ", " Ada@Example.ORG ", now)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", d.Name)
		assert.Equal(t, "ada@example.org", d.Email)
		assert.Equal(t, now, d.CreatedAt)
	})

	t.Run("derives a name from the email", func(t *testing.T) {
		d, err := NewDonor(id, "", "grace.hopper@example.org", now)
		require.NoError(t, err)
		assert.Equal(t, "Grace Hopper", d.Name)
	})

	t.Run("needs an id and a name or email", func(t *testing.T) {
		_, err := NewDonor(uuid.Nil, "Ada", "", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

		_, err = NewDonor(id, " ", "", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
