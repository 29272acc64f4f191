package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ewaste-backend/internal/models"
	"ewaste-backend/internal/workflow"
)

func TestCertificateForCompletedRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	done := e.complete(t)

	for _, actor := range []workflow.Actor{e.donor, e.recycler, e.admin} {
		pdf, err := e.certs.Generate(ctx, actor, done.ID)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	}

	_, err := e.certs.Generate(ctx, e.otherDonor, done.ID)
	assert.ErrorIs(t, err, workflow.ErrAuthorization)
}

func TestCertificateRequiresCompletion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	req := e.submit(t)

	_, err := e.certs.Generate(ctx, e.donor, req.ID)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)

	_, err = e.requests.UpdateStatus(ctx, e.admin, req.ID, models.StatusRejected)
	require.NoError(t, err)
	_, err = e.certs.Generate(ctx, e.donor, req.ID)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)

	_, err = e.certs.Generate(ctx, e.admin, 4242)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
