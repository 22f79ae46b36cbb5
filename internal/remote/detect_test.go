package remote_test

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentesthub/hubvault/internal/crypto"
	"github.com/pentesthub/hubvault/internal/events"
	"github.com/pentesthub/hubvault/internal/remote"
)

func TestDetectPayload(t *testing.T) {
	t.Run("envelope", func(t *testing.T) {
		logger := events.NewTestLogger(events.ErrorLevel, "text", io.Discard)
		provider := crypto.NewProvider(crypto.DefaultIterations, logger)
		env, err := provider.Encrypt([]string{"a", "b"}, "pw")
		require.NoError(t, err)
		raw, err := json.Marshal(env)
		require.NoError(t, err)

		payload, err := remote.DetectPayload(raw)
		require.NoError(t, err)
		assert.Equal(t, remote.PayloadEnvelope, payload.Kind)
		require.NotNil(t, payload.Envelope)
		assert.Equal(t, env.Ciphertext, payload.Envelope.Ciphertext)
		assert.Nil(t, payload.Plain)
	})

	t.Run("plaintext object", func(t *testing.T) {
		raw := []byte(`{"workspaces":[{"id":"ws1"}]}`)

		payload, err := remote.DetectPayload(raw)
		require.NoError(t, err)
		assert.Equal(t, remote.PayloadPlain, payload.Kind)
		assert.Nil(t, payload.Envelope)
		assert.JSONEq(t, string(raw), string(payload.Plain))
	})

	t.Run("plaintext array", func(t *testing.T) {
		payload, err := remote.DetectPayload([]byte(`[1,2,3]`))
		require.NoError(t, err)
		assert.Equal(t, remote.PayloadPlain, payload.Kind)
	})

	t.Run("foreign algorithm is plaintext", func(t *testing.T) {
		// Only the exact tag routes through decryption.
		payload, err := remote.DetectPayload([]byte(`{"algorithm":"AES-128-CBC","iv":"x"}`))
		require.NoError(t, err)
		assert.Equal(t, remote.PayloadPlain, payload.Kind)
	})

	t.Run("tagged but structurally broken", func(t *testing.T) {
		_, err := remote.DetectPayload([]byte(`{"algorithm":"AES-256-GCM"}`))
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := remote.DetectPayload([]byte(`<html>error page</html>`))
		assert.Error(t, err)
	})
}
