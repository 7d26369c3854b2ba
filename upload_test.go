package byteguard_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	byteguard "github.com/byteguard/byteguard-go"
)

func TestUpload_PhaseSequence(t *testing.T) {
	env := newEnv(t)
	alice := env.newClient(t)
	ctx := context.Background()

	require.NoError(t, alice.Register(ctx, "alice", "correct-horse"))

	var phases []byteguard.UploadPhase
	_, err := alice.Upload(ctx, "f.txt", "text/plain", []byte("phased"),
		byteguard.WithProgress(func(p byteguard.UploadPhase) {
			phases = append(phases, p)
		}))
	require.NoError(t, err)

	want := []byteguard.UploadPhase{
		byteguard.UploadIdle,
		byteguard.UploadKeyDraw,
		byteguard.UploadIvDraw,
		byteguard.UploadEncrypt,
		byteguard.UploadHash,
		byteguard.UploadOwnerWrap,
		byteguard.UploadStore,
		byteguard.UploadDone,
	}
	assert.Equal(t, want, phases, "pipeline must walk every phase in order")
}

func TestUpload_RequiresLogin(t *testing.T) {
	env := newEnv(t)
	alice := env.newClient(t)
	ctx := context.Background()

	_, err := alice.Upload(ctx, "f.txt", "", []byte("x"))
	assert.ErrorIs(t, err, byteguard.ErrNotLoggedIn)
}

func TestUploadPhase_String(t *testing.T) {
	tests := []struct {
		phase byteguard.UploadPhase
		want  string
	}{
		{byteguard.UploadIdle, "idle"},
		{byteguard.UploadKeyDraw, "key-draw"},
		{byteguard.UploadIvDraw, "iv-draw"},
		{byteguard.UploadEncrypt, "encrypt"},
		{byteguard.UploadHash, "hash"},
		{byteguard.UploadOwnerWrap, "owner-wrap"},
		{byteguard.UploadStore, "store"},
		{byteguard.UploadDone, "done"},
		{byteguard.UploadFailed, "failed"},
		{byteguard.UploadPhase(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.phase.String())
	}
}

func TestUpload_OversizedRejectedBeforeCrypto(t *testing.T) {
	env := newEnv(t)
	alice := env.newClient(t)
	ctx := context.Background()

	require.NoError(t, alice.Register(ctx, "alice", "correct-horse"))

	var phases []byteguard.UploadPhase
	oversized := make([]byte, (100<<20)+1)
	_, err := alice.Upload(ctx, "big", "", oversized,
		byteguard.WithProgress(func(p byteguard.UploadPhase) {
			phases = append(phases, p)
		}))
	require.ErrorIs(t, err, byteguard.ErrInvalidInput)

	// Validation fails before any key material is drawn.
	assert.Equal(t, []byteguard.UploadPhase{byteguard.UploadIdle, byteguard.UploadFailed}, phases)
}
