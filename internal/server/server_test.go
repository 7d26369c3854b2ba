package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/byteguard/byteguard-go/internal/blob"
	"github.com/byteguard/byteguard-go/internal/crypto"
	"github.com/byteguard/byteguard-go/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	blobs, err := blob.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	srv := New(DefaultConfig(), db, blobs, log)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, db
}

// doJSON performs a JSON request and decodes the JSON response body.
func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func doJSONList(t *testing.T, ts *httptest.Server, path, token string) (int, []map[string]interface{}) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded []map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '[' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

// registerUser registers an identity with a valid Kyber key and returns
// the session token and the keypair.
func registerUser(t *testing.T, ts *httptest.Server, rid string) (string, *crypto.Keypair) {
	t.Helper()

	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	status, body := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"researcherId":   rid,
		"password":       "correct-horse",
		"kyberPublicKey": crypto.ToBase64(kp.PublicKey),
	})
	require.Equal(t, http.StatusCreated, status, "register %s: %v", rid, body)
	return body["token"].(string), kp
}

// uploadBlob encrypts a plaintext and uploads a well-formed blob,
// returning the file id, the DEK, and the blob bytes.
func uploadBlob(t *testing.T, ts *httptest.Server, token string, kp *crypto.Keypair, plaintext []byte) (uint, []byte, []byte) {
	t.Helper()

	dek, err := crypto.NewDEK()
	require.NoError(t, err)
	blobBytes, err := crypto.EncryptBlob(dek, plaintext)
	require.NoError(t, err)

	ownerPayload, err := crypto.WrapDEK(dek, kp.PublicKey)
	require.NoError(t, err)

	status, body := uploadRaw(t, ts, token, blobBytes, map[string]string{
		"fileName":     "data.bin",
		"originalSize": fmt.Sprintf("%d", len(plaintext)),
		"contentType":  "application/octet-stream",
		"sha256Hash":   crypto.Fingerprint(blobBytes[crypto.AESNonceSize:]),
		"iv":           crypto.ToBase64(blobBytes[:crypto.AESNonceSize]),
		"ownerKemCt":   crypto.ToBase64(ownerPayload),
	})
	require.Equal(t, http.StatusCreated, status, "upload: %v", body)

	return uint(body["id"].(float64)), dek, blobBytes
}

func uploadRaw(t *testing.T, ts *httptest.Server, token string, blobBytes []byte, fields map[string]string) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "data.bin")
	require.NoError(t, err)
	_, err = part.Write(blobBytes)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/files/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		json.Unmarshal(raw, &decoded)
	}
	return resp.StatusCode, decoded
}

// newPayload wraps a random DEK for the keypair, yielding a valid
// 800-byte payload in base64.
func newPayload(t *testing.T, kp *crypto.Keypair) string {
	t.Helper()
	dek, err := crypto.NewDEK()
	require.NoError(t, err)
	payload, err := crypto.WrapDEK(dek, kp.PublicKey)
	require.NoError(t, err)
	return crypto.ToBase64(payload)
}

// ── Registry ──

func TestRegister_DuplicateID(t *testing.T) {
	ts, _ := newTestServer(t)
	registerUser(t, ts, "alice")

	status, body := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"researcherId": "alice",
		"password":     "something-else",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeAlreadyExists, body["code"])
}

func TestRegister_WeakPassword(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"researcherId": "alice",
		"password":     "short",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeWeakPassword, body["code"])
}

func TestRegister_BadKey(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"researcherId":   "alice",
		"password":       "correct-horse",
		"kyberPublicKey": crypto.ToBase64(make([]byte, 799)),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeBadKey, body["code"])
}

func TestLogin_BadCredentials(t *testing.T) {
	ts, _ := newTestServer(t)
	registerUser(t, ts, "alice")

	// Wrong password and unknown identifier answer identically.
	for _, input := range []map[string]string{
		{"researcherId": "alice", "password": "wrong-password"},
		{"researcherId": "nobody", "password": "wrong-password"},
	} {
		status, body := doJSON(t, ts, http.MethodPost, "/api/auth/login", "", input)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, CodeBadCredentials, body["code"])
		assert.Equal(t, "Invalid credentials", body["error"])
	}
}

func TestSession_LifecycleAndLogout(t *testing.T) {
	ts, _ := newTestServer(t)
	token, _ := registerUser(t, ts, "alice")

	status, body := doJSON(t, ts, http.MethodGet, "/api/auth/session", token, nil)
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["researcherId"])
	assert.Equal(t, true, user["hasKyberKey"])

	status, _ = doJSON(t, ts, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	// The revoked session is durable: the same token is now 401.
	status, body = doJSON(t, ts, http.MethodGet, "/api/auth/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, CodeUnauthorized, body["code"])
}

func TestSession_MissingToken(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodGet, "/api/auth/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, CodeUnauthorized, body["code"])
}

func TestSearch_CaseSensitivePrefix(t *testing.T) {
	ts, _ := newTestServer(t)
	token, _ := registerUser(t, ts, "searcher")
	registerUser(t, ts, "Alice")
	registerUser(t, ts, "alice2")
	registerUser(t, ts, "albert")

	status, results := doJSONList(t, ts, "/api/auth/search?q=al", token)
	require.Equal(t, http.StatusOK, status)

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r["researcherId"].(string))
	}
	assert.ElementsMatch(t, []string{"alice2", "albert"}, ids, "prefix match must be case-sensitive")
}

func TestPubkeyLookup(t *testing.T) {
	ts, _ := newTestServer(t)
	token, kp := registerUser(t, ts, "alice")

	status, body := doJSON(t, ts, http.MethodGet, "/api/auth/pubkey/alice", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, crypto.ToBase64(kp.PublicKey), body["kyberPublicKey"])

	status, body = doJSON(t, ts, http.MethodGet, "/api/auth/pubkey/nobody", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, CodeNotFound, body["code"])

	// Registered without a key: NotFound with the key-specific code.
	status, noKeyBody := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"researcherId": "keyless",
		"password":     "correct-horse",
	})
	require.Equal(t, http.StatusCreated, status, "%v", noKeyBody)

	status, body = doJSON(t, ts, http.MethodGet, "/api/auth/pubkey/keyless", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, CodeNoRecipientKey, body["code"])
}

// ── Blob store ──

func TestUpload_SizeMismatch(t *testing.T) {
	ts, _ := newTestServer(t)
	token, _ := registerUser(t, ts, "alice")

	blobBytes := make([]byte, 100)
	status, body := uploadRaw(t, ts, token, blobBytes, map[string]string{
		"fileName":     "data.bin",
		"originalSize": "500", // expects 12 + 500 + 16 = 528 bytes
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, CodeSizeMismatch, body["code"])
}

func TestUpload_FingerprintMismatch(t *testing.T) {
	ts, _ := newTestServer(t)
	token, _ := registerUser(t, ts, "alice")

	blobBytes := make([]byte, crypto.BlobOverhead+10)
	status, body := uploadRaw(t, ts, token, blobBytes, map[string]string{
		"fileName":     "data.bin",
		"originalSize": "10",
		"sha256Hash":   "0000000000000000000000000000000000000000000000000000000000000000",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, CodeFingerprintMismatch, body["code"])
}

func TestUpload_BadOwnerPayload(t *testing.T) {
	ts, _ := newTestServer(t)
	token, _ := registerUser(t, ts, "alice")

	blobBytes := make([]byte, crypto.BlobOverhead)
	status, body := uploadRaw(t, ts, token, blobBytes, map[string]string{
		"fileName":     "data.bin",
		"originalSize": "0",
		"ownerKemCt":   crypto.ToBase64(make([]byte, 799)),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeBadPayload, body["code"])
}

func TestDownload_AuthzDelegatedToLedger(t *testing.T) {
	ts, _ := newTestServer(t)
	aliceToken, aliceKP := registerUser(t, ts, "alice")
	bobToken, bobKP := registerUser(t, ts, "bob")
	eveToken, _ := registerUser(t, ts, "eve")

	fileID, _, blobBytes := uploadBlob(t, ts, aliceToken, aliceKP, []byte("secret payload"))
	path := fmt.Sprintf("/api/files/download/%d", fileID)

	// Owner reads their blob back byte-exact.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	got, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, blobBytes, got)

	// A stranger is forbidden.
	status, body := doJSON(t, ts, http.MethodGet, path, eveToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, CodeForbidden, body["code"])

	// A share flips bob's authorization on.
	status, shareBody := doJSON(t, ts, http.MethodPost, "/api/files/share", aliceToken, map[string]interface{}{
		"fileId":        fileID,
		"recipientId":   "bob",
		"kemCiphertext": newPayload(t, bobKP),
	})
	require.Equal(t, http.StatusCreated, status, "%v", shareBody)

	req, _ = http.NewRequest(http.MethodGet, ts.URL+path, nil)
	req.Header.Set("Authorization", "Bearer "+bobToken)
	resp, err = ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Missing files are 404, not 403.
	status, _ = doJSON(t, ts, http.MethodGet, "/api/files/download/99999", eveToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeleteFile_CascadesShares(t *testing.T) {
	ts, db := newTestServer(t)
	aliceToken, aliceKP := registerUser(t, ts, "alice")
	_, bobKP := registerUser(t, ts, "bob")

	fileID, _, _ := uploadBlob(t, ts, aliceToken, aliceKP, []byte("cascade me"))

	status, shareBody := doJSON(t, ts, http.MethodPost, "/api/files/share", aliceToken, map[string]interface{}{
		"fileId":        fileID,
		"recipientId":   "bob",
		"kemCiphertext": newPayload(t, bobKP),
	})
	require.Equal(t, http.StatusCreated, status, "%v", shareBody)

	status, _ = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/files/%d", fileID), aliceToken, nil)
	require.Equal(t, http.StatusOK, status)

	var n int64
	db.Model(&store.SharedAccess{}).Where("file_id = ?", fileID).Count(&n)
	assert.Zero(t, n, "share ledger rows must cascade")

	// Idempotent on the now-missing file.
	status, _ = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/files/%d", fileID), aliceToken, nil)
	assert.Equal(t, http.StatusOK, status)
}

// ── Share ledger ──

func TestShare_FetchByCode_ViewedFlagIdempotent(t *testing.T) {
	ts, _ := newTestServer(t)
	aliceToken, aliceKP := registerUser(t, ts, "alice")
	bobToken, bobKP := registerUser(t, ts, "bob")

	fileID, _, _ := uploadBlob(t, ts, aliceToken, aliceKP, []byte("for bob"))

	payload := newPayload(t, bobKP)
	status, shareBody := doJSON(t, ts, http.MethodPost, "/api/files/share", aliceToken, map[string]interface{}{
		"fileId":        fileID,
		"recipientId":   "bob",
		"kemCiphertext": payload,
		"permission":    "download",
	})
	require.Equal(t, http.StatusCreated, status, "%v", shareBody)
	code := shareBody["shareCode"].(string)
	assert.Len(t, code, store.ShareCodeLen)
	assert.Equal(t, false, shareBody["viewed"])

	// First fetch by the recipient flips viewed.
	status, first := doJSON(t, ts, http.MethodGet, "/api/files/share/"+code, bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, payload, first["kemCiphertext"])
	assert.Equal(t, true, first["viewed"])

	// Second fetch returns the identical payload, viewed stays true.
	status, second := doJSON(t, ts, http.MethodGet, "/api/files/share/"+code, bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, first["kemCiphertext"], second["kemCiphertext"])
	assert.Equal(t, true, second["viewed"])

	// A third party is forbidden even with the code.
	eveToken, _ := registerUser(t, ts, "eve")
	status, body := doJSON(t, ts, http.MethodGet, "/api/files/share/"+code, eveToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, CodeForbidden, body["code"])
}

func TestShare_SelfShareRejected(t *testing.T) {
	ts, _ := newTestServer(t)
	aliceToken, aliceKP := registerUser(t, ts, "alice")

	fileID, _, _ := uploadBlob(t, ts, aliceToken, aliceKP, []byte("mine"))

	status, body := doJSON(t, ts, http.MethodPost, "/api/files/share", aliceToken, map[string]interface{}{
		"fileId":        fileID,
		"recipientId":   "alice",
		"kemCiphertext": newPayload(t, aliceKP),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeInvalidInput, body["code"])
}

func TestShare_NonOwnerCannotShare(t *testing.T) {
	ts, _ := newTestServer(t)
	aliceToken, aliceKP := registerUser(t, ts, "alice")
	bobToken, bobKP := registerUser(t, ts, "bob")

	fileID, _, _ := uploadBlob(t, ts, aliceToken, aliceKP, []byte("alice's"))

	status, body := doJSON(t, ts, http.MethodPost, "/api/files/share", bobToken, map[string]interface{}{
		"fileId":        fileID,
		"recipientId":   "alice",
		"kemCiphertext": newPayload(t, bobKP),
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, CodeNotFound, body["code"])
}

func TestShare_BadPayloadLength(t *testing.T) {
	ts, _ := newTestServer(t)
	aliceToken, aliceKP := registerUser(t, ts, "alice")
	registerUser(t, ts, "bob")

	fileID, _, _ := uploadBlob(t, ts, aliceToken, aliceKP, []byte("x"))

	status, body := doJSON(t, ts, http.MethodPost, "/api/files/share", aliceToken, map[string]interface{}{
		"fileId":        fileID,
		"recipientId":   "bob",
		"kemCiphertext": crypto.ToBase64(make([]byte, 801)),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeBadPayload, body["code"])
}

func TestRevoke_TerminalForEveryone(t *testing.T) {
	ts, _ := newTestServer(t)
	aliceToken, aliceKP := registerUser(t, ts, "alice")
	bobToken, bobKP := registerUser(t, ts, "bob")

	fileID, _, _ := uploadBlob(t, ts, aliceToken, aliceKP, []byte("revocable"))

	status, shareBody := doJSON(t, ts, http.MethodPost, "/api/files/share", aliceToken, map[string]interface{}{
		"fileId":        fileID,
		"recipientId":   "bob",
		"kemCiphertext": newPayload(t, bobKP),
	})
	require.Equal(t, http.StatusCreated, status)
	code := shareBody["shareCode"].(string)
	shareID := int(shareBody["id"].(float64))

	// Only the sender can revoke.
	status, _ = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/files/shared/%d", shareID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/files/shared/%d", shareID), aliceToken, nil)
	require.Equal(t, http.StatusOK, status)

	// fetch-by-code now answers NotFound for every caller, sender included.
	for _, token := range []string{bobToken, aliceToken} {
		status, body := doJSON(t, ts, http.MethodGet, "/api/files/share/"+code, token, nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, CodeNotFound, body["code"])
	}

	// Revoked shares drop out of the incoming list.
	status, received := doJSONList(t, ts, "/api/files/received", bobToken)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, received)

	// The recipient loses blob read access too.
	status, _ = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/files/download/%d", fileID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

// ── Groups ──

func setupGroup(t *testing.T, ts *httptest.Server, ownerToken string, memberIDs ...string) uint {
	t.Helper()

	status, body := doJSON(t, ts, http.MethodPost, "/api/groups", ownerToken, map[string]string{
		"name": "pq-lab",
	})
	require.Equal(t, http.StatusCreated, status, "%v", body)
	groupID := uint(body["id"].(float64))

	for _, rid := range memberIDs {
		status, mb := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/groups/%d/members", groupID), ownerToken, map[string]string{
			"researcherId": rid,
		})
		require.Equal(t, http.StatusCreated, status, "add %s: %v", rid, mb)
	}
	return groupID
}

func TestGroupShare_AtomicFanOut(t *testing.T) {
	ts, db := newTestServer(t)
	aliceToken, aliceKP := registerUser(t, ts, "alice")
	_, bobKP := registerUser(t, ts, "bob")

	// carol has no Kyber key.
	status, _ := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"researcherId": "carol",
		"password":     "correct-horse",
	})
	require.Equal(t, http.StatusCreated, status)

	groupID := setupGroup(t, ts, aliceToken, "bob", "carol")
	fileID, _, _ := uploadBlob(t, ts, aliceToken, aliceKP, []byte("group secret"))

	// A mapping naming the keyless member fails as a whole.
	status, body := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/groups/%d/share", groupID), aliceToken, map[string]interface{}{
		"fileId": fileID,
		"kemCiphertexts": map[string]string{
			"bob":   newPayload(t, bobKP),
			"carol": newPayload(t, bobKP),
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeNoRecipientKey, body["code"])

	var n int64
	db.Model(&store.GroupFileAccess{}).Count(&n)
	assert.Zero(t, n, "failed fan-out must leave no rows")

	// A mapping naming a non-member fails as a whole.
	registerUser(t, ts, "mallory")
	status, body = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/groups/%d/share", groupID), aliceToken, map[string]interface{}{
		"fileId": fileID,
		"kemCiphertexts": map[string]string{
			"bob":     newPayload(t, bobKP),
			"mallory": newPayload(t, bobKP),
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeInvalidInput, body["code"])

	// Omitting the keyless member succeeds; carol simply has no access.
	status, body = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/groups/%d/share", groupID), aliceToken, map[string]interface{}{
		"fileId": fileID,
		"kemCiphertexts": map[string]string{
			"bob": newPayload(t, bobKP),
		},
	})
	require.Equal(t, http.StatusCreated, status, "%v", body)
}

func TestGroupShare_MemberVisibilityAndRemoval(t *testing.T) {
	ts, _ := newTestServer(t)
	aliceToken, aliceKP := registerUser(t, ts, "alice")
	bobToken, bobKP := registerUser(t, ts, "bob")
	daveToken, _ := registerUser(t, ts, "dave")

	groupID := setupGroup(t, ts, aliceToken, "bob")
	fileID, _, _ := uploadBlob(t, ts, aliceToken, aliceKP, []byte("shared with the lab"))

	bobPayload := newPayload(t, bobKP)
	status, body := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/groups/%d/share", groupID), aliceToken, map[string]interface{}{
		"fileId": fileID,
		"kemCiphertexts": map[string]string{
			"alice": newPayload(t, aliceKP),
			"bob":   bobPayload,
		},
	})
	require.Equal(t, http.StatusCreated, status, "%v", body)

	// Bob sees his own payload in the listing.
	status, list := doJSONList(t, ts, "/api/groups/shared-files", bobToken)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, list, 1)
	assert.Equal(t, bobPayload, list[0]["myKemCiphertext"])

	// Bob can read the blob; the non-member dave cannot.
	status, _ = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/files/download/%d", fileID), bobToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/files/download/%d", fileID), daveToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Removing bob revokes his future reads.
	status, _ = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/groups/%d/members/bob", groupID), aliceToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/files/download/%d", fileID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestGroup_MembershipRules(t *testing.T) {
	ts, _ := newTestServer(t)
	aliceToken, _ := registerUser(t, ts, "alice")
	bobToken, _ := registerUser(t, ts, "bob")
	registerUser(t, ts, "carol")

	groupID := setupGroup(t, ts, aliceToken, "bob")

	// A plain member cannot add.
	status, body := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/groups/%d/members", groupID), bobToken, map[string]string{
		"researcherId": "carol",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, CodeForbidden, body["code"])

	// Duplicate membership is a conflict.
	status, body = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/groups/%d/members", groupID), aliceToken, map[string]string{
		"researcherId": "bob",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeAlreadyExists, body["code"])

	// The owner cannot be removed.
	status, _ = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/groups/%d/members/alice", groupID), aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// A member can remove themselves.
	status, _ = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/groups/%d/members/bob", groupID), bobToken, nil)
	assert.Equal(t, http.StatusOK, status)
}

// ── Settings ──

func TestSettings_DefaultsAndUpsert(t *testing.T) {
	ts, _ := newTestServer(t)
	token, _ := registerUser(t, ts, "alice")

	status, body := doJSON(t, ts, http.MethodGet, "/api/settings", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "AES-256-GCM", body["algorithm"])
	assert.Equal(t, "512", body["keySize"])
	assert.Equal(t, true, body["auditLogging"])

	status, body = doJSON(t, ts, http.MethodPut, "/api/settings", token, map[string]interface{}{
		"autoDelete":     true,
		"sessionTimeout": "60",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["autoDelete"])
	assert.Equal(t, "60", body["sessionTimeout"])
	// Untouched fields keep their values.
	assert.Equal(t, "AES-256-GCM", body["algorithm"])
}

// ── History ──

func TestHistory_RecordedOnUploadAndShare(t *testing.T) {
	ts, _ := newTestServer(t)
	aliceToken, aliceKP := registerUser(t, ts, "alice")
	_, bobKP := registerUser(t, ts, "bob")

	fileID, _, _ := uploadBlob(t, ts, aliceToken, aliceKP, []byte("tracked"))
	status, shareBody := doJSON(t, ts, http.MethodPost, "/api/files/share", aliceToken, map[string]interface{}{
		"fileId":        fileID,
		"recipientId":   "bob",
		"kemCiphertext": newPayload(t, bobKP),
	})
	require.Equal(t, http.StatusCreated, status, "%v", shareBody)

	status, items := doJSONList(t, ts, "/api/files/history", aliceToken)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, items, 2)

	ops := []string{items[0]["operation"].(string), items[1]["operation"].(string)}
	assert.ElementsMatch(t, []string{"encrypt", "share"}, ops)
}

// ── Server ignorance ──

func TestServerState_NeverContainsPlaintext(t *testing.T) {
	ts, db := newTestServer(t)
	aliceToken, aliceKP := registerUser(t, ts, "alice")
	_, bobKP := registerUser(t, ts, "bob")

	plaintext := []byte("EXTREMELY-SENSITIVE-RESEARCH-DATA-0123456789")
	fileID, dek, _ := uploadBlob(t, ts, aliceToken, aliceKP, plaintext)

	status, shareBody := doJSON(t, ts, http.MethodPost, "/api/files/share", aliceToken, map[string]interface{}{
		"fileId":        fileID,
		"recipientId":   "bob",
		"kemCiphertext": newPayload(t, bobKP),
	})
	require.Equal(t, http.StatusCreated, status, "%v", shareBody)

	// Walk every stored row; neither the plaintext nor the raw DEK (in
	// any of its encodings) may appear in server state.
	needles := [][]byte{
		plaintext,
		dek,
		[]byte(crypto.ToBase64(dek)),
		[]byte(crypto.Fingerprint(dek)),
	}

	scan := func(rows []map[string]interface{}) {
		for _, row := range rows {
			for col, val := range row {
				s, ok := val.(string)
				if !ok {
					continue
				}
				for _, needle := range needles {
					assert.NotContains(t, s, string(needle), "column %s leaks secret material", col)
				}
			}
		}
	}

	for _, table := range []string{"users", "sessions", "file_metadata", "shared_access", "file_history"} {
		var rows []map[string]interface{}
		require.NoError(t, db.Table(table).Find(&rows).Error)
		scan(rows)
	}
}
