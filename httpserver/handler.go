package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/attestd/device-attestation-backend/attestation"
	"github.com/attestd/device-attestation-backend/challenge"
	"github.com/attestd/device-attestation-backend/interfaces"
	"github.com/attestd/device-attestation-backend/metrics"
)

// maxBodySize caps request bodies. Attestation objects are a few KB; 1MB
// leaves generous headroom.
const maxBodySize = 1 << 20

// Handler implements the attestation API endpoints.
type Handler struct {
	verifier      *attestation.Verifier
	challenges    *challenge.Store
	issuer        interfaces.CredentialIssuer
	credentialTTL time.Duration
	log           *slog.Logger
	metrics       *metrics.MetricsServer
}

// NewHandler creates a handler wired to the verification pipeline, the
// challenge store, and the credential issuer.
func NewHandler(verifier *attestation.Verifier, challenges *challenge.Store, issuer interfaces.CredentialIssuer, credentialTTL time.Duration, log *slog.Logger) *Handler {
	return &Handler{
		verifier:      verifier,
		challenges:    challenges,
		issuer:        issuer,
		credentialTTL: credentialTTL,
		log:           log,
	}
}

type challengeResponse struct {
	ChallengeID string    `json:"challenge_id"`
	Challenge   string    `json:"challenge"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type verifyRequest struct {
	ChallengeID       string `json:"challenge_id"`
	KeyID             string `json:"key_id"`
	AttestationObject string `json:"attestation_object"`
}

type verifyResponse struct {
	Verified bool   `json:"verified"`
	DeviceID string `json:"device_id"`
}

type credentialRequest struct {
	DeviceID string `json:"device_id"`
	KeyID    string `json:"key_id"`
}

type credentialResponse struct {
	Credential string    `json:"credential"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type credentialVerifyRequest struct {
	Credential string `json:"credential"`
}

type credentialVerifyResponse struct {
	DeviceID string `json:"device_id"`
	KeyID    string `json:"key_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleChallenge issues a fresh single-use challenge for a subsequent
// verification call.
func (h *Handler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	record, err := h.challenges.Issue(r.Context())
	if err != nil {
		h.log.Error("Failed to issue challenge", "err", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	h.metrics.RecordChallengeIssued()
	h.writeJSON(w, http.StatusOK, challengeResponse{
		ChallengeID: record.ID.String(),
		Challenge:   base64.StdEncoding.EncodeToString(record.Value),
		ExpiresAt:   record.ExpiresAt,
	})
}

// HandleVerify runs the verification pipeline for a submitted attestation
// object. The referenced challenge is consumed before any validation so a
// failed attempt cannot retry against the same challenge.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed_request")
		return
	}

	challengeID, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed_request")
		return
	}

	rawObject, err := base64.StdEncoding.DecodeString(req.AttestationObject)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed_request")
		return
	}

	keyID, err := interfaces.NewKeyID(req.KeyID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed_request")
		return
	}

	record, err := h.challenges.Consume(r.Context(), challengeID)
	if err != nil {
		outcome := "challenge_not_found"
		if errors.Is(err, challenge.ErrExpired) {
			outcome = "challenge_expired"
		}
		h.log.Info("Rejected verification with unusable challenge",
			slog.String("challengeID", req.ChallengeID),
			slog.String("reason", outcome))
		h.metrics.RecordVerification(outcome)
		h.writeError(w, http.StatusUnauthorized, outcome)
		return
	}

	result, err := h.verifier.Verify(r.Context(), rawObject, record.Value, keyID)
	if err != nil {
		kind := interfaces.KindOf(err)
		h.metrics.RecordVerification(string(kind))
		h.writeError(w, statusForKind(kind), string(kind))
		return
	}

	h.metrics.RecordVerification("ok")
	h.writeJSON(w, http.StatusOK, verifyResponse{
		Verified: result.Verified,
		DeviceID: result.DeviceID.String(),
	})
}

// HandleIssueCredential mints a credential for a previously verified
// device.
func (h *Handler) HandleIssueCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed_request")
		return
	}

	deviceID, err := interfaces.NewDeviceIDFromHex(req.DeviceID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed_request")
		return
	}
	keyID, err := interfaces.NewKeyID(req.KeyID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed_request")
		return
	}

	token, expiresAt, err := h.issuer.Issue(r.Context(), interfaces.Subject{DeviceID: deviceID, KeyID: keyID}, h.credentialTTL)
	if err != nil {
		kind := interfaces.KindOf(err)
		h.writeError(w, statusForKind(kind), string(kind))
		return
	}

	h.metrics.RecordCredentialIssued()
	h.writeJSON(w, http.StatusOK, credentialResponse{
		Credential: token,
		ExpiresAt:  expiresAt,
	})
}

// HandleVerifyCredential checks a presented credential and returns its
// subject.
func (h *Handler) HandleVerifyCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialVerifyRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed_request")
		return
	}

	subject, err := h.issuer.Verify(req.Credential)
	if err != nil {
		kind := interfaces.KindOf(err)
		h.writeError(w, statusForKind(kind), string(kind))
		return
	}

	h.writeJSON(w, http.StatusOK, credentialVerifyResponse{
		DeviceID: subject.DeviceID.String(),
		KeyID:    subject.KeyID.String(),
	})
}

// statusForKind maps a pipeline error kind to an HTTP status. Malformed
// input is the client's bug (400); everything that fails a security check
// is an authorization failure (401). Unclassified errors are internal.
func statusForKind(kind interfaces.ErrorKind) int {
	switch {
	case kind == "":
		return http.StatusInternalServerError
	case kind.ClientError():
		return http.StatusBadRequest
	default:
		return http.StatusUnauthorized
	}
}

func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to parse request body: %w", err)
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Failed to write response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, reason string) {
	h.writeJSON(w, status, errorResponse{Error: reason})
}
