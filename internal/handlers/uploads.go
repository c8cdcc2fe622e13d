package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"cardlink/backend/internal/authctx"
	"cardlink/backend/internal/config"
	"cardlink/backend/internal/httpjson"
	"cardlink/backend/internal/logging"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	credentialspb "cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

const (
	defaultExpiry = 900
	maxExpiry     = 3600
)

// SignFunc signs V4 string-to-sign payloads.
type SignFunc func(ctx context.Context, payload []byte) ([]byte, error)

// Uploads hands out signed PUT URLs for cardholder photos.
type Uploads struct {
	bucket  string
	account string
	sign    SignFunc
	now     func() time.Time
	log     *zap.Logger
}

func NewUploads(cfg config.Config, sign SignFunc, log *zap.Logger) *Uploads {
	return &Uploads{
		bucket:  cfg.StorageBucket,
		account: cfg.SignedURLServiceAccountEmail,
		sign:    sign,
		now:     time.Now,
		log:     logging.OrNop(log),
	}
}

// IAMSigner signs through the IAM Credentials SignBlob API as account.
func IAMSigner(client *credentials.IamCredentialsClient, account string) SignFunc {
	if client == nil {
		return nil
	}
	name := fmt.Sprintf("projects/-/serviceAccounts/%s", account)
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		resp, err := client.SignBlob(ctx, &credentialspb.SignBlobRequest{
			Name:    name,
			Payload: payload,
		})
		if err != nil {
			return nil, err
		}
		return resp.SignedBlob, nil
	}
}

type signedURLReq struct {
	ObjectPath     string `json:"objectPath"` // companies/{companyId}/cardholders/{id}/photo.jpg
	ContentType    string `json:"contentType,omitempty"`
	ExpiresSeconds int64  `json:"expiresSeconds,omitempty"`
}

type signedURLResp struct {
	URL         string `json:"url"`
	Method      string `json:"method"`
	ObjectPath  string `json:"objectPath"`
	ContentType string `json:"contentType"`
	PublicURL   string `json:"publicUrl"`
	ExpiresAt   int64  `json:"expiresAt"`
}

func (h *Uploads) CreateSignedUploadURL(w http.ResponseWriter, r *http.Request) {
	p, ok := authctx.PrincipalFrom(r.Context())
	if !ok || !p.IsAdmin() {
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req signedURLReq
	if err := httpjson.Read(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	objectPath, err := cleanObjectPath(req.ObjectPath)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if !strings.HasPrefix(objectPath, CardholderPrefix(p.CompanyID)) {
		httpjson.Error(w, http.StatusForbidden, "objectPath must be under "+CardholderPrefix(p.CompanyID))
		return
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if !strings.HasPrefix(contentType, "image/") || contentType == "image/" {
		httpjson.Error(w, http.StatusBadRequest, "contentType must be an image type")
		return
	}

	signed, exp, err := h.signedURL(r.Context(), objectPath, contentType, req.ExpiresSeconds)
	if err != nil {
		h.log.Error("failed to sign upload url", zap.String("objectPath", objectPath), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "failed to create upload url")
		return
	}
	httpjson.OK(w, http.StatusOK, signedURLResp{
		URL:         signed,
		Method:      http.MethodPut,
		ObjectPath:  objectPath,
		ContentType: contentType,
		PublicURL:   fmt.Sprintf("https://storage.googleapis.com/%s/%s", h.bucket, (&url.URL{Path: objectPath}).EscapedPath()),
		ExpiresAt:   exp.Unix(),
	})
}

// CardholderPrefix is the only object prefix a company may write to.
func CardholderPrefix(companyID string) string {
	return "companies/" + companyID + "/cardholders/"
}

func cleanObjectPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("objectPath is required")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "..") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("objectPath is invalid")
	}
	if cleaned := path.Clean(p); cleaned != p || strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("objectPath is invalid")
	}
	return p, nil
}

func (h *Uploads) signedURL(ctx context.Context, objectPath, contentType string, expiresSeconds int64) (string, time.Time, error) {
	if h.bucket == "" {
		return "", time.Time{}, fmt.Errorf("FIREBASE_STORAGE_BUCKET is not set")
	}
	if h.account == "" {
		return "", time.Time{}, fmt.Errorf("SIGNED_URL_SERVICE_ACCOUNT_EMAIL is not set")
	}
	if h.sign == nil {
		return "", time.Time{}, fmt.Errorf("IAM credentials client not available")
	}
	if expiresSeconds <= 0 || expiresSeconds > maxExpiry {
		expiresSeconds = defaultExpiry
	}
	exp := h.now().Add(time.Duration(expiresSeconds) * time.Second)

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         http.MethodPut,
		Expires:        exp,
		ContentType:    contentType,
		GoogleAccessID: h.account,
		SignBytes: func(b []byte) ([]byte, error) {
			return h.sign(ctx, b)
		},
	}

	u, err := storage.SignedURL(h.bucket, objectPath, opts)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign url (check service account + permissions): %w", err)
	}
	return u, exp, nil
}
