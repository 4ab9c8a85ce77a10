// Package storage 为发布包生成带签名的上传/下载地址
package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultUploadTTL   = 15 * time.Minute
	DefaultDownloadTTL = time.Hour

	BundleContentType = "application/zip"
)

// Signer 生成短期有效的预签名地址, 由制品存储网关按同一密钥校验
type Signer struct {
	baseURL     string
	key         []byte
	uploadTTL   time.Duration
	downloadTTL time.Duration
	now         func() time.Time
}

func NewSigner(baseURL, signingKey string, uploadTTL, downloadTTL time.Duration) *Signer {
	if uploadTTL <= 0 {
		uploadTTL = DefaultUploadTTL
	}
	if downloadTTL <= 0 {
		downloadTTL = DefaultDownloadTTL
	}
	return &Signer{
		baseURL:     strings.TrimRight(baseURL, "/"),
		key:         []byte(signingKey),
		uploadTTL:   uploadTTL,
		downloadTTL: downloadTTL,
		now:         time.Now,
	}
}

// UploadURL 上传地址, 限定单一 content-type
type UploadURL struct {
	URL         string    `json:"url"`
	BlobKey     string    `json:"blob_key"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewBlobKey 生成包对象Key: <app>/<deployment>/<uuid>
func NewBlobKey(app, deployment string) string {
	return fmt.Sprintf("%s/%s/%s", url.PathEscape(app), url.PathEscape(deployment), uuid.NewString())
}

// DownloadURL 下载地址
func (s *Signer) DownloadURL(blobKey string) string {
	expires := s.now().Add(s.downloadTTL).Unix()
	return s.sign("GET", blobKey, "", expires)
}

// UploadURL 上传地址
func (s *Signer) UploadURL(blobKey string) UploadURL {
	expiresAt := s.now().Add(s.uploadTTL)
	return UploadURL{
		URL:         s.sign("PUT", blobKey, BundleContentType, expiresAt.Unix()),
		BlobKey:     blobKey,
		ContentType: BundleContentType,
		ExpiresAt:   expiresAt,
	}
}

// Verify 校验签名及有效期
func (s *Signer) Verify(method, blobKey, contentType string, expires int64, signature string) bool {
	if s.now().Unix() > expires {
		return false
	}
	expected := s.signature(method, blobKey, contentType, expires)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *Signer) sign(method string, blobKey, contentType string, expires int64) string {
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	if contentType != "" {
		q.Set("content_type", contentType)
	}
	q.Set("signature", s.signature(method, blobKey, contentType, expires))
	return fmt.Sprintf("%s/%s?%s", s.baseURL, blobKey, q.Encode())
}

func (s *Signer) signature(method string, blobKey, contentType string, expires int64) string {
	mac := hmac.New(sha256.New, s.key)
	fmt.Fprintf(mac, "%s\n%s\n%s\n%d", method, blobKey, contentType, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
