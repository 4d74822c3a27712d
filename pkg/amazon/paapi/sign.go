package paapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// service is the fixed PA-API service name used in the credential scope.
const service = "ProductAdvertisingAPI"

// amzDateLayout is the timestamp format carried in X-Amz-Date.
const amzDateLayout = "20060102T150405Z"

// SignInputs captures everything that contributes to a SigV4 signature for one
// request. Headers are keyed by lowercase name and must include host and
// x-amz-date.
type SignInputs struct {
	Method      string
	Path        string
	Headers     map[string]string
	PayloadHash string
}

// HashPayload returns the lowercase hex SHA-256 digest of body, as carried in
// X-Amz-Content-Sha256 and the canonical request.
func HashPayload(body []byte) string {
	sum := sha256.Sum256(body)

	return hex.EncodeToString(sum[:])
}

// canonicalRequest builds the SigV4 canonical request string and the
// semicolon-joined list of signed header names. Header names are lowercased,
// values trimmed, and both sorted by name.
func canonicalRequest(in SignInputs) (string, string) {
	names := make([]string, 0, len(in.Headers))
	for name := range in.Headers {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)

	var headerLines strings.Builder
	for _, name := range names {
		headerLines.WriteString(name)
		headerLines.WriteString(":")
		headerLines.WriteString(strings.TrimSpace(in.Headers[name]))
		headerLines.WriteString("\n")
	}
	signedNames := strings.Join(names, ";")

	canonical := strings.Join([]string{
		in.Method,
		in.Path,
		"", // no query string on PA-API POSTs
		headerLines.String(),
		signedNames,
		in.PayloadHash,
	}, "\n")

	return canonical, signedNames
}

// stringToSign derives the final string signed by the chained HMAC key.
func stringToSign(amzDate, scope, canonical string) string {
	sum := sha256.Sum256([]byte(canonical))

	return strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hex.EncodeToString(sum[:]),
	}, "\n")
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))

	return mac.Sum(nil)
}

// signingKey chains four HMAC-SHA256 operations over the secret key, date,
// region and service to produce the per-day signing key.
func signingKey(secretKey, date, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), date)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)

	return hmacSHA256(kService, "aws4_request")
}

// Authorization computes the complete SigV4 Authorization header value for
// the given inputs. The result is deterministic for fixed credentials, date
// and payload.
func Authorization(accessKey, secretKey, region, amzDate string, in SignInputs) string {
	date := amzDate[:8]
	scope := fmt.Sprintf("%s/%s/%s/aws4_request", date, region, service)

	canonical, signedNames := canonicalRequest(in)
	sts := stringToSign(amzDate, scope, canonical)
	signature := hex.EncodeToString(hmacSHA256(signingKey(secretKey, date, region), sts))

	return fmt.Sprintf("AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		accessKey, scope, signedNames, signature)
}
