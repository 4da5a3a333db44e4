package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"sort"
)

// signTwilio computes X-Twilio-Signature: base64(HMAC-SHA1(token, url + sorted key/value pairs)).
func signTwilio(token, url string, params map[string]string) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := url
	for _, k := range keys {
		s += k + params[k]
	}
	mac := hmac.New(sha1.New, []byte(token))
	if _, err := mac.Write([]byte(s)); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
