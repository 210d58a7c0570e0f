package sessions

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint deterministically identifies a reusable artifact from
// its inputs. json.Marshal sorts map keys, so equal option sets hash
// equally regardless of insertion order.
func Fingerprint(resumeID, templateID string, options map[string]string) string {
	opts, _ := json.Marshal(options)

	h := sha256.New()
	h.Write([]byte(resumeID))
	h.Write([]byte{0})
	h.Write([]byte(templateID))
	h.Write([]byte{0})
	h.Write(opts)
	return hex.EncodeToString(h.Sum(nil))
}
