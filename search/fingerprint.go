package search

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/jonwraymond/apidiscovery/index"
)

// computeFingerprint generates a stable hash of the endpoint slice.
// It changes whenever any indexed field or the order of endpoints changes,
// which is what invalidates the cached Bleve index.
func computeFingerprint(endpoints []index.Endpoint) string {
	h := sha256.New()

	for _, ep := range endpoints {
		for _, field := range []string{
			ep.Method,
			ep.Path,
			ep.Summary,
			ep.Description,
			ep.OperationID,
			strings.Join(ep.Tags, "\x01"),
		} {
			h.Write([]byte(field))
			h.Write([]byte{0})
		}
		h.Write([]byte{0x1e}) // record separator
	}

	return hex.EncodeToString(h.Sum(nil))
}
