package utils

import (
	"bytes"

	"github.com/mogaika/xray_motion_browser/config"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// BytesToString decodes bs up to the first zero byte with the configured charmap.
// Charmap decoders map every byte, so this never fails.
func BytesToString(bs []byte) string {
	n := bytes.IndexByte(bs, 0)
	if n < 0 {
		n = len(bs)
	}

	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs[0:n])
	if err != nil {
		return string(bs[0:n])
	}
	return string(s)
}

// StringToBytes encodes s with the configured charmap.
// Runes outside of the charmap are replaced.
func StringToBytes(s string, nilTerminate bool) []byte {
	bs, _, err := transform.Bytes(encoding.ReplaceUnsupported(config.GetEncoding().NewEncoder()), []byte(s))
	if err != nil {
		bs = []byte(s)
	}

	if nilTerminate {
		bs = append(bs, 0)
	}
	return bs
}
