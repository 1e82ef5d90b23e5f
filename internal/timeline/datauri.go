package timeline

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DataURI is a decoded data: URI, the embedded form a local media file takes
// inside a document before its bytes have been uploaded anywhere.
type DataURI struct {
	MIME string
	Data []byte
}

// ParseDataURI decodes a base64 data: URI.
func ParseDataURI(src string) (DataURI, error) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return DataURI{}, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DataURI{}, fmt.Errorf("malformed data URI: missing payload")
	}
	mime, hasB64 := strings.CutSuffix(meta, ";base64")
	if !hasB64 {
		return DataURI{}, fmt.Errorf("unsupported data URI encoding: %q", meta)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return DataURI{}, fmt.Errorf("decode data URI payload: %w", err)
	}
	return DataURI{MIME: mime, Data: data}, nil
}

// Encode renders the payload back into data: URI form.
func (d DataURI) Encode() string {
	return "data:" + d.MIME + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

func (d DataURI) Size() int64 {
	return int64(len(d.Data))
}
