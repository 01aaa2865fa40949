package adapter

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// logical data always produces identical bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("adapter: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("adapter: CBOR decoder initialization failed: " + err.Error())
	}
}

func marshalCBOR(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func unmarshalCBOR(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewCBOREncoder returns a deterministic CBOR stream encoder writing to w.
func NewCBOREncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewCBORDecoder returns a CBOR stream decoder reading from r.
func NewCBORDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
