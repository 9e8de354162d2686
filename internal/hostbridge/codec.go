package hostbridge

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode writes frames with Core Deterministic Encoding so identical frames
// always produce identical bytes.
var encMode cbor.EncMode

// decMode accepts standard CBOR and ignores unknown fields.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("hostbridge: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("hostbridge: CBOR decoder initialization failed: " + err.Error())
	}
}

// NewEncoder returns a frame encoder writing a CBOR sequence to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a frame decoder reading a CBOR sequence from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
