package codec

import (
	"io"

	"github.com/bytedance/sonic"
)

var jsonConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return jsonConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return jsonConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return jsonConfig.Unmarshal(data, v)
}

func Encode(w io.Writer, v any) error {
	return jsonConfig.NewEncoder(w).Encode(v)
}

func Decode(r io.Reader, v any) error {
	return jsonConfig.NewDecoder(r).Decode(v)
}
