package vault

// HeaderInfo captures the cryptographic configuration stored in a vault header.
type HeaderInfo struct {
	FormatVersion uint16 `json:"format_version" yaml:"format_version"`
	Cipher        string `json:"cipher" yaml:"cipher"`
	KDF           string `json:"kdf" yaml:"kdf"`
	N             uint32 `json:"n" yaml:"n"`
	R             uint32 `json:"r" yaml:"r"`
	P             uint32 `json:"p" yaml:"p"`
	SaltLength    int    `json:"salt_length" yaml:"salt_length"`
	PayloadBytes  int    `json:"payload_bytes" yaml:"payload_bytes"`
}

// DescribeFile reads the header of a vault file without needing its key.
func DescribeFile(file []byte) (*HeaderInfo, error) {
	h, err := ParseHeader(file)
	if err != nil {
		return nil, err
	}

	return &HeaderInfo{
		FormatVersion: h.Version,
		Cipher:        "XChaCha20-Poly1305",
		KDF:           "scrypt",
		N:             h.Params.N,
		R:             h.Params.R,
		P:             h.Params.P,
		SaltLength:    len(h.Params.Salt),
		PayloadBytes:  len(file) - HeaderSize,
	}, nil
}
