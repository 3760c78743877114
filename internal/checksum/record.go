package checksum

// Record is a checksum obtained from an upstream source, together with
// where it came from. A Record must validate before any artifact byte
// is downloaded against it.
type Record struct {
	Digest     string
	Algorithm  Algorithm
	Provenance string
}

// Validate checks the record's digest is structurally well-formed for
// its algorithm.
func (r Record) Validate() error {
	return Validate(r.Digest, r.Algorithm)
}
