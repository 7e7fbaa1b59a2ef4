package reference

import (
	"sync"

	"quxat/internal"
	"quxat/internal/util"
)

// Validator answers "is certification type X valid for organization
// (name, city)?". Only verifiable types are cross-checked against the roster;
// everything else passes, with validity asserted by the presence of the claim
// itself.
type Validator struct {
	path       string
	lenient    bool
	verifiable map[string]struct{}

	once sync.Once
	idx  *Index
}

func NewValidator(path string, lenient bool) *Validator {
	return &Validator{
		path:       path,
		lenient:    lenient,
		verifiable: map[string]struct{}{internal.CertJCI: {}},
	}
}

// NewValidatorWithIndex bypasses the file load; used by tests and by callers
// that already hold a parsed roster.
func NewValidatorWithIndex(idx *Index, lenient bool) *Validator {
	v := NewValidator("", lenient)
	v.once.Do(func() {})
	v.idx = idx
	return v
}

func (v *Validator) Verifiable(certType string) bool {
	_, ok := v.verifiable[certType]
	return ok
}

func (v *Validator) IsValid(certType, name, city string) bool {
	if !v.Verifiable(certType) {
		return true
	}
	v.once.Do(func() { v.idx = LoadIndex(v.path) })
	return v.idx.Accepts(util.MatchKey(name), util.MatchKey(city), v.lenient)
}
