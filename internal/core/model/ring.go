package model

// Ring is a group of signatures linked by near-duplicate pairs.
type Ring struct {
	SignatureIDs  []int64 `json:"signature_ids"`
	StudentIDs    []int64 `json:"student_ids"`
	MaxSimilarity float64 `json:"max_similarity"`
}

// Shared reports whether more than one student signed with the ring's signatures.
func (r Ring) Shared() bool {
	return len(r.StudentIDs) > 1
}
