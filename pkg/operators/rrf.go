package operators

import (
	"context"
	"sort"

	"github.com/ivgraph/ivgraph/pkg/sqlhost"
	"github.com/ivgraph/ivgraph/pkg/validator"
)

// DefaultRRFDamping is the `c` constant in 1/(c+rank), per the
// reciprocal rank fusion formula.
const DefaultRRFDamping = 60

// FusedResult is one row of `kg_RRF_FUSE` output.
type FusedResult struct {
	ID    string
	RRF   float64
	VS    float64 // vector-search score, 0 if id absent from that list
	BM25  float64 // text-search score, 0 if id absent from that list
}

// Fuse combines a vector-search ranking and a text-search ranking by
// Reciprocal Rank Fusion: for each id, score = sum over the lists it
// appears in of 1/(damping+rank), rank 1-based. Ties are broken by
// insertion order of vecResults (stable sort keeps vector hits first
// among equal scores, matching the documented scenario's tie-break).
func Fuse(vecResults []ScoredNode, textResults []ScoredText, damping int, k int) []FusedResult {
	if damping <= 0 {
		damping = DefaultRRFDamping
	}
	byID := map[string]*FusedResult{}
	order := []string{}

	for rank, r := range vecResults {
		fr, ok := byID[r.NodeID]
		if !ok {
			fr = &FusedResult{ID: r.NodeID}
			byID[r.NodeID] = fr
			order = append(order, r.NodeID)
		}
		fr.VS = r.Score
		fr.RRF += 1.0 / float64(damping+rank+1)
	}
	for rank, r := range textResults {
		fr, ok := byID[r.ID]
		if !ok {
			fr = &FusedResult{ID: r.ID}
			byID[r.ID] = fr
			order = append(order, r.ID)
		}
		fr.BM25 = r.Score
		fr.RRF += 1.0 / float64(damping+rank+1)
	}

	out := make([]FusedResult, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RRF > out[j].RRF })

	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// RRFFuse is `kg_RRF_FUSE`: runs KNN and Text concurrently-in-spirit
// (sequentially here, since both are cheap bounded queries) and fuses
// the two rankings.
func RRFFuse(ctx context.Context, conn sqlhost.Conn, queryVector any, queryText string, label string, k1, k2, damping, k int) ([]FusedResult, error) {
	k1, err := validator.CoerceK(k1)
	if err != nil {
		return nil, err
	}
	k2, err = validator.CoerceK(k2)
	if err != nil {
		return nil, err
	}

	vecResults, err := KNN(ctx, conn, queryVector, label, k1, "")
	if err != nil {
		return nil, err
	}
	textResults, err := Text(ctx, conn, queryText, k2)
	if err != nil {
		return nil, err
	}

	kOut, err := validator.CoerceK(k)
	if err != nil {
		return nil, err
	}
	return Fuse(vecResults, textResults, damping, kOut), nil
}
