package network

import (
	"context"

	"deployer/internal/address"
)

// Receipt collects the submissions made for one deployment
type Receipt struct {
	Install *SubmissionResult
	Create  *SubmissionResult
	Salt    address.Salt
}

// FeeCharged sums the fees of every recorded submission
func (r *Receipt) FeeCharged() int64 {
	var total int64
	for _, s := range []*SubmissionResult{r.Install, r.Create} {
		if s != nil {
			total += s.FeeCharged
		}
	}
	return total
}

type receiptKey struct{}

// WithReceipt returns a context whose submissions are recorded into r
func WithReceipt(ctx context.Context, r *Receipt) context.Context {
	return context.WithValue(ctx, receiptKey{}, r)
}

func receiptFrom(ctx context.Context) *Receipt {
	r, _ := ctx.Value(receiptKey{}).(*Receipt)
	return r
}

func recordReceipt(ctx context.Context, phase Phase, result *SubmissionResult) {
	r := receiptFrom(ctx)
	if r == nil {
		return
	}
	switch phase {
	case PhaseInstall:
		r.Install = result
	case PhaseCreate:
		r.Create = result
	}
}
