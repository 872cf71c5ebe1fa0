package ops

import (
	"context"

	"github.com/hpungsan/meishi/internal/record"
	"github.com/hpungsan/meishi/internal/state"
)

// Summarizer condenses memo text. extract.Service satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// AddMemoInput contains parameters for the AddMemo operation.
type AddMemoInput struct {
	Text      string
	Summarize bool
}

// AddMemoOutput contains the result of the AddMemo operation.
type AddMemoOutput struct {
	record.Memo
	Warning string `json:"warning,omitempty"`
}

// AddMemo stores a memo, optionally summarized first.
// A failed summary call aborts without storing anything.
func AddMemo(ctx context.Context, st *state.State, s Summarizer, input AddMemoInput) (*AddMemoOutput, error) {
	summary := ""
	if input.Summarize && s != nil {
		var err error
		if summary, err = s.Summarize(ctx, input.Text); err != nil {
			return nil, err
		}
	}

	m, err := st.AddMemo(ctx, input.Text, summary)
	out := &AddMemoOutput{Memo: m}
	if out.Warning, err = warning(err); err != nil {
		return nil, err
	}
	return out, nil
}
